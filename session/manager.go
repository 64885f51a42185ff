package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/novabank/onboard/config"
	"github.com/novabank/onboard/services/audit"
	"github.com/novabank/onboard/services/fingerprint"
	"github.com/novabank/onboard/services/logging"
	"github.com/novabank/onboard/services/token"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrInvalidSession      = errors.New("invalid session")
	ErrSessionExpired      = errors.New("session has expired")
	ErrRefreshTokenExpired = errors.New("refresh token has expired")
	ErrDeviceMismatch      = errors.New("device fingerprint mismatch")
)

// Manager orchestrates the session lifecycle. It is constructed once with
// its store handle and configuration and passed explicitly to handlers;
// nothing else writes session rows.
type Manager struct {
	db     *gorm.DB
	config *config.Config
	tokens *token.Service
	audit  *audit.Service
	logger *logging.Service

	stopCleanup chan struct{}
}

func NewManager(db *gorm.DB, cfg *config.Config, tokens *token.Service, auditSvc *audit.Service, logger *logging.Service) *Manager {
	if logger != nil {
		logger.Info("initializing session manager",
			zap.Int("max_concurrent", cfg.Session.MaxConcurrent),
			zap.Duration("access_expiry", cfg.JWT.AccessExpiry),
			zap.Duration("refresh_expiry", cfg.JWT.RefreshExpiry))
	}

	return &Manager{
		db:     db,
		config: cfg,
		tokens: tokens,
		audit:  auditSvc,
		logger: logger,
	}
}

// Create mints a token pair and inserts the session, evicting the
// least-recently-active session when the principal is at the concurrency
// limit. Everything runs in one transaction: on failure there is no partial
// session and no partial eviction.
func (m *Manager) Create(ctx context.Context, userID uint, userType, ipAddress, userAgent, deviceFingerprint string) (*Tokens, error) {
	sessionID := uuid.New().String()

	accessToken, err := m.tokens.GenerateAccessToken(userID, userType, sessionID, deviceFingerprint)
	if err != nil {
		return nil, err
	}
	refreshToken, err := m.tokens.GenerateRefreshToken(userID, userType, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := Session{
		ID:                sessionID,
		UserID:            userID,
		UserType:          userType,
		AccessToken:       accessToken,
		RefreshToken:      refreshToken,
		DeviceFingerprint: deviceFingerprint,
		IPAddress:         ipAddress,
		UserAgent:         userAgent,
		ExpiresAt:         now.Add(m.config.JWT.AccessExpiry),
		RefreshExpiresAt:  now.Add(m.config.JWT.RefreshExpiry),
		LastActivity:      now,
		Status:            StatusActive,
		CreatedAt:         now,
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active []Session
		if err := lockForUpdate(tx).
			Where("user_id = ? AND user_type = ? AND status = ?", userID, userType, StatusActive).
			Order("last_activity ASC").
			Find(&active).Error; err != nil {
			return fmt.Errorf("failed to count active sessions: %w", err)
		}

		limit := m.config.Session.MaxConcurrent
		if len(active) >= limit {
			for _, victim := range active[:len(active)-limit+1] {
				if err := m.evict(tx, &victim); err != nil {
					return err
				}
			}
		}

		if err := tx.Create(&sess).Error; err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}

		if err := fingerprint.UpsertDeviceRecord(tx, userID, userType, deviceFingerprint, ipAddress, userAgent); err != nil {
			return fmt.Errorf("failed to upsert device record: %w", err)
		}

		return m.audit.RecordTx(tx, audit.Event{
			Type:      audit.EventLoginSuccess,
			UserID:    &userID,
			UserType:  userType,
			SessionID: sessionID,
			IPAddress: ipAddress,
			Details:   map[string]any{"fingerprint": deviceFingerprint},
		})
	})
	if err != nil {
		if m.logger != nil {
			m.logger.Error("session creation failed",
				zap.Uint("user_id", userID),
				zap.String("user_type", userType),
				zap.Error(err))
		}
		return nil, err
	}

	if m.logger != nil {
		m.logger.Info("session created",
			zap.String("session_id", sessionID),
			zap.Uint("user_id", userID),
			zap.String("user_type", userType))
	}

	return &Tokens{
		SessionID:        sessionID,
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		ExpiresAt:        sess.ExpiresAt,
		RefreshExpiresAt: sess.RefreshExpiresAt,
	}, nil
}

func (m *Manager) evict(tx *gorm.DB, victim *Session) error {
	result := tx.Model(&Session{}).
		Where("id = ? AND status = ?", victim.ID, StatusActive).
		Update("status", StatusRevoked)
	if result.Error != nil {
		return fmt.Errorf("failed to evict session: %w", result.Error)
	}

	if m.logger != nil {
		m.logger.Info("evicted least-recently-active session",
			zap.String("session_id", victim.ID),
			zap.Uint("user_id", victim.UserID),
			zap.Time("last_activity", victim.LastActivity))
	}

	return m.audit.RecordTx(tx, audit.Event{
		Type:      audit.EventLogout,
		UserID:    &victim.UserID,
		UserType:  victim.UserType,
		SessionID: victim.ID,
		IPAddress: victim.IPAddress,
		Details:   map[string]any{"reason": ReasonEvicted},
	})
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated.
func (m *Manager) Refresh(ctx context.Context, refreshToken, ipAddress, userAgent string) (*RefreshResult, error) {
	// The session row is authoritative; verification only proves possession
	// of a structurally valid, correctly signed refresh token. An expired
	// exp claim passed signature verification, so it is not forensic signal:
	// the row's refresh_expires_at decides below whether the window closed.
	if _, err := m.tokens.ValidateRefreshToken(refreshToken); err != nil && !errors.Is(err, token.ErrExpiredToken) {
		// Bad signature or structure, not a store miss: forensic signal.
		m.recordSuspicious(ctx, audit.Event{
			IPAddress: ipAddress,
			Details: map[string]any{
				"stage":          "refresh_token_verification",
				"error":          err.Error(),
				"token_fragment": truncateToken(refreshToken),
			},
		})
		return nil, err
	}

	var result RefreshResult
	// Denial writes (the status flip) must outlive the transaction, so
	// denials return nil from the closure and surface after commit.
	var denied error
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess Session
		err := lockForUpdate(tx).
			Where("refresh_token = ? AND status = ?", refreshToken, StatusActive).
			First(&sess).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to look up session: %w", err)
		}

		now := time.Now()
		if now.After(sess.RefreshExpiresAt) {
			if err := tx.Model(&sess).Update("status", StatusExpired).Error; err != nil {
				return fmt.Errorf("failed to expire session: %w", err)
			}
			denied = ErrRefreshTokenExpired
			return nil
		}

		accessToken, err := m.tokens.GenerateAccessToken(sess.UserID, sess.UserType, sess.ID, sess.DeviceFingerprint)
		if err != nil {
			return err
		}

		expiresAt := now.Add(m.config.JWT.AccessExpiry)
		err = tx.Model(&sess).Updates(map[string]any{
			"access_token":  accessToken,
			"expires_at":    expiresAt,
			"last_activity": now,
			"ip_address":    ipAddress,
			"user_agent":    userAgent,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}

		result = RefreshResult{
			AccessToken: accessToken,
			ExpiresAt:   expiresAt,
			SessionID:   sess.ID,
		}

		return m.audit.RecordTx(tx, audit.Event{
			Type:      audit.EventTokenRefresh,
			UserID:    &sess.UserID,
			UserType:  sess.UserType,
			SessionID: sess.ID,
			IPAddress: ipAddress,
		})
	})
	if err != nil {
		return nil, err
	}
	if denied != nil {
		return nil, denied
	}

	return &result, nil
}

// Validate checks an access token against its session and device binding
// and resolves the principal. Any ambiguity denies access.
func (m *Manager) Validate(ctx context.Context, sessionID, accessToken, deviceFingerprint string) (*Identity, error) {
	var identity Identity
	// As in Refresh: the expiry flip and the mismatch revocation must
	// commit, so denials surface after the transaction.
	var denied error

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess Session
		err := tx.
			Where("id = ? AND access_token = ? AND status = ?", sessionID, accessToken, StatusActive).
			First(&sess).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidSession
			}
			return fmt.Errorf("failed to look up session: %w", err)
		}

		now := time.Now()
		if now.After(sess.ExpiresAt) {
			if err := tx.Model(&sess).Update("status", StatusExpired).Error; err != nil {
				return fmt.Errorf("failed to expire session: %w", err)
			}
			denied = ErrSessionExpired
			return nil
		}

		if subtle.ConstantTimeCompare([]byte(sess.DeviceFingerprint), []byte(deviceFingerprint)) != 1 {
			// Hard fail: the session is revoked and the caller must fully
			// re-authenticate.
			if err := tx.Model(&sess).Update("status", StatusRevoked).Error; err != nil {
				return fmt.Errorf("failed to revoke session: %w", err)
			}
			if err := m.audit.RecordTx(tx, audit.Event{
				Type:      audit.EventSuspiciousActivity,
				UserID:    &sess.UserID,
				UserType:  sess.UserType,
				SessionID: sess.ID,
				IPAddress: sess.IPAddress,
				Details: map[string]any{
					"reason":               ReasonDeviceMismatch,
					"expected_fingerprint": sess.DeviceFingerprint,
					"actual_fingerprint":   deviceFingerprint,
				},
			}); err != nil {
				return err
			}
			denied = ErrDeviceMismatch
			return nil
		}

		if err := tx.Model(&sess).Update("last_activity", now).Error; err != nil {
			return fmt.Errorf("failed to update last activity: %w", err)
		}

		identity = Identity{
			UserID:    sess.UserID,
			UserType:  sess.UserType,
			SessionID: sess.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if denied != nil {
		return nil, denied
	}

	return &identity, nil
}

// Revoke flips an active session to revoked. Calling it on a terminal or
// absent session is a no-op, not an error.
func (m *Manager) Revoke(ctx context.Context, sessionID, reason string) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess Session
		err := tx.Where("id = ?", sessionID).First(&sess).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to look up session: %w", err)
		}
		if sess.Terminal() {
			return nil
		}

		if err := tx.Model(&sess).Update("status", StatusRevoked).Error; err != nil {
			return fmt.Errorf("failed to revoke session: %w", err)
		}

		return m.audit.RecordTx(tx, audit.Event{
			Type:      audit.EventLogout,
			UserID:    &sess.UserID,
			UserType:  sess.UserType,
			SessionID: sess.ID,
			IPAddress: sess.IPAddress,
			Details:   map[string]any{"reason": reason},
		})
	})
}

// RevokeAllForUser revokes every active session for a principal except one,
// typically after a password change or an explicit "log out everywhere
// else". One logout event summarizes the bulk action.
func (m *Manager) RevokeAllForUser(ctx context.Context, userID uint, userType, exceptSessionID string) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&Session{}).
			Where("user_id = ? AND user_type = ? AND status = ?", userID, userType, StatusActive)
		if exceptSessionID != "" {
			query = query.Where("id != ?", exceptSessionID)
		}

		result := query.Update("status", StatusRevoked)
		if result.Error != nil {
			return fmt.Errorf("failed to revoke sessions: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			return nil
		}

		if m.logger != nil {
			m.logger.Info("revoked all sessions for principal",
				zap.Uint("user_id", userID),
				zap.String("user_type", userType),
				zap.Int64("count", result.RowsAffected))
		}

		return m.audit.RecordTx(tx, audit.Event{
			Type:     audit.EventLogout,
			UserID:   &userID,
			UserType: userType,
			Details: map[string]any{
				"reason":        ReasonLogoutAll,
				"revoked_count": result.RowsAffected,
				"except":        exceptSessionID,
			},
		})
	})
}

// ActiveSessions lists a principal's active sessions, most recent first.
func (m *Manager) ActiveSessions(ctx context.Context, userID uint, userType string) ([]Session, error) {
	var sessions []Session
	err := m.db.WithContext(ctx).
		Where("user_id = ? AND user_type = ? AND status = ?", userID, userType, StatusActive).
		Order("last_activity DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// CleanupExpired flips silently-expired active rows and purges terminal
// rows past the retention window. Idempotent and safe alongside live
// traffic.
func (m *Manager) CleanupExpired(ctx context.Context) error {
	now := time.Now()

	result := m.db.WithContext(ctx).Model(&Session{}).
		Where("status = ? AND (expires_at < ? OR refresh_expires_at < ?)", StatusActive, now, now).
		Update("status", StatusExpired)
	if result.Error != nil {
		return fmt.Errorf("failed to expire stale sessions: %w", result.Error)
	}
	expired := result.RowsAffected

	cutoff := now.Add(-m.config.Session.Retention)
	result = m.db.WithContext(ctx).
		Where("status IN ? AND last_activity < ?", []Status{StatusExpired, StatusRevoked}, cutoff).
		Delete(&Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to purge old sessions: %w", result.Error)
	}

	if m.logger != nil && (expired > 0 || result.RowsAffected > 0) {
		m.logger.Info("session cleanup completed",
			zap.Int64("expired", expired),
			zap.Int64("purged", result.RowsAffected))
	}

	return nil
}

func (m *Manager) recordSuspicious(ctx context.Context, event audit.Event) {
	event.Type = audit.EventSuspiciousActivity
	if err := m.audit.Record(ctx, event); err != nil && m.logger != nil {
		m.logger.Error("failed to record suspicious activity", zap.Error(err))
	}
}

// truncateToken keeps a short fragment for forensics. Never the full
// secret: eight characters of a signed JWT identify a token in logs
// without being replayable.
func truncateToken(tokenString string) string {
	const keep = 8
	if len(tokenString) <= keep {
		return fmt.Sprintf("%s (len=%d)", tokenString, len(tokenString))
	}
	return fmt.Sprintf("%s... (len=%d)", tokenString[:keep], len(tokenString))
}

// lockForUpdate takes a row-level lock so concurrent creates for the same
// principal serialize on the count-then-evict-then-insert sequence. sqlite
// has no FOR UPDATE; its single-writer model provides the same guarantee.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
