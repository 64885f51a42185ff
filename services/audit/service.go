package audit

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/novabank/onboard/config"
	"github.com/novabank/onboard/services/logging"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AlertSender delivers suspicious-activity notifications to the security
// operations address. Implementations must be safe to call concurrently.
type AlertSender interface {
	SendSecurityAlert(subject, body string) error
}

type Event struct {
	Type      EventType
	UserID    *uint
	UserType  string
	SessionID string
	IPAddress string
	Details   map[string]any
}

type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logging.Service
	alerts AlertSender
}

func NewService(db *gorm.DB, cfg *config.Config, logger *logging.Service) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

func (s *Service) SetAlertSender(alerts AlertSender) {
	s.alerts = alerts
}

// Record appends one event. The write is plain insert-only, so concurrent
// appends need no coordination beyond the store's insert durability.
func (s *Service) Record(ctx context.Context, event Event) error {
	return s.RecordTx(s.db.WithContext(ctx), event)
}

// RecordTx appends one event on the supplied handle, allowing the caller to
// include the append in its own transaction.
func (s *Service) RecordTx(tx *gorm.DB, event Event) error {
	details := ""
	if event.Details != nil {
		if encoded, err := json.Marshal(event.Details); err == nil {
			details = string(encoded)
		}
	}

	row := SecurityEvent{
		ID:        ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		EventType: event.Type,
		UserID:    event.UserID,
		UserType:  event.UserType,
		SessionID: event.SessionID,
		IPAddress: event.IPAddress,
		Details:   details,
		CreatedAt: time.Now(),
	}

	if err := tx.Create(&row).Error; err != nil {
		if s.logger != nil {
			s.logger.Error("failed to append security event",
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
		return fmt.Errorf("failed to append security event: %w", err)
	}

	if event.Type == EventSuspiciousActivity {
		s.notify(row)
	}

	return nil
}

// notify is best-effort: alert delivery must never fail or block the
// authentication path that recorded the event.
func (s *Service) notify(row SecurityEvent) {
	if s.alerts == nil {
		return
	}

	go func() {
		subject := fmt.Sprintf("[%s] suspicious activity detected", s.config.App.Name)
		body := fmt.Sprintf("event=%s session=%s ip=%s details=%s at=%s",
			row.ID, row.SessionID, row.IPAddress, row.Details, row.CreatedAt.Format(time.RFC3339))

		if err := s.alerts.SendSecurityAlert(subject, body); err != nil && s.logger != nil {
			s.logger.Warn("failed to deliver security alert",
				zap.String("event_id", row.ID),
				zap.Error(err))
		}
	}()
}

// CleanupOldEvents removes events older than the retention window. This is
// the only path that deletes audit rows.
func (s *Service) CleanupOldEvents(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)

	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&SecurityEvent{})
	if result.Error != nil {
		if s.logger != nil {
			s.logger.Error("failed to cleanup old security events", zap.Error(result.Error))
		}
		return 0, fmt.Errorf("failed to cleanup old security events: %w", result.Error)
	}

	if result.RowsAffected > 0 && s.logger != nil {
		s.logger.Info("cleaned up old security events",
			zap.Int64("count", result.RowsAffected),
			zap.Time("cutoff", cutoff))
	}

	return result.RowsAffected, nil
}

// EventsForUser returns a principal's recent events, newest first.
func (s *Service) EventsForUser(ctx context.Context, userID uint, userType string, limit int) ([]SecurityEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var events []SecurityEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND user_type = ?", userID, userType).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}

	return events, nil
}
