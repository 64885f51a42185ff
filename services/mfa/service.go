package mfa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/novabank/onboard/config"
	"github.com/novabank/onboard/services/logging"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrMFADisabled     = errors.New("multi-factor authentication is disabled")
	ErrInvalidCode     = errors.New("invalid verification code")
	ErrSecretExists    = errors.New("TOTP secret already exists for principal")
	ErrSecretNotFound  = errors.New("TOTP secret not found for principal")
	ErrCodeAlreadyUsed = errors.New("verification code has already been used")
)

// usedCodeWindow must cover the TOTP step plus allowed skew.
const usedCodeWindow = 90 * time.Second

type Service struct {
	config *config.Config
	db     *gorm.DB
	logger *logging.Service
}

func NewService(cfg *config.Config, db *gorm.DB, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		db:     db,
		logger: logger,
	}
}

// Enroll generates and stores a TOTP secret for a principal. The secret is
// created disabled; Activate turns it on after the first verified code.
func (s *Service) Enroll(ctx context.Context, userID uint, userType, accountName string) (*TOTPSecret, error) {
	if !s.config.MFA.Enabled {
		return nil, ErrMFADisabled
	}

	var existing TOTPSecret
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND user_type = ?", userID, userType).
		First(&existing).Error
	if err == nil {
		return nil, ErrSecretExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing TOTP secret: %w", err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.config.MFA.Issuer,
		AccountName: accountName,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Error("TOTP key generation failed", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	secret := &TOTPSecret{
		UserID:   userID,
		UserType: userType,
		Secret:   key.Secret(),
	}
	if err := s.db.WithContext(ctx).Create(secret).Error; err != nil {
		return nil, fmt.Errorf("failed to store TOTP secret: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("TOTP secret enrolled",
			zap.Uint("user_id", userID),
			zap.String("user_type", userType))
	}

	return secret, nil
}

// Activate enables a previously enrolled secret once the principal proves
// possession with a valid code.
func (s *Service) Activate(ctx context.Context, userID uint, userType, code string) error {
	secret, err := s.getSecret(ctx, userID, userType)
	if err != nil {
		return err
	}

	if !totp.Validate(code, secret.Secret) {
		return ErrInvalidCode
	}

	secret.Enabled = true
	if err := s.db.WithContext(ctx).Save(secret).Error; err != nil {
		return fmt.Errorf("failed to activate TOTP: %w", err)
	}

	return nil
}

// Required reports whether the principal has an active TOTP enrolment.
func (s *Service) Required(ctx context.Context, userID uint, userType string) (bool, error) {
	if !s.config.MFA.Enabled {
		return false, nil
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&TOTPSecret{}).
		Where("user_id = ? AND user_type = ? AND enabled = ?", userID, userType, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check TOTP enrolment: %w", err)
	}

	return count > 0, nil
}

// VerifyCode validates a code against the principal's active secret and
// burns it so the same code cannot be replayed within its window.
func (s *Service) VerifyCode(ctx context.Context, userID uint, userType, code string) error {
	secret, err := s.getSecret(ctx, userID, userType)
	if err != nil {
		return err
	}
	if !secret.Enabled {
		return ErrSecretNotFound
	}

	if !totp.Validate(code, secret.Secret) {
		if s.logger != nil {
			s.logger.Warn("TOTP verification failed",
				zap.Uint("user_id", userID),
				zap.String("user_type", userType))
		}
		return ErrInvalidCode
	}

	cutoff := time.Now().Add(-usedCodeWindow).Unix()
	var used int64
	err = s.db.WithContext(ctx).Model(&UsedCode{}).
		Where("user_id = ? AND user_type = ? AND code = ? AND used_at > ?", userID, userType, code, cutoff).
		Count(&used).Error
	if err != nil {
		return fmt.Errorf("failed to check used codes: %w", err)
	}
	if used > 0 {
		return ErrCodeAlreadyUsed
	}

	record := UsedCode{
		UserID:   userID,
		UserType: userType,
		Code:     code,
		UsedAt:   time.Now().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to record used code: %w", err)
	}

	return nil
}

// CleanupUsedCodes drops replay-protection rows past their window.
func (s *Service) CleanupUsedCodes(ctx context.Context) error {
	cutoff := time.Now().Add(-usedCodeWindow).Unix()
	return s.db.WithContext(ctx).
		Where("used_at <= ?", cutoff).
		Delete(&UsedCode{}).Error
}

func (s *Service) getSecret(ctx context.Context, userID uint, userType string) (*TOTPSecret, error) {
	if !s.config.MFA.Enabled {
		return nil, ErrMFADisabled
	}

	var secret TOTPSecret
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND user_type = ?", userID, userType).
		First(&secret).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSecretNotFound
		}
		return nil, fmt.Errorf("failed to retrieve TOTP secret: %w", err)
	}

	return &secret, nil
}
