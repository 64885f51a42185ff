package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/novabank/onboard/config"
	"github.com/novabank/onboard/services/logging"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrPasswordHashingFailed = errors.New("failed to hash password")
)

type Service struct {
	config *config.Config
	db     *gorm.DB
	logger *logging.Service
}

func NewService(cfg *config.Config, db *gorm.DB, logger *logging.Service) *Service {
	if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > bcrypt.MaxCost {
		cfg.Auth.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		config: cfg,
		db:     db,
		logger: logger,
	}
}

// Verify checks a presented identifier and secret against the stored hash.
// Every failure collapses to ErrInvalidCredentials so the response does not
// reveal whether the identifier exists.
func (s *Service) Verify(ctx context.Context, identifier, userType, secret string) (*Principal, error) {
	var credential Credential
	err := s.db.WithContext(ctx).
		Where("identifier = ? AND user_type = ?", identifier, userType).
		First(&credential).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Burn a bcrypt compare anyway to keep timing comparable.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(secret))
			if s.logger != nil {
				s.logger.Warn("credential verification failed - unknown identifier",
					zap.String("user_type", userType))
			}
			return nil, ErrInvalidCredentials
		}
		if s.logger != nil {
			s.logger.Error("credential lookup failed", zap.Error(err))
		}
		return nil, fmt.Errorf("credential lookup failed: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(credential.PasswordHash), []byte(secret)); err != nil {
		if s.logger != nil {
			s.logger.Warn("credential verification failed - password mismatch",
				zap.Uint("user_id", credential.UserID),
				zap.String("user_type", credential.UserType))
		}
		return nil, ErrInvalidCredentials
	}

	return &Principal{
		UserID:   credential.UserID,
		UserType: credential.UserType,
	}, nil
}

// SetPassword creates or replaces the credential for a principal after
// checking the configured password policy.
func (s *Service) SetPassword(ctx context.Context, identifier, userType string, userID uint, secret string) error {
	if err := s.ValidatePassword(secret); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.config.Auth.BcryptCost)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("password hashing failed", zap.Error(err))
		}
		return ErrPasswordHashingFailed
	}

	credential := Credential{
		Identifier:   identifier,
		UserType:     userType,
		UserID:       userID,
		PasswordHash: string(hash),
	}

	err = s.db.WithContext(ctx).
		Where("identifier = ? AND user_type = ?", identifier, userType).
		Assign(map[string]any{"password_hash": string(hash), "user_id": userID}).
		FirstOrCreate(&credential).Error
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	return nil
}

func (s *Service) ValidatePassword(password string) error {
	if len(password) < s.config.Auth.MinLength {
		return fmt.Errorf("password must be at least %d characters", s.config.Auth.MinLength)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	var missing []string
	if s.config.Auth.RequireUpper && !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if s.config.Auth.RequireLower && !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if s.config.Auth.RequireNumber && !hasNumber {
		missing = append(missing, "one number")
	}
	if s.config.Auth.RequireSpecial && !hasSpecial {
		missing = append(missing, "one special character")
	}

	if len(missing) > 0 {
		return fmt.Errorf("password must contain at least %s", strings.Join(missing, ", "))
	}

	return nil
}

// dummyHash is a bcrypt hash of an unguessable throwaway value, compared
// against when the identifier is unknown.
var dummyHash = func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("onboard-timing-equalizer"), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return hash
}()
