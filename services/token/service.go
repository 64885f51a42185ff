package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/novabank/onboard/config"
	"github.com/novabank/onboard/services/logging"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrWrongTokenType   = errors.New("wrong token type for this context")
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims carries the identity and session linkage embedded in both token
// classes. Fingerprint is set on access tokens only.
type Claims struct {
	UserID      uint   `json:"user_id"`
	UserType    string `json:"user_type"`
	SessionID   string `json:"session_id"`
	Fingerprint string `json:"fingerprint,omitempty"`
	TokenType   string `json:"token_type"`
	jwt.RegisteredClaims
}

// Service mints and verifies the two token classes. Each class is signed
// with its own secret so compromise of one does not compromise the other.
type Service struct {
	config *config.Config
	logger *logging.Service
}

func NewService(cfg *config.Config, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		logger: logger,
	}
}

func (s *Service) AccessExpiry() time.Duration {
	return s.config.JWT.AccessExpiry
}

func (s *Service) RefreshExpiry() time.Duration {
	return s.config.JWT.RefreshExpiry
}

func (s *Service) GenerateAccessToken(userID uint, userType, sessionID, fingerprint string) (string, error) {
	return s.generate(userID, userType, sessionID, fingerprint, TypeAccess,
		s.config.JWT.AccessExpiry, s.config.JWT.AccessSecret)
}

func (s *Service) GenerateRefreshToken(userID uint, userType, sessionID string) (string, error) {
	return s.generate(userID, userType, sessionID, "", TypeRefresh,
		s.config.JWT.RefreshExpiry, s.config.JWT.RefreshSecret)
}

func (s *Service) generate(userID uint, userType, sessionID, fingerprint, tokenType string, expiry time.Duration, secret string) (string, error) {
	now := time.Now()
	jti := uuid.New().String()
	claims := Claims{
		UserID:      userID,
		UserType:    userType,
		SessionID:   sessionID,
		Fingerprint: fingerprint,
		TokenType:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.config.JWT.Issuer,
			Subject:   fmt.Sprintf("%d", userID),
			Audience:  []string{s.config.JWT.Issuer},
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to sign token",
				zap.String("token_type", tokenType),
				zap.Error(err))
		}
		return "", fmt.Errorf("failed to generate %s token: %w", tokenType, err)
	}

	return tokenString, nil
}

// ValidateAccessToken verifies signature and structure against the access
// secret and rejects tokens of the wrong class.
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TypeAccess, s.config.JWT.AccessSecret)
}

// ValidateRefreshToken verifies signature and structure against the refresh
// secret and rejects tokens of the wrong class.
func (s *Service) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TypeRefresh, s.config.JWT.RefreshSecret)
}

func (s *Service) validate(tokenString, expectedType, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() == "none" {
			return nil, errors.New("'none' algorithm is not allowed")
		}

		if token.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected algorithm: expected HS256, got %s", token.Method.Alg())
		}

		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid algorithm family: %v", token.Header["alg"])
		}

		return []byte(secret), nil
	})

	if err != nil {
		if s.logger != nil {
			s.logger.Warn("token validation failed",
				zap.String("expected_type", expectedType),
				zap.Error(err))
		}

		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != expectedType {
		if s.logger != nil {
			s.logger.Warn("token presented in wrong context",
				zap.String("expected_type", expectedType),
				zap.String("actual_type", claims.TokenType))
		}
		return nil, ErrWrongTokenType
	}

	return claims, nil
}
