package testutils

import (
	"time"

	"github.com/novabank/onboard/config"
)

const (
	TestAccessSecret  = "a1b2c3d4e5f6g7h8i9j0k1l2m3n4o5p6q7r8s9t0"
	TestRefreshSecret = "z9y8x7w6v5u4t3s2r1q0p9o8n7m6l5k4j3i2h1g0"
)

// NewTestConfig returns a config with the session/auth defaults the services
// expect, suitable for unit tests without environment loading.
func NewTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "NovaBank Onboarding",
			URL:  "http://localhost:8080",
		},
		Auth: config.AuthConfig{
			MinLength:     8,
			RequireUpper:  true,
			RequireLower:  true,
			RequireNumber: true,
			BcryptCost:    4,
		},
		JWT: config.JWTConfig{
			AccessSecret:  TestAccessSecret,
			RefreshSecret: TestRefreshSecret,
			Issuer:        "novabank-onboard-test",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
		},
		Session: config.SessionConfig{
			MaxConcurrent:   3,
			Retention:       720 * time.Hour,
			CleanupInterval: time.Hour,
		},
		MFA: config.MFAConfig{
			Enabled: true,
			Issuer:  "NovaBank Onboarding Test",
		},
	}
}
