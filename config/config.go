package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig       `envPrefix:"APP_"`
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Log       LogConfig       `envPrefix:"LOG_"`
	Database  DatabaseConfig  `envPrefix:"DATABASE_"`
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	JWT       JWTConfig       `envPrefix:"JWT_"`
	Session   SessionConfig   `envPrefix:"SESSION_"`
	RateLimit RateLimitConfig `envPrefix:"RATELIMIT_"`
	MFA       MFAConfig       `envPrefix:"MFA_"`
	Mail      MailConfig      `envPrefix:"MAIL_"`
}

type AppConfig struct {
	Name string `env:"NAME" envDefault:"NovaBank Onboarding"`
	URL  string `env:"URL" envDefault:"http://localhost:8080"`
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Host string `env:"HOST" envDefault:"localhost"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"onboard.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type AuthConfig struct {
	MinLength      int  `env:"MIN_LENGTH" envDefault:"8"`
	RequireUpper   bool `env:"REQUIRE_UPPER" envDefault:"true"`
	RequireLower   bool `env:"REQUIRE_LOWER" envDefault:"true"`
	RequireNumber  bool `env:"REQUIRE_NUMBER" envDefault:"true"`
	RequireSpecial bool `env:"REQUIRE_SPECIAL" envDefault:"false"`
	BcryptCost     int  `env:"BCRYPT_COST" envDefault:"10"`
}

// JWTConfig carries one signing secret per token class so that compromise
// of one class does not compromise the other.
type JWTConfig struct {
	AccessSecret  string        `env:"ACCESS_SECRET"`
	RefreshSecret string        `env:"REFRESH_SECRET"`
	Issuer        string        `env:"ISSUER" envDefault:"novabank-onboard"`
	AccessExpiry  time.Duration `env:"ACCESS_EXPIRY" envDefault:"15m"`
	RefreshExpiry time.Duration `env:"REFRESH_EXPIRY" envDefault:"168h"`
}

type SessionConfig struct {
	MaxConcurrent   int           `env:"MAX_CONCURRENT" envDefault:"3"`
	Retention       time.Duration `env:"RETENTION" envDefault:"720h"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
}

type RateLimitConfig struct {
	LoginAttempts int           `env:"LOGIN_ATTEMPTS" envDefault:"5"`
	LoginPeriod   time.Duration `env:"LOGIN_PERIOD" envDefault:"1m"`
}

type MFAConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"false"`
	Issuer  string `env:"ISSUER" envDefault:"NovaBank Onboarding"`
}

type MailConfig struct {
	Enabled       bool   `env:"ENABLED" envDefault:"false"`
	Host          string `env:"HOST"`
	Port          int    `env:"PORT" envDefault:"587"`
	Username      string `env:"USERNAME"`
	Password      string `env:"PASSWORD"`
	Encryption    string `env:"ENCRYPTION" envDefault:"starttls"`
	FromAddress   string `env:"FROM_ADDRESS"`
	SecurityAlert string `env:"SECURITY_ALERT_ADDRESS"`
}

func LoadConfig(cfg *Config) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	return cfg.Validate()
}

func (c *Config) Validate() error {
	if err := validateSecret("access", c.JWT.AccessSecret); err != nil {
		return err
	}
	if err := validateSecret("refresh", c.JWT.RefreshSecret); err != nil {
		return err
	}
	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		return fmt.Errorf("JWT access and refresh secrets must be different")
	}
	if c.Session.MaxConcurrent < 1 {
		return fmt.Errorf("session max concurrent limit must be at least 1")
	}
	return nil
}

var weakSecretPatterns = []string{"secret", "password", "changeme", "default", "example"}

func validateSecret(class, secret string) error {
	if len(secret) < 32 {
		return fmt.Errorf("JWT %s secret key must be at least 32 characters long", class)
	}

	lower := strings.ToLower(secret)
	for _, pattern := range weakSecretPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("JWT %s secret key contains weak patterns", class)
		}
	}

	return nil
}
