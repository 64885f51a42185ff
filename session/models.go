package session

import (
	"time"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
)

// Revocation reasons recorded on logout events.
const (
	ReasonLogout         = "logout"
	ReasonLogoutAll      = "logout_all"
	ReasonEvicted        = "evicted"
	ReasonDeviceMismatch = "device_mismatch"
	ReasonPasswordChange = "password_change"
	ReasonAdmin          = "admin_revoke"
)

// Session is the durable record linking a principal, a token pair and a
// device binding. Rows move through active → expired/revoked and never
// leave a terminal state; the cleanup sweep is the only thing that deletes
// them.
type Session struct {
	ID                string    `json:"id" gorm:"primaryKey;size:36"`
	UserID            uint      `json:"user_id" gorm:"not null;index:idx_sessions_principal,priority:1"`
	UserType          string    `json:"user_type" gorm:"size:20;not null;index:idx_sessions_principal,priority:2"`
	AccessToken       string    `json:"-" gorm:"size:1000;not null"`
	RefreshToken      string    `json:"-" gorm:"size:1000;not null;index:idx_sessions_refresh,length:255"`
	DeviceFingerprint string    `json:"device_fingerprint" gorm:"size:64;not null"`
	IPAddress         string    `json:"ip_address" gorm:"size:45"`
	UserAgent         string    `json:"user_agent" gorm:"size:500"`
	ExpiresAt         time.Time `json:"expires_at" gorm:"not null"`
	RefreshExpiresAt  time.Time `json:"refresh_expires_at" gorm:"not null"`
	LastActivity      time.Time `json:"last_activity" gorm:"not null;index"`
	Status            Status    `json:"status" gorm:"size:10;not null;default:'active';index"`
	CreatedAt         time.Time `json:"created_at"`
}

func (Session) TableName() string {
	return "sessions"
}

func (s *Session) Terminal() bool {
	return s.Status == StatusExpired || s.Status == StatusRevoked
}

// Tokens is the result of a successful session creation.
type Tokens struct {
	SessionID        string    `json:"sessionId"`
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	ExpiresAt        time.Time `json:"expiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// RefreshResult is the result of a successful access-token refresh.
type RefreshResult struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	SessionID   string    `json:"sessionId"`
}

// Identity is the resolved principal attached to a validated request.
type Identity struct {
	UserID    uint   `json:"user_id"`
	UserType  string `json:"user_type"`
	SessionID string `json:"session_id"`
}
