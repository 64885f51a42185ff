package audit

import (
	"time"
)

type EventType string

const (
	EventLoginSuccess       EventType = "login_success"
	EventLoginFailure       EventType = "login_failure"
	EventTokenRefresh       EventType = "token_refresh"
	EventLogout             EventType = "logout"
	EventSuspiciousActivity EventType = "suspicious_activity"
	EventUnauthorizedAccess EventType = "unauthorized_access"
)

// SecurityEvent is an append-only audit record. Rows are never updated;
// only the retention sweep deletes them.
type SecurityEvent struct {
	ID        string    `json:"id" gorm:"primaryKey;size:26"`
	EventType EventType `json:"event_type" gorm:"size:30;not null;index"`
	UserID    *uint     `json:"user_id,omitempty" gorm:"index"`
	UserType  string    `json:"user_type,omitempty" gorm:"size:20"`
	SessionID string    `json:"session_id,omitempty" gorm:"size:36;index"`
	IPAddress string    `json:"ip_address" gorm:"size:45"`
	Details   string    `json:"details" gorm:"size:2000"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (SecurityEvent) TableName() string {
	return "security_events"
}
