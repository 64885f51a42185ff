package credentials

import (
	"time"
)

// Principal types recognised by the platform.
const (
	UserTypeCustomer = "customer"
	UserTypeAdmin    = "admin"
)

// Credential stores the login secret for a principal. It is an
// authentication artifact; customer profile data lives elsewhere.
type Credential struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Identifier   string    `json:"identifier" gorm:"size:255;not null;uniqueIndex:idx_identifier_type,priority:1"`
	UserType     string    `json:"user_type" gorm:"size:20;not null;uniqueIndex:idx_identifier_type,priority:2"`
	UserID       uint      `json:"user_id" gorm:"not null;index"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Credential) TableName() string {
	return "credentials"
}

// Principal is the resolved identity returned by a successful verification.
type Principal struct {
	UserID   uint   `json:"user_id"`
	UserType string `json:"user_type"`
}
