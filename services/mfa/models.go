package mfa

import (
	"time"
)

type TOTPSecret struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_mfa_principal,priority:1"`
	UserType  string    `json:"user_type" gorm:"size:20;not null;uniqueIndex:idx_mfa_principal,priority:2"`
	Secret    string    `json:"-" gorm:"not null"`
	Enabled   bool      `json:"enabled" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TOTPSecret) TableName() string {
	return "mfa_totp_secrets"
}

// UsedCode prevents replay of a TOTP code within its validity window.
type UsedCode struct {
	ID       uint   `gorm:"primaryKey"`
	UserID   uint   `gorm:"index:idx_mfa_user_code,priority:1;not null"`
	UserType string `gorm:"size:20;index:idx_mfa_user_code,priority:2;not null"`
	Code     string `gorm:"size:10;index:idx_mfa_user_code,priority:3;not null"`
	UsedAt   int64  `gorm:"index;not null"`
}

func (UsedCode) TableName() string {
	return "mfa_used_codes"
}
