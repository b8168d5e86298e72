package accounts

import (
	"strings"
	"time"
)

// Account is an administrator allowed to manage portfolio content.
type Account struct {
	Username     string    `gorm:"column:username;primaryKey;size:150;not null"`
	PasswordHash string    `gorm:"column:password_hash;size:100;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	LastSeenAt   time.Time `gorm:"column:last_seen_at;not null"`
}

// TableName exposes the table backing admin accounts.
func (Account) TableName() string {
	return "admin_accounts"
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
