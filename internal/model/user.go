package model

import "time"

// User stores credentials and, for bot users, Telegram metadata.
type User struct {
	ID           string `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex"`
	PasswordHash string `json:"-"`
	TelegramID   *int64 `gorm:"uniqueIndex"`
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// KVEntry is one key of the local-storage variant.
type KVEntry struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
}
