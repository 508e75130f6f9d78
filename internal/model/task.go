package model

import "time"

// Task represents a single item in the list.
type Task struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	OwnerID   string    `gorm:"index" json:"ownerId,omitempty"`
	Title     string    `json:"title"`
	Category  string    `gorm:"index" json:"category"`
	Completed bool      `gorm:"default:false" json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
