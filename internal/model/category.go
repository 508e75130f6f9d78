package model

import "time"

// Category is a label a user has used at least once (work, study, etc.).
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	OwnerID   string `gorm:"index:idx_owner_category_name,unique"`
	Name      string `gorm:"index:idx_owner_category_name,unique"`
	CreatedAt time.Time
}
