package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"todocat/internal/model"
)

// CategoryRepository keeps the categories each owner has used.
// Rows are never removed when tasks go away.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// ListByOwner returns the owner's categories in the order they were first used.
func (r *CategoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Names is ListByOwner reduced to category names.
func (r *CategoryRepository) Names(ctx context.Context, ownerID string) ([]string, error) {
	categories, err := r.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(categories))
	for _, cat := range categories {
		names = append(names, cat.Name)
	}
	return names, nil
}

func ensureCategory(db *gorm.DB, ownerID, name string) error {
	if name == "" {
		return nil
	}
	category := model.Category{OwnerID: ownerID, Name: name}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "name"}},
		DoNothing: true,
	}).Create(&category).Error
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}
