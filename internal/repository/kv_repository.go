package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"todocat/internal/localstore"
	"todocat/internal/model"
)

// KVRepository is the SQLite-backed key/value table of the local variant.
type KVRepository struct {
	db *gorm.DB
}

var _ localstore.KV = (*KVRepository)(nil)

func NewKVRepository(db *gorm.DB) *KVRepository {
	return &KVRepository{db: db}
}

func (r *KVRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var entry model.KVEntry
	err := r.db.WithContext(ctx).Where(&model.KVEntry{Key: key}).First(&entry).Error
	switch {
	case err == nil:
		return []byte(entry.Value), nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, localstore.ErrMissing
	default:
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
}

func (r *KVRepository) Put(ctx context.Context, key string, value []byte) error {
	entry := model.KVEntry{Key: key, Value: string(value), UpdatedAt: time.Now()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}
