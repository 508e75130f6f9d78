package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"todocat/internal/model"
	"todocat/internal/todo"
)

// TaskRepository handles CRUD for tasks. Every query is scoped to an owner.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts task and records its category for the owner in one transaction.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		return ensureCategory(tx, task.OwnerID, task.Category)
	})
	return err
}

// ListByOwner returns the owner's tasks, newest first.
func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, taskID).First(&task).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("%w: %s", todo.ErrNotFound, taskID)
	default:
		return nil, fmt.Errorf("find task: %w", err)
	}
}

// Update stores title, category and completed of task. The id and owner are
// only used to locate the row.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updatedAt := task.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now()
		}
		res := tx.Model(&model.Task{}).
			Where("owner_id = ? AND id = ?", task.OwnerID, task.ID).
			Updates(map[string]interface{}{
				"title":      task.Title,
				"category":   task.Category,
				"completed":  task.Completed,
				"updated_at": updatedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("update task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", todo.ErrNotFound, task.ID)
		}
		return ensureCategory(tx, task.OwnerID, task.Category)
	})
	if err != nil {
		return err
	}
	stored, err := r.FindByID(ctx, task.OwnerID, task.ID)
	if err != nil {
		return err
	}
	*task = *stored
	return nil
}

// Delete removes a task of the given owner.
func (r *TaskRepository) Delete(ctx context.Context, ownerID, taskID string) error {
	res := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", todo.ErrNotFound, taskID)
	}
	return nil
}

// DeleteAll removes every task of the owner in a single statement.
func (r *TaskRepository) DeleteAll(ctx context.Context, ownerID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&model.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("clear tasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}
