package service

import (
	"context"
)

// CategoryService provides helpers around categories.
type CategoryService struct {
	tasks *TaskService
}

func NewCategoryService(tasks *TaskService) *CategoryService {
	return &CategoryService{tasks: tasks}
}

// List returns the owner's known categories in first-seen order, defaults first.
func (s *CategoryService) List(ctx context.Context, ownerID string) ([]string, error) {
	store, err := s.tasks.session(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return store.Categories(), nil
}
