package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"todocat/internal/model"
	"todocat/internal/repository"
	"todocat/internal/todo"
)

// TaskOptions configures the stores created for each owner.
type TaskOptions struct {
	DefaultCategory   string
	DefaultCategories []string
	Logger            *log.Logger
}

// TaskService wraps task-related business logic. It keeps one todo.Store per
// owner, mirroring that owner's rows in the database.
type TaskService struct {
	taskRepo     *repository.TaskRepository
	categoryRepo *repository.CategoryRepository
	opts         TaskOptions

	mu     sync.Mutex
	stores map[string]*todo.Store
}

func NewTaskService(taskRepo *repository.TaskRepository, categoryRepo *repository.CategoryRepository, opts TaskOptions) *TaskService {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.DefaultCategories == nil {
		opts.DefaultCategories = todo.DefaultCategories
	}
	return &TaskService{
		taskRepo:     taskRepo,
		categoryRepo: categoryRepo,
		opts:         opts,
		stores:       make(map[string]*todo.Store),
	}
}

// session returns the owner's store, loading it on first use. An empty owner
// resolves to nothing and is reported as not found.
func (s *TaskService) session(ctx context.Context, ownerID string) (*todo.Store, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: no owner", todo.ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if store, ok := s.stores[ownerID]; ok {
		return store, nil
	}

	backend := &ownerBackend{ownerID: ownerID, tasks: s.taskRepo, categories: s.categoryRepo}
	store := todo.NewStore(
		todo.WithOwner(ownerID),
		todo.WithBackend(backend, todo.Confirmed),
		todo.WithDefaultCategory(s.opts.DefaultCategory),
		todo.WithDefaultCategories(s.opts.DefaultCategories...),
		todo.WithLogger(s.opts.Logger),
	)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}
	s.stores[ownerID] = store
	return store, nil
}

// List returns the owner's tasks matching filter, newest first.
func (s *TaskService) List(ctx context.Context, ownerID string, filter todo.Filter) ([]model.Task, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}
	store, err := s.session(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return todo.Apply(store.List(), filter), nil
}

func (s *TaskService) Create(ctx context.Context, ownerID, text, category string) (model.Task, error) {
	store, err := s.session(ctx, ownerID)
	if err != nil {
		return model.Task{}, err
	}
	return store.Create(ctx, text, category)
}

func (s *TaskService) Get(ctx context.Context, ownerID, taskID string) (model.Task, error) {
	store, err := s.session(ctx, ownerID)
	if err != nil {
		return model.Task{}, err
	}
	return store.Get(taskID)
}

func (s *TaskService) Update(ctx context.Context, ownerID, taskID string, patch todo.Patch) (model.Task, error) {
	store, err := s.session(ctx, ownerID)
	if err != nil {
		return model.Task{}, err
	}
	return store.Update(ctx, taskID, patch)
}

func (s *TaskService) Toggle(ctx context.Context, ownerID, taskID string) (model.Task, error) {
	store, err := s.session(ctx, ownerID)
	if err != nil {
		return model.Task{}, err
	}
	return store.ToggleCompleted(ctx, taskID)
}

// Delete removes a task completely.
func (s *TaskService) Delete(ctx context.Context, ownerID, taskID string) error {
	store, err := s.session(ctx, ownerID)
	if err != nil {
		return err
	}
	return store.Delete(ctx, taskID)
}

// Clear removes every task of the owner.
func (s *TaskService) Clear(ctx context.Context, ownerID string) error {
	store, err := s.session(ctx, ownerID)
	if err != nil {
		return err
	}
	return store.Clear(ctx)
}

// ownerBackend binds the repositories to a single owner.
type ownerBackend struct {
	ownerID    string
	tasks      *repository.TaskRepository
	categories *repository.CategoryRepository
}

func (b *ownerBackend) List(ctx context.Context) ([]model.Task, error) {
	return b.tasks.ListByOwner(ctx, b.ownerID)
}

func (b *ownerBackend) Create(ctx context.Context, task model.Task) (model.Task, error) {
	task.OwnerID = b.ownerID
	if err := b.tasks.Create(ctx, &task); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

func (b *ownerBackend) Update(ctx context.Context, task model.Task) (model.Task, error) {
	task.OwnerID = b.ownerID
	if err := b.tasks.Update(ctx, &task); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

func (b *ownerBackend) Delete(ctx context.Context, id string) error {
	return b.tasks.Delete(ctx, b.ownerID, id)
}

func (b *ownerBackend) Clear(ctx context.Context) error {
	_, err := b.tasks.DeleteAll(ctx, b.ownerID)
	return err
}

func (b *ownerBackend) Categories(ctx context.Context) ([]string, error) {
	return b.categories.Names(ctx, b.ownerID)
}
