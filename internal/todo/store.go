package todo

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"todocat/internal/model"
)

// DefaultCategory is used when a task is created without a category.
const DefaultCategory = "General"

// DefaultCategories seed the registry of a fresh store.
var DefaultCategories = []string{"Work", "Study", "Personal"}

// Mode decides when a backend mutation becomes visible in memory.
type Mode int

const (
	// Confirmed applies a change only after the backend accepted it.
	Confirmed Mode = iota
	// Optimistic applies a change first and rolls it back if the backend fails.
	Optimistic
)

func (m Mode) String() string {
	if m == Optimistic {
		return "optimistic"
	}
	return "confirmed"
}

// ParseMode accepts confirmed or optimistic. Empty means confirmed.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "confirmed":
		return Confirmed, nil
	case "optimistic":
		return Optimistic, nil
	default:
		return Confirmed, fmt.Errorf("%w: unknown mode %q", ErrValidation, raw)
	}
}

// Backend is the remote collection a store mirrors. Each call is one round
// trip and is already scoped to the store's owner.
type Backend interface {
	List(ctx context.Context) ([]model.Task, error)
	Create(ctx context.Context, task model.Task) (model.Task, error)
	Update(ctx context.Context, task model.Task) (model.Task, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// CategorySource is implemented by backends that keep their own category list.
type CategorySource interface {
	Categories(ctx context.Context) ([]string, error)
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title     *string `json:"title,omitempty"`
	Category  *string `json:"category,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// Option configures a Store.
type Option func(*Store)

// WithOwner scopes the store to a single owner.
func WithOwner(owner string) Option {
	return func(s *Store) { s.owner = owner }
}

// WithBackend mirrors a remote collection using the given mutation mode.
func WithBackend(b Backend, mode Mode) Option {
	return func(s *Store) {
		s.backend = b
		s.mode = mode
	}
}

// WithAdapter persists tasks (local stores only), categories and filters.
func WithAdapter(a Adapter) Option {
	return func(s *Store) { s.adapter = a }
}

// WithDefaultCategory overrides the fallback category.
func WithDefaultCategory(name string) Option {
	return func(s *Store) {
		if name = strings.TrimSpace(name); name != "" {
			s.defaultCategory = name
		}
	}
}

// WithDefaultCategories overrides the categories known from the start.
func WithDefaultCategories(names ...string) Option {
	return func(s *Store) { s.defaults = names }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) { s.now = fn }
}

// WithLogger sets the logger used for informational messages.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store holds the tasks of one owner, newest first.
//
// Mutations are serialized by writeMu; mu guards the collection so readers
// always observe a whole state, including an optimistic one while a round
// trip is in flight.
type Store struct {
	writeMu sync.Mutex

	mu     sync.RWMutex
	tasks  []model.Task
	filter Filter

	registry        *Registry
	defaults        []string
	defaultCategory string
	owner           string
	backend         Backend
	mode            Mode
	adapter         Adapter
	newID           func() string
	now             func() time.Time
	logger          *log.Logger
}

// NewStore returns an empty store. Call Load to read persisted state.
func NewStore(opts ...Option) *Store {
	s := &Store{
		filter:          DefaultFilter(),
		defaults:        DefaultCategories,
		defaultCategory: DefaultCategory,
		newID:           uuid.NewString,
		now:             time.Now,
		logger:          log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry = NewRegistry(s.defaults...)
	return s
}

// Load replaces the in-memory state with the persisted one. Tasks come from
// the backend when there is one, otherwise from the adapter.
func (s *Store) Load(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var tasks []model.Task
	if s.backend != nil {
		remote, err := s.backend.List(ctx)
		if err != nil {
			return fmt.Errorf("load tasks: %w", err)
		}
		tasks = remote
		if src, ok := s.backend.(CategorySource); ok {
			names, err := src.Categories(ctx)
			if err != nil {
				return fmt.Errorf("load categories: %w", err)
			}
			for _, name := range names {
				s.registry.Register(name)
			}
		}
	} else {
		tasks = LoadOr(s.adapter, KeyTasks, []model.Task(nil))
	}

	for _, name := range LoadOr(s.adapter, KeyCategories, []string(nil)) {
		s.registry.Register(name)
	}

	filter, err := LoadOr(s.adapter, KeyFilters, DefaultFilter()).Normalize()
	if err != nil {
		filter = DefaultFilter()
	}

	tasks = s.sanitize(tasks)
	// Oldest first, so categories keep the order they were first used in.
	for i := len(tasks) - 1; i >= 0; i-- {
		s.registry.Register(tasks[i].Category)
	}

	s.mu.Lock()
	s.tasks = tasks
	s.filter = filter
	s.mu.Unlock()

	s.save(KeyCategories, s.registry.Known())
	return nil
}

// sanitize drops foreign, blank and duplicate tasks and fills in missing categories.
func (s *Store) sanitize(in []model.Task) []model.Task {
	out := make([]model.Task, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, task := range in {
		if task.ID == "" || strings.TrimSpace(task.Title) == "" {
			continue
		}
		if s.owner != "" && task.OwnerID != s.owner {
			continue
		}
		if _, dup := seen[task.ID]; dup {
			continue
		}
		seen[task.ID] = struct{}{}
		task.Category = s.normalizeCategory(task.Category)
		out = append(out, task)
	}
	return out
}

// List returns every task, newest first.
func (s *Store) List() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Get returns the task with the given id.
func (s *Store) Get(id string) (model.Task, error) {
	task, _, ok := s.find(id)
	if !ok {
		return model.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return task, nil
}

// Categories returns the known categories in first-seen order.
func (s *Store) Categories() []string {
	return s.registry.Known()
}

// Filter returns the current filter state.
func (s *Store) Filter() Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// SetFilter validates and stores f.
func (s *Store) SetFilter(f Filter) error {
	f, err := f.Normalize()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
	s.save(KeyFilters, f)
	return nil
}

// Visible applies the current filter to List.
func (s *Store) Visible() []model.Task {
	return Apply(s.List(), s.Filter())
}

// Create adds a task at the top of the list.
func (s *Store) Create(ctx context.Context, text, category string) (model.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Task{}, fmt.Errorf("%w: task text is required", ErrValidation)
	}
	now := s.now()
	task := model.Task{
		ID:        s.newID(),
		OwnerID:   s.owner,
		Title:     text,
		Category:  s.normalizeCategory(category),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := s.List()
	next := make([]model.Task, 0, len(current)+1)
	next = append(next, task)
	next = append(next, current...)

	stored, err := s.commit(ctx, next, task.ID, func(ctx context.Context) (*model.Task, error) {
		created, err := s.backend.Create(ctx, task)
		return &created, err
	})
	if err != nil {
		return model.Task{}, err
	}
	s.registerCategory(stored.Category)
	s.logger.Printf("[info] task created id=%s category=%q", stored.ID, stored.Category)
	return stored, nil
}

// Update applies p to the task with the given id.
func (s *Store) Update(ctx context.Context, id string, p Patch) (model.Task, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.update(ctx, id, func(task *model.Task) error {
		if p.Title != nil {
			title := strings.TrimSpace(*p.Title)
			if title == "" {
				return fmt.Errorf("%w: task text is required", ErrValidation)
			}
			task.Title = title
		}
		if p.Category != nil {
			category := strings.TrimSpace(*p.Category)
			if category == "" {
				return fmt.Errorf("%w: category is required", ErrValidation)
			}
			task.Category = category
		}
		if p.Completed != nil {
			task.Completed = *p.Completed
		}
		return nil
	})
}

// ToggleCompleted flips the completed flag of the task with the given id.
func (s *Store) ToggleCompleted(ctx context.Context, id string) (model.Task, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.update(ctx, id, func(task *model.Task) error {
		task.Completed = !task.Completed
		return nil
	})
}

func (s *Store) update(ctx context.Context, id string, apply func(*model.Task) error) (model.Task, error) {
	current, idx, ok := s.find(id)
	if !ok {
		return model.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	changed := current
	if err := apply(&changed); err != nil {
		return model.Task{}, err
	}
	changed.UpdatedAt = s.now()

	next := s.List()
	next[idx] = changed

	stored, err := s.commit(ctx, next, changed.ID, func(ctx context.Context) (*model.Task, error) {
		updated, err := s.backend.Update(ctx, changed)
		return &updated, err
	})
	if err != nil {
		return model.Task{}, err
	}
	s.registerCategory(stored.Category)
	return stored, nil
}

// Delete removes the task with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, idx, ok := s.find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	current := s.List()
	next := make([]model.Task, 0, len(current)-1)
	next = append(next, current[:idx]...)
	next = append(next, current[idx+1:]...)

	_, err := s.commit(ctx, next, "", func(ctx context.Context) (*model.Task, error) {
		return nil, s.backend.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Printf("[info] task deleted id=%s", id)
	return nil
}

// Clear removes every task. Known categories are kept.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.commit(ctx, []model.Task{}, "", func(ctx context.Context) (*model.Task, error) {
		return nil, s.backend.Clear(ctx)
	})
	if err != nil {
		return err
	}
	s.logger.Printf("[info] tasks cleared owner=%q", s.owner)
	return nil
}

// commit makes next the current collection. With a backend, round is called
// and, in confirmed mode, next only becomes visible once it succeeds; in
// optimistic mode next is visible immediately and the previous collection is
// restored if round fails. A task returned by round replaces the task with
// the given id. commit returns the stored version of that task.
func (s *Store) commit(ctx context.Context, next []model.Task, id string, round func(context.Context) (*model.Task, error)) (model.Task, error) {
	if s.backend == nil {
		s.swap(next)
		s.save(KeyTasks, next)
		return lookup(next, id), nil
	}

	var previous []model.Task
	if s.mode == Optimistic {
		previous = s.swap(next)
	}
	remote, err := round(ctx)
	if err != nil {
		if s.mode == Optimistic {
			s.swap(previous)
			s.logger.Printf("[warn] rolled back optimistic change: %v", err)
		}
		return model.Task{}, err
	}
	if remote != nil && id != "" {
		reconciled := make([]model.Task, len(next))
		copy(reconciled, next)
		for i := range reconciled {
			if reconciled[i].ID == id {
				reconciled[i] = *remote
				break
			}
		}
		next, id = reconciled, remote.ID
	}
	s.swap(next)
	return lookup(next, id), nil
}

func (s *Store) swap(next []model.Task) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.tasks
	s.tasks = next
	return previous
}

func (s *Store) find(id string) (model.Task, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, task := range s.tasks {
		if task.ID != id {
			continue
		}
		if s.owner != "" && task.OwnerID != s.owner {
			return model.Task{}, -1, false
		}
		return task, i, true
	}
	return model.Task{}, -1, false
}

func (s *Store) registerCategory(name string) {
	if s.registry.Register(name) {
		s.save(KeyCategories, s.registry.Known())
	}
}

func (s *Store) normalizeCategory(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return s.defaultCategory
	}
	return name
}

func (s *Store) save(key string, value any) {
	if s.adapter != nil {
		s.adapter.Save(key, value)
	}
}

func lookup(tasks []model.Task, id string) model.Task {
	for _, task := range tasks {
		if task.ID == id {
			return task
		}
	}
	return model.Task{}
}
