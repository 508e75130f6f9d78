package todo

import (
	"fmt"
	"strings"

	"todocat/internal/model"
)

// Status selects tasks by completion.
type Status string

const (
	StatusAll       Status = "all"
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
)

// AnyCategory is the category filter that lets every task through.
// Task categories are never blank, so it cannot collide with a real one.
const AnyCategory = ""

// ParseStatus accepts all, completed or pending (case-insensitive).
// An empty string means all.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusPending:
		return StatusPending, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
	}
}

// Filter is the pair of category and status selections.
type Filter struct {
	Category string `json:"categoryFilter"`
	Status   Status `json:"statusFilter"`
}

// DefaultFilter shows everything.
func DefaultFilter() Filter {
	return Filter{Category: AnyCategory, Status: StatusAll}
}

// Normalize trims the category and validates the status.
func (f Filter) Normalize() (Filter, error) {
	status, err := ParseStatus(string(f.Status))
	if err != nil {
		return Filter{}, err
	}
	return Filter{Category: strings.TrimSpace(f.Category), Status: status}, nil
}

// Match reports whether task passes both predicates.
func (f Filter) Match(task model.Task) bool {
	if f.Category != AnyCategory && task.Category != f.Category {
		return false
	}
	switch f.Status {
	case StatusCompleted:
		return task.Completed
	case StatusPending:
		return !task.Completed
	default:
		return true
	}
}

// Apply returns the tasks matching f in their input order. tasks is not modified.
func Apply(tasks []model.Task, f Filter) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if f.Match(task) {
			out = append(out, task)
		}
	}
	return out
}
