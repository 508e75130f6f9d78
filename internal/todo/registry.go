package todo

import (
	"strings"
	"sync"
)

// Registry keeps the known categories in first-seen order.
//
// Categories are retained: once registered a name stays known even after the
// last task using it is deleted or the list is cleared. Matching is exact and
// case-sensitive.
type Registry struct {
	mu    sync.RWMutex
	names []string
	seen  map[string]struct{}
}

// NewRegistry returns a registry seeded with defaults.
func NewRegistry(defaults ...string) *Registry {
	r := &Registry{seen: make(map[string]struct{})}
	for _, name := range defaults {
		r.Register(name)
	}
	return r
}

// Register adds name if it is not known yet. It reports whether name was new.
// Blank names are ignored.
func (r *Registry) Register(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[name]; ok {
		return false
	}
	r.seen[name] = struct{}{}
	r.names = append(r.names, name)
	return true
}

// Contains reports whether name is known.
func (r *Registry) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.seen[strings.TrimSpace(name)]
	return ok
}

// Known returns a copy of the known categories.
func (r *Registry) Known() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
