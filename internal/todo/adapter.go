package todo

// Storage keys of the local layout.
const (
	KeyTasks      = "tasks"
	KeyCategories = "categories"
	KeyFilters    = "filters"
)

// Adapter loads and saves JSON-serializable values by key.
//
// Both operations fail soft: Load reports false and leaves dst untouched on any
// access or decode error, Save drops (and may log) failed writes.
type Adapter interface {
	Load(key string, dst any) bool
	Save(key string, value any)
}

// LoadOr returns the value stored under key, or fallback.
func LoadOr[T any](a Adapter, key string, fallback T) T {
	if a == nil {
		return fallback
	}
	var v T
	if !a.Load(key, &v) {
		return fallback
	}
	return v
}
