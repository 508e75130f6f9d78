package todo

import (
	"fmt"
	"strings"

	"todocat/internal/model"
)

// ShortIDLen is the length of the id prefix shown to users.
const ShortIDLen = 8

// ShortID is the prefix users see and type to refer to a task.
func ShortID(id string) string {
	if len(id) <= ShortIDLen {
		return id
	}
	return id[:ShortIDLen]
}

// ResolveID expands ref to the id of the single task it prefixes. An exact id
// always wins; a prefix shared by several tasks is a validation error.
func ResolveID(tasks []model.Task, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: task id required", ErrValidation)
	}
	var matches []string
	for _, task := range tasks {
		if task.ID == ref {
			return ref, nil
		}
		if strings.HasPrefix(task.ID, ref) {
			matches = append(matches, task.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: id prefix %q matches %d tasks", ErrValidation, ref, len(matches))
	}
}
