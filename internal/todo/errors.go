// Package todo holds the task collection: the store, the category registry,
// the filter engine and the persistence contract they share.
package todo

import "errors"

var (
	// ErrValidation is returned when text or category is empty after trimming,
	// or a filter value is outside its enumeration.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when an id does not exist or belongs to another owner.
	ErrNotFound = errors.New("task not found")

	// ErrUnauthorized is returned when a credential is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPersistence marks a failed load or save. It never leaves an Adapter.
	ErrPersistence = errors.New("persistence failed")
)
