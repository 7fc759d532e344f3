package library

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Storage sentinels returned by Tx implementations.
var (
	// ErrConflict is returned when an insert or update collides with an existing natural key.
	ErrConflict = errors.New("natural key conflict")
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("fragment not found")
)

// NotFoundError is returned when a fragment does not exist or belongs to another user.
type NotFoundError struct {
	Kind Kind
	ID   uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s fragment not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ConflictError is returned when an explicit create or update would duplicate
// an existing fragment's natural key.
type ConflictError struct {
	Kind Kind
	Name string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s fragment already exists: %s", e.Kind, e.Name)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// InvalidFragmentError is returned for malformed fragment input on explicit endpoints.
type InvalidFragmentError struct {
	Kind    Kind
	Message string
}

func (e *InvalidFragmentError) Error() string {
	if e.Kind == "" {
		return "invalid fragment: " + e.Message
	}
	return fmt.Sprintf("invalid %s fragment: %s", e.Kind, e.Message)
}
