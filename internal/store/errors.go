package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record does not exist (or was deleted).
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition marks a status move outside the lifecycle table.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrMissingRequiredField marks an operation missing a field its target state needs.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrDuplicateUnit marks a property whose units share a tag.
	ErrDuplicateUnit = errors.New("duplicate unit tag")
)

// TransitionError describes a rejected status move.
type TransitionError struct {
	TaskID string
	From   TaskStatus
	To     TaskStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("task %s: invalid transition from %s to %s", e.TaskID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// FieldError names a required field that was not supplied.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("missing required field %q", e.Field)
	}
	return fmt.Sprintf("missing required field %q: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrMissingRequiredField }
