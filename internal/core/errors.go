package core

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinels matched by the typed errors below, for use with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence error")
)

// ValidationError reports an input that violates a field constraint.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a reference to an entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// PersistenceError wraps a failure of the underlying storage.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewCardNotFound builds the NotFoundError for a card id.
func NewCardNotFound(id uuid.UUID) error {
	return &NotFoundError{Entity: "card", ID: id}
}

// NewTransactionNotFound builds the NotFoundError for a transaction id.
func NewTransactionNotFound(id uuid.UUID) error {
	return &NotFoundError{Entity: "transaction", ID: id}
}

// ErrorType classifies err for logs and API responses.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found_error"
	case errors.Is(err, ErrPersistence):
		return "database_error"
	default:
		return "internal_error"
	}
}
