package engine

import (
	"errors"
	"fmt"
)

// Terminal caller-facing validation errors for move requests.
var (
	ErrInvalidIdentifier = errors.New("invalid task identifier")
	ErrInvalidPosition   = errors.New("target position must not be negative")
)

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string // "task", "column" or "board"
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// NotFound marks the error for transport-layer status mapping.
func (e NotFoundError) NotFound() {}

// WipLimitError rejects a move whose target column is at capacity. A move
// rejected this way has issued no writes.
type WipLimitError struct {
	ColumnID   string
	ColumnName string
	Limit      int
}

func (e WipLimitError) Error() string {
	return fmt.Sprintf("column %q is at its WIP limit of %d", e.ColumnName, e.Limit)
}

// ValidationError reports an invalid core task attribute.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UnknownFieldError reports a custom-field value keyed by an id the board does
// not declare.
type UnknownFieldError struct {
	FieldID string
}

func (e UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown custom field %q", e.FieldID)
}

// MissingRequiredFieldError reports a required custom field absent from the
// merged value set.
type MissingRequiredFieldError struct {
	FieldID string
	Name    string
}

func (e MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("required custom field %q is missing", e.Name)
}

// InvalidFieldValueError reports a custom-field value that failed its
// definition's type or constraint checks.
type InvalidFieldValueError struct {
	FieldID string
	Name    string
	Reason  string
}

func (e InvalidFieldValueError) Error() string {
	return fmt.Sprintf("invalid value for custom field %q: %s", e.Name, e.Reason)
}

// MoveFailedError wraps a storage failure on the reads or the primary task
// update of a move. Callers may retry; nothing is guaranteed committed.
type MoveFailedError struct {
	Err error
}

func (e *MoveFailedError) Error() string { return "failed to move task" }
func (e *MoveFailedError) Unwrap() error { return e.Err }

// PositionUpdateError wraps a storage failure on the batched position shift.
// The primary move may already be committed; the engine performs no local
// compensation beyond surfacing the error.
type PositionUpdateError struct {
	Err error
}

func (e *PositionUpdateError) Error() string { return "failed to update task positions" }
func (e *PositionUpdateError) Unwrap() error { return e.Err }

// StorageError wraps any other storage failure crossing the orchestration
// boundary. The wrapped text never reaches callers.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage operation failed: " + e.Op }
func (e *StorageError) Unwrap() error { return e.Err }

// IsTransport reports whether err is one of the retriable storage-failure
// kinds, as opposed to a terminal validation or not-found error.
func IsTransport(err error) bool {
	var mv *MoveFailedError
	var pu *PositionUpdateError
	var st *StorageError
	return errors.As(err, &mv) || errors.As(err, &pu) || errors.As(err, &st)
}
