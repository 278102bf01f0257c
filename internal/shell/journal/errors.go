// Package journal persists an audit trail of rollout attempts.
//
// The journal is write-only from the rollout path: traffic allocation never
// reads it, so a missing or broken journal cannot change routing.
package journal

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNotFound is returned when a rollout record is not found.
	ErrNotFound = errors.New("rollout not found")

	// ErrDuplicateID is returned when recording a rollout with an existing ID.
	ErrDuplicateID = errors.New("rollout with this ID already exists")

	// ErrConnectionFailed is returned when the database connection fails.
	ErrConnectionFailed = errors.New("database connection failed")

	// ErrMigrationFailed is returned when database migration fails.
	ErrMigrationFailed = errors.New("database migration failed")

	// ErrInvalidData is returned when JSON serialization/deserialization fails.
	ErrInvalidData = errors.New("invalid data format")
)

// JournalError wraps errors with additional context.
type JournalError struct {
	Op      string // Operation that failed (e.g., "RecordRollout")
	ID      string // Rollout ID if applicable
	Message string
	Err     error
}

func (e *JournalError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s rollout %s: %s", e.Op, e.ID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *JournalError) Unwrap() error {
	return e.Err
}

// NewJournalError creates a new JournalError.
func NewJournalError(op, id, message string, err error) *JournalError {
	return &JournalError{
		Op:      op,
		ID:      id,
		Message: message,
		Err:     err,
	}
}
