package rollout

import (
	"context"
	"errors"
	"fmt"

	"github.com/artpar/runway/internal/core/domain"
	"github.com/artpar/runway/internal/core/traffic"
	"github.com/artpar/runway/internal/shell/platform"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrInvalidTrafficTable is returned when a table fails validation.
	// No write is attempted.
	ErrInvalidTrafficTable = traffic.ErrInvalidTrafficTable

	// ErrApplyTimeout is returned when the platform does not acknowledge the
	// write, or the new routing does not become visible, within the timeout.
	ErrApplyTimeout = errors.New("traffic update timed out")

	// ErrApplyRejected is returned when the platform refuses the write.
	ErrApplyRejected = errors.New("traffic update rejected")

	// ErrConcurrentModification is returned when the service changed between
	// the catalog snapshot and the write.
	ErrConcurrentModification = errors.New("service modified concurrently")

	// ErrCatalogUnavailable is returned when the revision catalog cannot be read.
	ErrCatalogUnavailable = errors.New("revision catalog unavailable")
)

// ApplyError wraps a rollout failure with its kind and underlying cause.
type ApplyError struct {
	Op      string // Operation that failed (e.g., "Apply")
	Service string
	Table   domain.TrafficTable
	Kind    error // One of the Err* values above
	Err     error // Underlying cause, may be nil
}

func (e *ApplyError) Error() string {
	msg := fmt.Sprintf("%s %s [%s]: %v", e.Op, e.Service, e.Table, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *ApplyError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewApplyError creates a new ApplyError.
func NewApplyError(op, service string, table domain.TrafficTable, kind, err error) *ApplyError {
	return &ApplyError{
		Op:      op,
		Service: service,
		Table:   table.Clone(),
		Kind:    kind,
		Err:     err,
	}
}

// classifyWriteError maps a platform write failure to a rollout error kind.
func classifyWriteError(err error) error {
	switch {
	case errors.Is(err, platform.ErrConflict):
		return ErrConcurrentModification
	case errors.Is(err, platform.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrApplyTimeout
	default:
		return ErrApplyRejected
	}
}

// Outcome maps a rollout error to the outcome recorded for it.
func Outcome(err error) domain.RolloutOutcome {
	switch {
	case err == nil:
		return domain.OutcomeApplied
	case errors.Is(err, ErrInvalidTrafficTable), errors.Is(err, domain.ErrInvalidDirective):
		return domain.OutcomeInvalid
	case errors.Is(err, ErrConcurrentModification):
		return domain.OutcomeConflict
	case errors.Is(err, ErrApplyTimeout):
		return domain.OutcomeTimeout
	case errors.Is(err, ErrApplyRejected):
		return domain.OutcomeRejected
	default:
		return domain.OutcomeFailed
	}
}
