package journal

import (
	"context"

	"github.com/artpar/runway/internal/core/domain"
)

// =============================================================================
// Journal Interface
// =============================================================================

// Journal records rollout attempts and lists them for operators.
type Journal interface {
	RecordRollout(ctx context.Context, record *domain.RolloutRecord) error
	GetRollout(ctx context.Context, id string) (*domain.RolloutRecord, error)
	ListRollouts(ctx context.Context, service string, opts ListOptions) ([]domain.RolloutRecord, error)
	Close() error
}

// =============================================================================
// List Options
// =============================================================================

// ListOptions defines pagination and filtering options.
type ListOptions struct {
	Limit   int
	Offset  int
	Outcome domain.RolloutOutcome // empty matches every outcome
}

// DefaultListOptions returns default list options.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:  20,
		Offset: 0,
	}
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
