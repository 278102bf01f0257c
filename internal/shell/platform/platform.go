// Package platform provides access to the serving platform's management API:
// listing revisions, reading live traffic and submitting traffic tables.
package platform

import (
	"context"

	"github.com/artpar/runway/internal/core/domain"
)

// =============================================================================
// Platform Interface
// =============================================================================

// Platform is the narrow capability the rollout shell needs from the serving
// platform.
type Platform interface {
	// Revisions lists the revisions of a service.
	Revisions(ctx context.Context, service string) ([]domain.Revision, error)

	// Traffic returns the live traffic table and the service generation.
	Traffic(ctx context.Context, service string) (domain.TrafficTable, string, error)

	// UpdateTraffic replaces the service's traffic configuration with table.
	// The write is refused with ErrConflict when the service generation no
	// longer matches generation. An empty generation skips the check.
	UpdateTraffic(ctx context.Context, service string, table domain.TrafficTable, generation string) error
}
