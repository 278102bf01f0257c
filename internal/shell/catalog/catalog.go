// Package catalog builds revision catalog snapshots from the serving platform.
// This is part of the Imperative Shell - it performs the reads the pure
// traffic allocator needs.
package catalog

import (
	"context"
	"fmt"

	"github.com/artpar/runway/internal/core/domain"
	"github.com/artpar/runway/internal/shell/platform"
)

// Load reads the revisions and live traffic of a service and returns them as
// an immutable snapshot. The live traffic is read first so the snapshot's
// generation is never newer than its revision list.
func Load(ctx context.Context, p platform.Platform, service string) (domain.Catalog, error) {
	live, generation, err := p.Traffic(ctx, service)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("failed to read traffic for %s: %w", service, err)
	}

	revs, err := p.Revisions(ctx, service)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("failed to list revisions for %s: %w", service, err)
	}

	return domain.NewCatalog(service, generation, revs, live), nil
}

// Source loads catalog snapshots for a single service.
type Source struct {
	platform platform.Platform
	service  string
}

// NewSource creates a catalog source bound to a service.
func NewSource(p platform.Platform, service string) *Source {
	return &Source{platform: p, service: service}
}

// Snapshot loads a fresh catalog snapshot.
func (s *Source) Snapshot(ctx context.Context) (domain.Catalog, error) {
	return Load(ctx, s.platform, s.service)
}

// Service returns the service name the source is bound to.
func (s *Source) Service() string {
	return s.service
}
