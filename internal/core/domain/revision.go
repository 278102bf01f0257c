// Package domain contains the core rollout types: revisions, traffic tables,
// rollout directives and revision catalog snapshots.
// This is part of the Functional Core - all functions are pure with no I/O.
package domain

import (
	"sort"
	"time"
)

// =============================================================================
// Revision
// =============================================================================

// Revision is an immutable, independently addressable deployed version of a
// service. Revisions are created and garbage-collected by the serving platform.
type Revision struct {
	ID        string    `json:"id" yaml:"id"`
	Label     string    `json:"label,omitempty" yaml:"label,omitempty"`
	Service   string    `json:"service,omitempty" yaml:"service,omitempty"`
	Image     string    `json:"image,omitempty" yaml:"image,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Ready     bool      `json:"ready" yaml:"ready"`
}

// Newer reports whether r was created after other.
// Revisions created at the same instant are ordered by ID.
func (r Revision) Newer(other Revision) bool {
	if r.CreatedAt.Equal(other.CreatedAt) {
		return r.ID > other.ID
	}
	return r.CreatedAt.After(other.CreatedAt)
}

// SortNewestFirst returns a copy of revs ordered newest first.
func SortNewestFirst(revs []Revision) []Revision {
	sorted := make([]Revision, len(revs))
	copy(sorted, revs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Newer(sorted[j])
	})
	return sorted
}
