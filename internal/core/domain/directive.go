package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDirective is returned when a rollout directive has no latest revision.
var ErrInvalidDirective = errors.New("invalid rollout directive")

// RolloutDirective is the input of a single traffic allocation. It is built
// fresh for every deployment and never persisted.
type RolloutDirective struct {
	// LatestRevisionID is the revision produced by the deployment.
	LatestRevisionID string

	// PinnedRevisionID is an optional operator-chosen revision that keeps
	// receiving traffic, e.g. during a manual canary hold.
	PinnedRevisionID string
}

// NewRolloutDirective builds a directive, trimming surrounding whitespace.
// An empty latest revision is a caller error and yields ErrInvalidDirective.
func NewRolloutDirective(latestRevisionID, pinnedRevisionID string) (RolloutDirective, error) {
	latest := strings.TrimSpace(latestRevisionID)
	if latest == "" {
		return RolloutDirective{}, fmt.Errorf("%w: latest revision is required", ErrInvalidDirective)
	}
	return RolloutDirective{
		LatestRevisionID: latest,
		PinnedRevisionID: strings.TrimSpace(pinnedRevisionID),
	}, nil
}

// HasPin reports whether the directive carries a pinned revision distinct
// from the latest one.
func (d RolloutDirective) HasPin() bool {
	return d.PinnedRevisionID != "" && d.PinnedRevisionID != d.LatestRevisionID
}
