package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Rollout Outcome
// =============================================================================

// RolloutOutcome is the result of one deployment's traffic rollout.
type RolloutOutcome string

const (
	OutcomeApplied  RolloutOutcome = "applied"
	OutcomePlanned  RolloutOutcome = "planned"
	OutcomeInvalid  RolloutOutcome = "invalid"
	OutcomeRejected RolloutOutcome = "rejected"
	OutcomeTimeout  RolloutOutcome = "timeout"
	OutcomeConflict RolloutOutcome = "conflict"
	OutcomeFailed   RolloutOutcome = "failed"
)

// IsValid checks if the outcome is one of the known values.
func (o RolloutOutcome) IsValid() bool {
	switch o {
	case OutcomeApplied, OutcomePlanned, OutcomeInvalid, OutcomeRejected,
		OutcomeTimeout, OutcomeConflict, OutcomeFailed:
		return true
	default:
		return false
	}
}

// Succeeded reports whether the rollout left the intended routing in place.
func (o RolloutOutcome) Succeeded() bool {
	return o == OutcomeApplied || o == OutcomePlanned
}

// =============================================================================
// Rollout Record
// =============================================================================

// RolloutRecord is an audit entry for one rollout attempt. Records are
// written after the fact and never read back by traffic allocation.
type RolloutRecord struct {
	ID               string         `json:"id" yaml:"id"`
	Service          string         `json:"service" yaml:"service"`
	LatestRevisionID string         `json:"latest_revision" yaml:"latest_revision"`
	PinnedRevisionID string         `json:"pinned_revision,omitempty" yaml:"pinned_revision,omitempty"`
	Traffic          TrafficTable   `json:"traffic" yaml:"traffic"`
	Previous         TrafficTable   `json:"previous,omitempty" yaml:"previous,omitempty"`
	Outcome          RolloutOutcome `json:"outcome" yaml:"outcome"`
	ErrorMessage     string         `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	CreatedAt        time.Time      `json:"created_at" yaml:"created_at"`
}

// NewRolloutRecord creates a record for a directive with a fresh ID.
func NewRolloutRecord(service string, d RolloutDirective, at time.Time) *RolloutRecord {
	return &RolloutRecord{
		ID:               uuid.New().String(),
		Service:          service,
		LatestRevisionID: d.LatestRevisionID,
		PinnedRevisionID: d.PinnedRevisionID,
		CreatedAt:        at.UTC(),
	}
}
