// Package traffic provides pure functions for rollout traffic allocation.
//
// This package contains the functional core logic that decides how live
// traffic is split between revisions after a deployment. All functions are
// pure (no I/O, no clock, no randomness).
//
// # Functions
//
//   - Allocation: compute the desired split for a directive (Allocate)
//   - Ratio: the operator-tunable canary ratio (SplitRatio)
//   - Validation: check a table against a catalog snapshot (ValidateTable)
//
// # Usage
//
// The imperative shell (internal/shell/rollout) loads a catalog snapshot,
// allocates, then validates and applies the table through the platform.
//
//	table := traffic.Allocate(directive, catalog, ratio)
//	if err := traffic.ValidateTable(table, catalog); err != nil {
//	    return err
//	}
package traffic
