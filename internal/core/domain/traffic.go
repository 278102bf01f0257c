package domain

import (
	"fmt"
	"strings"
)

// FullTraffic is the percentage of live traffic a cutover routes to one revision.
const FullTraffic = 100

// =============================================================================
// Traffic Table
// =============================================================================

// TrafficTarget routes Percent of live traffic to a revision.
type TrafficTarget struct {
	RevisionID string `json:"revision_id" yaml:"revision_id"`
	Percent    int    `json:"percent" yaml:"percent"`
}

// TrafficTable is an ordered, percentage-weighted routing table.
// A valid table has non-negative percentages summing to exactly 100 and
// references each revision at most once.
type TrafficTable []TrafficTarget

// Cutover returns a table routing all traffic to revisionID.
func Cutover(revisionID string) TrafficTable {
	return TrafficTable{{RevisionID: revisionID, Percent: FullTraffic}}
}

// Total returns the sum of all percentages.
func (t TrafficTable) Total() int {
	total := 0
	for _, target := range t {
		total += target.Percent
	}
	return total
}

// Percent returns the percentage routed to revisionID, or 0 if absent.
func (t TrafficTable) Percent(revisionID string) int {
	for _, target := range t {
		if target.RevisionID == revisionID {
			return target.Percent
		}
	}
	return 0
}

// Contains reports whether revisionID has an entry in the table.
func (t TrafficTable) Contains(revisionID string) bool {
	for _, target := range t {
		if target.RevisionID == revisionID {
			return true
		}
	}
	return false
}

// Revisions returns the revision IDs in table order.
func (t TrafficTable) Revisions() []string {
	ids := make([]string, 0, len(t))
	for _, target := range t {
		ids = append(ids, target.RevisionID)
	}
	return ids
}

// Equal reports whether both tables hold the same entries in the same order.
func (t TrafficTable) Equal(other TrafficTable) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// SameRouting reports whether both tables route the same percentages to the
// same revisions, ignoring entry order and zero-percent entries.
func (t TrafficTable) SameRouting(other TrafficTable) bool {
	weights := make(map[string]int, len(t))
	for _, target := range t {
		if target.Percent > 0 {
			weights[target.RevisionID] += target.Percent
		}
	}
	for _, target := range other {
		if target.Percent == 0 {
			continue
		}
		weights[target.RevisionID] -= target.Percent
	}
	for _, w := range weights {
		if w != 0 {
			return false
		}
	}
	return true
}

// Clone returns a copy that does not share the backing array.
func (t TrafficTable) Clone() TrafficTable {
	if t == nil {
		return nil
	}
	clone := make(TrafficTable, len(t))
	copy(clone, t)
	return clone
}

// String renders the table as "rev=percent" pairs, e.g. "v6=50,v5=50".
func (t TrafficTable) String() string {
	parts := make([]string, 0, len(t))
	for _, target := range t {
		parts = append(parts, fmt.Sprintf("%s=%d", target.RevisionID, target.Percent))
	}
	return strings.Join(parts, ",")
}
