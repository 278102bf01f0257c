package traffic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/runway/internal/core/domain"
)

// ErrInvalidTrafficTable is returned when a table violates the traffic
// table invariants.
var ErrInvalidTrafficTable = errors.New("invalid traffic table")

// Violation describes a single broken invariant.
type Violation struct {
	RevisionID string
	Reason     string
}

// TableError lists every violation found in a traffic table.
type TableError struct {
	Table      domain.TrafficTable
	Violations []Violation
}

func (e *TableError) Error() string {
	reasons := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.RevisionID != "" {
			reasons = append(reasons, fmt.Sprintf("%s: %s", v.RevisionID, v.Reason))
		} else {
			reasons = append(reasons, v.Reason)
		}
	}
	return fmt.Sprintf("invalid traffic table [%s]: %s", e.Table, strings.Join(reasons, "; "))
}

func (e *TableError) Unwrap() error {
	return ErrInvalidTrafficTable
}

// ValidateTable checks a traffic table against a catalog snapshot:
//   - the table is not empty
//   - every revision ID is non-empty and appears once
//   - every percentage is between 0 and 100
//   - percentages sum to exactly 100
//   - every referenced revision exists in the catalog
//
// Percentages are never clamped or corrected. Returns nil or a *TableError.
func ValidateTable(table domain.TrafficTable, catalog domain.Catalog) error {
	var violations []Violation

	if len(table) == 0 {
		violations = append(violations, Violation{Reason: "table is empty"})
	}

	seen := make(map[string]bool, len(table))
	for _, target := range table {
		if target.RevisionID == "" {
			violations = append(violations, Violation{Reason: "revision id is empty"})
			continue
		}
		if seen[target.RevisionID] {
			violations = append(violations, Violation{RevisionID: target.RevisionID, Reason: "listed more than once"})
		}
		seen[target.RevisionID] = true

		if target.Percent < 0 || target.Percent > domain.FullTraffic {
			violations = append(violations, Violation{
				RevisionID: target.RevisionID,
				Reason:     fmt.Sprintf("percent %d out of range", target.Percent),
			})
		}
		if !catalog.Has(target.RevisionID) {
			violations = append(violations, Violation{RevisionID: target.RevisionID, Reason: "revision not found"})
		}
	}

	if len(table) > 0 && table.Total() != domain.FullTraffic {
		violations = append(violations, Violation{
			Reason: fmt.Sprintf("percentages sum to %d, want %d", table.Total(), domain.FullTraffic),
		})
	}

	if len(violations) > 0 {
		return &TableError{Table: table.Clone(), Violations: violations}
	}
	return nil
}
