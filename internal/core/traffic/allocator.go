package traffic

import "github.com/artpar/runway/internal/core/domain"

// =============================================================================
// Traffic Allocation
// =============================================================================

// Allocate computes the traffic table for a deployment.
//
// The pinned revision keeps receiving traffic only when it is set, differs
// from the latest revision and exists in the catalog. Otherwise all traffic
// cuts over to the latest revision: a stale or removed pin never blocks an
// ordinary deploy.
//
// Allocate is total and deterministic. Directive validation (a non-empty
// latest revision) happens in domain.NewRolloutDirective.
//
// Example:
//
//	Allocate(RolloutDirective{"v5", ""}, c, DefaultSplitRatio())   // [(v5,100)]
//	Allocate(RolloutDirective{"v6", "v5"}, c, DefaultSplitRatio()) // [(v6,50),(v5,50)]
//	Allocate(RolloutDirective{"v7", "v9"}, c, DefaultSplitRatio()) // [(v7,100)] when v9 is unknown
func Allocate(d domain.RolloutDirective, catalog domain.Catalog, ratio SplitRatio) domain.TrafficTable {
	if !d.HasPin() || !catalog.Has(d.PinnedRevisionID) {
		return domain.Cutover(d.LatestRevisionID)
	}

	latest, pinned := ratio.Percentages()
	return domain.TrafficTable{
		{RevisionID: d.LatestRevisionID, Percent: latest},
		{RevisionID: d.PinnedRevisionID, Percent: pinned},
	}
}

// Decision describes which allocation rule applied, for logging.
type Decision string

const (
	DecisionCutover    Decision = "cutover"
	DecisionPinHeld    Decision = "pin_held"
	DecisionPinIgnored Decision = "pin_ignored"
	DecisionPinMissing Decision = "pin_missing"
)

// Explain reports which rule Allocate applies for the directive.
func Explain(d domain.RolloutDirective, catalog domain.Catalog) Decision {
	switch {
	case d.PinnedRevisionID == "":
		return DecisionCutover
	case d.PinnedRevisionID == d.LatestRevisionID:
		return DecisionPinIgnored
	case !catalog.Has(d.PinnedRevisionID):
		return DecisionPinMissing
	default:
		return DecisionPinHeld
	}
}
