package traffic

import (
	"errors"
	"fmt"

	"github.com/artpar/runway/internal/core/domain"
)

// ErrInvalidSplitRatio is returned for ratios that cannot produce a split.
var ErrInvalidSplitRatio = errors.New("invalid split ratio")

// SplitRatio weights the latest and pinned revisions during a canary hold.
// The pinned revision receives floor(100 * PinnedWeight / total) percent and
// the latest revision receives the remainder.
type SplitRatio struct {
	LatestWeight int `mapstructure:"latest_weight" validate:"gte=0,lte=10000"`
	PinnedWeight int `mapstructure:"pinned_weight" validate:"gte=0,lte=10000"`
}

// MaxWeight bounds each weight so the percentage arithmetic cannot overflow.
const MaxWeight = 10000

// DefaultSplitRatio returns the even 1:1 split.
func DefaultSplitRatio() SplitRatio {
	return SplitRatio{LatestWeight: 1, PinnedWeight: 1}
}

// Validate checks that both weights are within 0..MaxWeight and not both zero.
func (r SplitRatio) Validate() error {
	if r.LatestWeight < 0 || r.PinnedWeight < 0 {
		return fmt.Errorf("%w: weights must be non-negative (latest=%d, pinned=%d)",
			ErrInvalidSplitRatio, r.LatestWeight, r.PinnedWeight)
	}
	if r.LatestWeight > MaxWeight || r.PinnedWeight > MaxWeight {
		return fmt.Errorf("%w: weights must not exceed %d (latest=%d, pinned=%d)",
			ErrInvalidSplitRatio, MaxWeight, r.LatestWeight, r.PinnedWeight)
	}
	if r.LatestWeight+r.PinnedWeight == 0 {
		return fmt.Errorf("%w: weights must not both be zero", ErrInvalidSplitRatio)
	}
	return nil
}

// Percentages returns the integer percentages for the latest and pinned
// revisions. Rounding favors the latest revision. An invalid ratio falls back
// to the default even split.
//
// Example:
//
//	SplitRatio{1, 1}.Percentages() // returns 50, 50
//	SplitRatio{2, 1}.Percentages() // returns 67, 33
func (r SplitRatio) Percentages() (latest, pinned int) {
	if r.Validate() != nil {
		r = DefaultSplitRatio()
	}
	pinned = domain.FullTraffic * r.PinnedWeight / (r.LatestWeight + r.PinnedWeight)
	return domain.FullTraffic - pinned, pinned
}

// String renders the ratio as "latest:pinned".
func (r SplitRatio) String() string {
	return fmt.Sprintf("%d:%d", r.LatestWeight, r.PinnedWeight)
}
