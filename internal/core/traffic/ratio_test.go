package traffic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitRatio_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ratio   SplitRatio
		wantErr bool
	}{
		{name: "default", ratio: DefaultSplitRatio()},
		{name: "uneven", ratio: SplitRatio{LatestWeight: 9, PinnedWeight: 1}},
		{name: "pinned zero", ratio: SplitRatio{LatestWeight: 1}},
		{name: "both zero", ratio: SplitRatio{}, wantErr: true},
		{name: "negative latest", ratio: SplitRatio{LatestWeight: -1, PinnedWeight: 1}, wantErr: true},
		{name: "negative pinned", ratio: SplitRatio{LatestWeight: 1, PinnedWeight: -5}, wantErr: true},
		{name: "at max", ratio: SplitRatio{LatestWeight: MaxWeight, PinnedWeight: MaxWeight}},
		{name: "latest above max", ratio: SplitRatio{LatestWeight: MaxWeight + 1, PinnedWeight: 1}, wantErr: true},
		{name: "huge weights", ratio: SplitRatio{LatestWeight: math.MaxInt / 3, PinnedWeight: math.MaxInt / 3}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ratio.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSplitRatio)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplitRatio_PercentagesAlwaysSumTo100(t *testing.T) {
	for latest := 0; latest <= 12; latest++ {
		for pinned := 0; pinned <= 12; pinned++ {
			l, p := SplitRatio{LatestWeight: latest, PinnedWeight: pinned}.Percentages()
			assert.Equal(t, 100, l+p, "ratio %d:%d", latest, pinned)
			assert.GreaterOrEqual(t, p, 0)
			assert.GreaterOrEqual(t, l, 0)
		}
	}
}

func TestSplitRatio_PercentagesHugeWeightsFallBackToDefault(t *testing.T) {
	l, p := SplitRatio{LatestWeight: math.MaxInt / 3, PinnedWeight: math.MaxInt / 3}.Percentages()
	assert.Equal(t, 50, l)
	assert.Equal(t, 50, p)

	l, p = SplitRatio{LatestWeight: MaxWeight, PinnedWeight: 1}.Percentages()
	assert.Equal(t, 100, l+p)
	assert.GreaterOrEqual(t, p, 0)
}

func TestSplitRatio_String(t *testing.T) {
	assert.Equal(t, "1:1", DefaultSplitRatio().String())
	assert.Equal(t, "3:1", SplitRatio{LatestWeight: 3, PinnedWeight: 1}.String())
}
