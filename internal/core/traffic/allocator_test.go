package traffic

import (
	"fmt"
	"testing"
	"time"

	"github.com/artpar/runway/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func testCatalog(ids ...string) domain.Catalog {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	revs := make([]domain.Revision, 0, len(ids))
	for i, id := range ids {
		revs = append(revs, domain.Revision{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Minute), Ready: true})
	}
	return domain.NewCatalog("frontend", "1", revs, nil)
}

func directive(latest, pinned string) domain.RolloutDirective {
	return domain.RolloutDirective{LatestRevisionID: latest, PinnedRevisionID: pinned}
}

// =============================================================================
// Allocate Tests
// =============================================================================

func TestAllocate_NoPin_FullCutover(t *testing.T) {
	catalog := testCatalog("v1", "v2", "v3")

	for _, id := range []string{"v1", "v2", "v3", "unknown"} {
		table := Allocate(directive(id, ""), catalog, DefaultSplitRatio())
		assert.Equal(t, domain.Cutover(id), table, "latest=%s", id)
	}
}

func TestAllocate_PinEqualsLatest_FullCutover(t *testing.T) {
	catalog := testCatalog("v1", "v2", "v3")

	for _, id := range []string{"v1", "v2", "v3"} {
		table := Allocate(directive(id, id), catalog, DefaultSplitRatio())
		assert.Equal(t, domain.Cutover(id), table, "latest=pinned=%s", id)
	}
}

func TestAllocate_PinNotInCatalog_FullCutover(t *testing.T) {
	catalog := testCatalog("v5", "v6", "v7")

	table := Allocate(directive("v7", "v9"), catalog, DefaultSplitRatio())

	assert.Equal(t, domain.TrafficTable{{RevisionID: "v7", Percent: 100}}, table)
}

func TestAllocate_PinHeld_EvenSplit(t *testing.T) {
	catalog := testCatalog("v5", "v6")

	table := Allocate(directive("v6", "v5"), catalog, DefaultSplitRatio())

	assert.Equal(t, domain.TrafficTable{
		{RevisionID: "v6", Percent: 50},
		{RevisionID: "v5", Percent: 50},
	}, table)
}

func TestAllocate_DistinctExistingRevisions_Properties(t *testing.T) {
	ids := []string{"r1", "r2", "r3", "r4", "r5"}
	catalog := testCatalog(ids...)

	for _, latest := range ids {
		for _, pinned := range ids {
			if latest == pinned {
				continue
			}
			t.Run(fmt.Sprintf("%s_pin_%s", latest, pinned), func(t *testing.T) {
				table := Allocate(directive(latest, pinned), catalog, DefaultSplitRatio())

				require.Len(t, table, 2)
				assert.Equal(t, latest, table[0].RevisionID)
				assert.Equal(t, pinned, table[1].RevisionID)
				assert.Equal(t, 100, table.Total())
				assert.GreaterOrEqual(t, table[0].Percent, table[1].Percent)
				assert.NoError(t, ValidateTable(table, catalog))
			})
		}
	}
}

func TestAllocate_RoundingFavorsLatest(t *testing.T) {
	catalog := testCatalog("v5", "v6")

	tests := []struct {
		name       string
		ratio      SplitRatio
		wantLatest int
		wantPinned int
	}{
		{name: "even", ratio: SplitRatio{1, 1}, wantLatest: 50, wantPinned: 50},
		{name: "two to one", ratio: SplitRatio{2, 1}, wantLatest: 67, wantPinned: 33},
		{name: "one to two", ratio: SplitRatio{1, 2}, wantLatest: 34, wantPinned: 66},
		{name: "one to two hundred", ratio: SplitRatio{1, 199}, wantLatest: 1, wantPinned: 99},
		{name: "ninety ten", ratio: SplitRatio{9, 1}, wantLatest: 90, wantPinned: 10},
		{name: "pinned zero weight", ratio: SplitRatio{1, 0}, wantLatest: 100, wantPinned: 0},
		{name: "latest zero weight", ratio: SplitRatio{0, 1}, wantLatest: 0, wantPinned: 100},
		{name: "invalid ratio falls back to even", ratio: SplitRatio{0, 0}, wantLatest: 50, wantPinned: 50},
		{name: "negative ratio falls back to even", ratio: SplitRatio{-1, 3}, wantLatest: 50, wantPinned: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Allocate(directive("v6", "v5"), catalog, tt.ratio)

			require.Len(t, table, 2)
			assert.Equal(t, tt.wantLatest, table.Percent("v6"))
			assert.Equal(t, tt.wantPinned, table.Percent("v5"))
			assert.Equal(t, 100, table.Total())
		})
	}
}

func TestAllocate_Deterministic(t *testing.T) {
	catalog := testCatalog("v5", "v6")
	d := directive("v6", "v5")
	ratio := SplitRatio{3, 1}

	first := Allocate(d, catalog, ratio)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Allocate(d, catalog, ratio))
	}
}

func TestAllocate_ReturnsFreshTable(t *testing.T) {
	catalog := testCatalog("v5", "v6")
	d := directive("v6", "v5")

	first := Allocate(d, catalog, DefaultSplitRatio())
	first[0].Percent = 1

	second := Allocate(d, catalog, DefaultSplitRatio())
	assert.Equal(t, 50, second[0].Percent)
}

// =============================================================================
// Explain Tests
// =============================================================================

func TestExplain(t *testing.T) {
	catalog := testCatalog("v5", "v6")

	tests := []struct {
		name string
		d    domain.RolloutDirective
		want Decision
	}{
		{name: "no pin", d: directive("v6", ""), want: DecisionCutover},
		{name: "pin equals latest", d: directive("v6", "v6"), want: DecisionPinIgnored},
		{name: "pin missing", d: directive("v6", "v9"), want: DecisionPinMissing},
		{name: "pin held", d: directive("v6", "v5"), want: DecisionPinHeld},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Explain(tt.d, catalog))
		})
	}
}
