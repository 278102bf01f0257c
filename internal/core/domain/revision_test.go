package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRevision_Newer(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		r     Revision
		other Revision
		want  bool
	}{
		{
			name:  "created later",
			r:     Revision{ID: "a", CreatedAt: base.Add(time.Second)},
			other: Revision{ID: "b", CreatedAt: base},
			want:  true,
		},
		{
			name:  "created earlier",
			r:     Revision{ID: "b", CreatedAt: base},
			other: Revision{ID: "a", CreatedAt: base.Add(time.Second)},
			want:  false,
		},
		{
			name:  "same instant orders by id",
			r:     Revision{ID: "svc-v2", CreatedAt: base},
			other: Revision{ID: "svc-v1", CreatedAt: base},
			want:  true,
		},
		{
			name:  "same revision",
			r:     Revision{ID: "svc-v1", CreatedAt: base},
			other: Revision{ID: "svc-v1", CreatedAt: base},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Newer(tt.other))
		})
	}
}

func TestSortNewestFirst_ReturnsCopy(t *testing.T) {
	revs := testRevisions()

	sorted := SortNewestFirst(revs)

	assert.Equal(t, []string{"svc-v6", "svc-v5", "svc-v4"}, []string{sorted[0].ID, sorted[1].ID, sorted[2].ID})
	assert.Equal(t, "svc-v4", revs[0].ID, "input order unchanged")
	assert.Empty(t, SortNewestFirst(nil))
}
