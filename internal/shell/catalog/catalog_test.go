package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/artpar/runway/internal/core/domain"
	"github.com/artpar/runway/internal/shell/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	p := platform.NewMemoryPlatform()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p.AddRevision("frontend", domain.Revision{ID: "frontend-v5", CreatedAt: base})
	p.AddRevision("frontend", domain.Revision{ID: "frontend-v6", CreatedAt: base.Add(time.Hour)})
	p.SetTraffic("frontend", domain.Cutover("frontend-v5"))

	c, err := Load(context.Background(), p, "frontend")
	require.NoError(t, err)

	assert.Equal(t, "frontend", c.Service)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "frontend-v6", c.Revisions[0].ID)
	assert.True(t, c.Has("frontend-v5"))
	assert.Equal(t, domain.Cutover("frontend-v5"), c.Traffic)
	assert.NotEmpty(t, c.Generation)
}

func TestLoad_UnknownService(t *testing.T) {
	p := platform.NewMemoryPlatform()

	_, err := Load(context.Background(), p, "missing")
	assert.ErrorIs(t, err, platform.ErrServiceNotFound)
	assert.Contains(t, err.Error(), "missing")
}

func TestSource_Snapshot_IsFresh(t *testing.T) {
	p := platform.NewMemoryPlatform()
	p.AddRevision("frontend", domain.Revision{ID: "frontend-v5"})
	src := NewSource(p, "frontend")

	first, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Len())

	p.AddRevision("frontend", domain.Revision{ID: "frontend-v6", CreatedAt: time.Now()})

	second, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, second.Len())
	assert.Equal(t, 1, first.Len(), "earlier snapshot is unchanged")
	assert.Equal(t, "frontend", src.Service())
}
