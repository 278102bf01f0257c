package platform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/runway/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func seededMemory(t *testing.T) *MemoryPlatform {
	t.Helper()
	p := NewMemoryPlatform()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p.AddRevision("frontend", domain.Revision{ID: "frontend-v5", CreatedAt: base, Ready: true})
	p.AddRevision("frontend", domain.Revision{ID: "frontend-v6", CreatedAt: base.Add(time.Hour), Ready: true})
	p.SetTraffic("frontend", domain.Cutover("frontend-v5"))
	return p
}

// =============================================================================
// MemoryPlatform Tests
// =============================================================================

func TestMemoryPlatform_Revisions(t *testing.T) {
	p := seededMemory(t)

	revs, err := p.Revisions(context.Background(), "frontend")
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, "frontend", revs[0].Service)
}

func TestMemoryPlatform_UnknownService(t *testing.T) {
	p := NewMemoryPlatform()
	ctx := context.Background()

	_, err := p.Revisions(ctx, "missing")
	assert.ErrorIs(t, err, ErrServiceNotFound)

	_, _, err = p.Traffic(ctx, "missing")
	assert.ErrorIs(t, err, ErrServiceNotFound)

	err = p.UpdateTraffic(ctx, "missing", domain.Cutover("x"), "")
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestMemoryPlatform_UpdateTraffic(t *testing.T) {
	p := seededMemory(t)
	ctx := context.Background()

	_, gen, err := p.Traffic(ctx, "frontend")
	require.NoError(t, err)

	table := domain.TrafficTable{
		{RevisionID: "frontend-v6", Percent: 50},
		{RevisionID: "frontend-v5", Percent: 50},
	}
	require.NoError(t, p.UpdateTraffic(ctx, "frontend", table, gen))

	live, newGen, err := p.Traffic(ctx, "frontend")
	require.NoError(t, err)
	assert.Equal(t, table, live)
	assert.NotEqual(t, gen, newGen)
	assert.Equal(t, 1, p.Writes("frontend"))
}

func TestMemoryPlatform_UpdateTraffic_StaleGeneration(t *testing.T) {
	p := seededMemory(t)
	ctx := context.Background()

	_, gen, err := p.Traffic(ctx, "frontend")
	require.NoError(t, err)
	p.BumpGeneration("frontend")

	err = p.UpdateTraffic(ctx, "frontend", domain.Cutover("frontend-v6"), gen)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 0, p.Writes("frontend"))
}

func TestMemoryPlatform_UpdateTraffic_UnknownRevision(t *testing.T) {
	p := seededMemory(t)

	err := p.UpdateTraffic(context.Background(), "frontend", domain.Cutover("frontend-v9"), "")
	assert.ErrorIs(t, err, ErrRejected)

	live, _, _ := p.Traffic(context.Background(), "frontend")
	assert.Equal(t, domain.Cutover("frontend-v5"), live)
}

func TestMemoryPlatform_FailNextUpdate(t *testing.T) {
	p := seededMemory(t)
	injected := errors.New("boom")
	p.FailNextUpdate(injected)

	err := p.UpdateTraffic(context.Background(), "frontend", domain.Cutover("frontend-v6"), "")
	assert.ErrorIs(t, err, injected)
	assert.Equal(t, 0, p.Writes("frontend"))

	err = p.UpdateTraffic(context.Background(), "frontend", domain.Cutover("frontend-v6"), "")
	assert.NoError(t, err)
}

func TestMemoryPlatform_VisibilityLag(t *testing.T) {
	p := seededMemory(t)
	p.SetVisibilityLag("frontend", 2)
	ctx := context.Background()

	require.NoError(t, p.UpdateTraffic(ctx, "frontend", domain.Cutover("frontend-v6"), ""))

	for i := 0; i < 2; i++ {
		live, _, err := p.Traffic(ctx, "frontend")
		require.NoError(t, err)
		assert.Equal(t, domain.Cutover("frontend-v5"), live, "read %d", i)
	}

	live, _, err := p.Traffic(ctx, "frontend")
	require.NoError(t, err)
	assert.Equal(t, domain.Cutover("frontend-v6"), live)
}

func TestMemoryPlatform_CancelledContext(t *testing.T) {
	p := seededMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.UpdateTraffic(ctx, "frontend", domain.Cutover("frontend-v6"), "")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 0, p.Writes("frontend"))
}

func TestMemoryPlatform_RemoveRevision(t *testing.T) {
	p := seededMemory(t)
	p.RemoveRevision("frontend", "frontend-v5")

	revs, err := p.Revisions(context.Background(), "frontend")
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, "frontend-v6", revs[0].ID)
}

// =============================================================================
// Fixture Tests
// =============================================================================

const fixtureYAML = `
services:
  - name: frontend
    generation: 4
    revisions:
      - id: frontend-v5
        created_at: 2024-03-01T12:00:00Z
        ready: true
      - id: frontend-v6
        created_at: 2024-03-02T12:00:00Z
        ready: true
    traffic:
      - revision_id: frontend-v5
        percent: 100
`

func TestLoadMemoryFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0644))

	p, err := LoadMemoryFixture(path)
	require.NoError(t, err)

	revs, err := p.Revisions(context.Background(), "frontend")
	require.NoError(t, err)
	assert.Len(t, revs, 2)

	live, gen, err := p.Traffic(context.Background(), "frontend")
	require.NoError(t, err)
	assert.Equal(t, domain.Cutover("frontend-v5"), live)
	assert.Equal(t, "4", gen)
}

func TestParseMemoryFixture_Invalid(t *testing.T) {
	_, err := ParseMemoryFixture([]byte("services: [{generation: 1}]"))
	assert.Error(t, err)

	_, err = ParseMemoryFixture([]byte("services: {"))
	assert.Error(t, err)

	_, err = LoadMemoryFixture("/nonexistent/fixture.yaml")
	assert.Error(t, err)
}
