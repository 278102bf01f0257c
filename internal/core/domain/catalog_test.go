package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRevisions() []Revision {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []Revision{
		{ID: "svc-v4", CreatedAt: base, Ready: true},
		{ID: "svc-v6", CreatedAt: base.Add(2 * time.Hour), Ready: true},
		{ID: "svc-v5", CreatedAt: base.Add(time.Hour), Ready: true},
	}
}

func TestNewCatalog_OrdersNewestFirst(t *testing.T) {
	c := NewCatalog("svc", "7", testRevisions(), Cutover("svc-v5"))

	require.Equal(t, 3, c.Len())
	assert.Equal(t, "svc-v6", c.Revisions[0].ID)
	assert.Equal(t, "svc-v5", c.Revisions[1].ID)
	assert.Equal(t, "svc-v4", c.Revisions[2].ID)

	latest, ok := c.Latest()
	require.True(t, ok)
	assert.Equal(t, "svc-v6", latest.ID)
	assert.Equal(t, "7", c.Generation)
}

func TestNewCatalog_DoesNotAliasInputs(t *testing.T) {
	revs := testRevisions()
	live := Cutover("svc-v5")

	c := NewCatalog("svc", "1", revs, live)
	revs[0].ID = "changed"
	live[0].Percent = 1

	assert.True(t, c.Has("svc-v4"))
	assert.Equal(t, 100, c.Traffic.Percent("svc-v5"))
}

func TestCatalog_HasAndGet(t *testing.T) {
	c := NewCatalog("svc", "1", testRevisions(), nil)

	assert.True(t, c.Has("svc-v5"))
	assert.False(t, c.Has("svc-v9"))
	assert.False(t, c.Has(""))

	rev, ok := c.Get("svc-v4")
	require.True(t, ok)
	assert.Equal(t, "svc-v4", rev.ID)
}

func TestCatalog_LatestEmpty(t *testing.T) {
	_, ok := Catalog{}.Latest()
	assert.False(t, ok)
}

func TestRevision_Newer_TieBreaksOnID(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := Revision{ID: "svc-00002", CreatedAt: at}
	b := Revision{ID: "svc-00001", CreatedAt: at}

	assert.True(t, a.Newer(b))
	assert.False(t, b.Newer(a))
}
