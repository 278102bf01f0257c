package domain

// =============================================================================
// Revision Catalog
// =============================================================================

// Catalog is a read-only snapshot of the revisions known to a running service,
// together with the traffic currently routed to them.
type Catalog struct {
	Service string

	// Generation identifies the service configuration the snapshot was read
	// from. The platform refuses traffic writes made against a stale generation.
	Generation string

	// Revisions is ordered newest first.
	Revisions []Revision

	// Traffic is the live routing table at snapshot time.
	Traffic TrafficTable
}

// NewCatalog builds a snapshot, ordering revisions newest first.
func NewCatalog(service, generation string, revs []Revision, live TrafficTable) Catalog {
	return Catalog{
		Service:    service,
		Generation: generation,
		Revisions:  SortNewestFirst(revs),
		Traffic:    live.Clone(),
	}
}

// Has reports whether revisionID exists in the snapshot.
func (c Catalog) Has(revisionID string) bool {
	_, ok := c.Get(revisionID)
	return ok
}

// Get returns the revision with the given ID.
func (c Catalog) Get(revisionID string) (Revision, bool) {
	if revisionID == "" {
		return Revision{}, false
	}
	for _, rev := range c.Revisions {
		if rev.ID == revisionID {
			return rev, true
		}
	}
	return Revision{}, false
}

// Latest returns the newest revision in the snapshot.
func (c Catalog) Latest() (Revision, bool) {
	if len(c.Revisions) == 0 {
		return Revision{}, false
	}
	return c.Revisions[0], true
}

// Len returns the number of revisions in the snapshot.
func (c Catalog) Len() int {
	return len(c.Revisions)
}
