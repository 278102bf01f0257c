package platform

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/artpar/runway/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// In-Memory Platform
// =============================================================================

// MemoryPlatform is an in-process Platform used for tests and dry runs.
// Every successful UpdateTraffic bumps the service generation.
type MemoryPlatform struct {
	mu       sync.Mutex
	services map[string]*memoryService

	// failNext is returned by the next UpdateTraffic call, then cleared.
	failNext error
}

type memoryService struct {
	revisions  []domain.Revision
	traffic    domain.TrafficTable
	generation int
	writes     int

	// pending holds an accepted write that is not visible yet.
	pending     domain.TrafficTable
	hiddenReads int
	lag         int
}

// NewMemoryPlatform creates an empty in-memory platform.
func NewMemoryPlatform() *MemoryPlatform {
	return &MemoryPlatform{services: make(map[string]*memoryService)}
}

// memoryFixture is the YAML layout accepted by LoadMemoryFixture.
type memoryFixture struct {
	Services []struct {
		Name       string              `yaml:"name"`
		Generation int                 `yaml:"generation"`
		Revisions  []domain.Revision   `yaml:"revisions"`
		Traffic    domain.TrafficTable `yaml:"traffic"`
	} `yaml:"services"`
}

// LoadMemoryFixture builds a MemoryPlatform from a YAML fixture file.
func LoadMemoryFixture(path string) (*MemoryPlatform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return ParseMemoryFixture(data)
}

// ParseMemoryFixture builds a MemoryPlatform from YAML fixture content.
func ParseMemoryFixture(data []byte) (*MemoryPlatform, error) {
	var fixture memoryFixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}

	p := NewMemoryPlatform()
	for _, svc := range fixture.Services {
		if svc.Name == "" {
			return nil, fmt.Errorf("failed to parse fixture: service name is required")
		}
		p.services[svc.Name] = &memoryService{
			revisions:  append([]domain.Revision(nil), svc.Revisions...),
			traffic:    svc.Traffic.Clone(),
			generation: svc.Generation,
		}
	}
	return p, nil
}

// AddRevision registers a revision, creating the service if needed.
func (p *MemoryPlatform) AddRevision(service string, rev domain.Revision) {
	p.mu.Lock()
	defer p.mu.Unlock()

	svc := p.service(service)
	rev.Service = service
	svc.revisions = append(svc.revisions, rev)
}

// RemoveRevision drops a revision, as platform garbage collection would.
func (p *MemoryPlatform) RemoveRevision(service, revisionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	svc, ok := p.services[service]
	if !ok {
		return
	}
	kept := svc.revisions[:0]
	for _, rev := range svc.revisions {
		if rev.ID != revisionID {
			kept = append(kept, rev)
		}
	}
	svc.revisions = kept
}

// SetTraffic overwrites the live traffic table without counting a write.
func (p *MemoryPlatform) SetTraffic(service string, table domain.TrafficTable) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.service(service).traffic = table.Clone()
}

// BumpGeneration simulates a concurrent change to the service.
func (p *MemoryPlatform) BumpGeneration(service string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.service(service).generation++
}

// FailNextUpdate makes the next UpdateTraffic call return err without writing.
func (p *MemoryPlatform) FailNextUpdate(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failNext = err
}

// SetVisibilityLag delays accepted writes: the next n Traffic reads after a
// write still return the previous table.
func (p *MemoryPlatform) SetVisibilityLag(service string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.service(service).lag = n
}

// Writes returns the number of accepted traffic writes for a service.
func (p *MemoryPlatform) Writes(service string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if svc, ok := p.services[service]; ok {
		return svc.writes
	}
	return 0
}

// Revisions implements Platform.
func (p *MemoryPlatform) Revisions(ctx context.Context, service string) ([]domain.Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewPlatformError("Revisions", service, 0, err.Error(), ErrTimeout)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	svc, ok := p.services[service]
	if !ok {
		return nil, NewPlatformError("Revisions", service, 0, "service not found", ErrServiceNotFound)
	}
	return append([]domain.Revision(nil), svc.revisions...), nil
}

// Traffic implements Platform.
func (p *MemoryPlatform) Traffic(ctx context.Context, service string) (domain.TrafficTable, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", NewPlatformError("Traffic", service, 0, err.Error(), ErrTimeout)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	svc, ok := p.services[service]
	if !ok {
		return nil, "", NewPlatformError("Traffic", service, 0, "service not found", ErrServiceNotFound)
	}

	if svc.pending != nil {
		if svc.hiddenReads > 0 {
			svc.hiddenReads--
		} else {
			svc.traffic = svc.pending
			svc.pending = nil
		}
	}
	return svc.traffic.Clone(), strconv.Itoa(svc.generation), nil
}

// UpdateTraffic implements Platform.
func (p *MemoryPlatform) UpdateTraffic(ctx context.Context, service string, table domain.TrafficTable, generation string) error {
	if err := ctx.Err(); err != nil {
		return NewPlatformError("UpdateTraffic", service, 0, err.Error(), ErrTimeout)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failNext != nil {
		err := p.failNext
		p.failNext = nil
		return err
	}

	svc, ok := p.services[service]
	if !ok {
		return NewPlatformError("UpdateTraffic", service, 0, "service not found", ErrServiceNotFound)
	}

	if generation != "" && generation != strconv.Itoa(svc.generation) {
		return NewPlatformError("UpdateTraffic", service, 409,
			fmt.Sprintf("generation %s is stale (current %d)", generation, svc.generation), ErrConflict)
	}

	for _, target := range table {
		if !hasRevision(svc.revisions, target.RevisionID) {
			return NewPlatformError("UpdateTraffic", service, 400,
				fmt.Sprintf("revision %s not found", target.RevisionID), ErrRejected)
		}
	}

	svc.writes++
	svc.generation++
	if svc.lag > 0 {
		svc.pending = table.Clone()
		svc.hiddenReads = svc.lag
	} else {
		svc.traffic = table.Clone()
		svc.pending = nil
	}
	return nil
}

// service returns the named service, creating it. Callers hold p.mu.
func (p *MemoryPlatform) service(name string) *memoryService {
	svc, ok := p.services[name]
	if !ok {
		svc = &memoryService{generation: 1}
		p.services[name] = svc
	}
	return svc
}

func hasRevision(revs []domain.Revision, id string) bool {
	for _, rev := range revs {
		if rev.ID == id {
			return true
		}
	}
	return false
}
