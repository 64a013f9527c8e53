package persistence

import (
	"context"
	"sync"

	"github.com/hupe1980/topiccache/model"
)

// MemoryGateway is an in-memory Gateway for tests and embedded use.
// Thread-safe for concurrent use.
type MemoryGateway struct {
	mu      sync.RWMutex
	records map[model.TopicKey]model.Record
	failErr error
}

// NewMemoryGateway creates a new in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		records: make(map[model.TopicKey]model.Record),
	}
}

// SetFailure makes every subsequent operation return err. Pass nil to
// restore normal behavior. Used to exercise degraded-mode handling.
func (g *MemoryGateway) SetFailure(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failErr = err
}

// Load returns all records ordered by (tier, key).
func (g *MemoryGateway) Load(_ context.Context) ([]model.Record, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.failErr != nil {
		return nil, g.failErr
	}
	out := make([]model.Record, 0, len(g.records))
	for _, rec := range g.records {
		rec.State = rec.State.Clone()
		out = append(out, rec)
	}
	SortRecords(out)
	return out, nil
}

// Save upserts one record.
func (g *MemoryGateway) Save(_ context.Context, rec model.Record) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failErr != nil {
		return g.failErr
	}
	rec.State = rec.State.Clone()
	g.records[rec.Key] = rec
	return nil
}

// Delete removes the record for key.
func (g *MemoryGateway) Delete(_ context.Context, key model.TopicKey) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failErr != nil {
		return g.failErr
	}
	delete(g.records, key)
	return nil
}

// Close implements Gateway.
func (g *MemoryGateway) Close() error { return nil }

// Len returns the number of persisted records.
func (g *MemoryGateway) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.records)
}
