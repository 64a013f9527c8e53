package topiccache

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/topiccache/model"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordLookup is called after each lookup. hit is false on a miss,
	// err is nil unless the lookup failed (a miss is not a failure).
	RecordLookup(hit bool, duration time.Duration, err error)

	// RecordInsert is called after each insert operation.
	RecordInsert(duration time.Duration, err error)

	// RecordTransition is called after each promotion or demotion.
	RecordTransition(from, to model.Tier)

	// RecordEviction is called after each permanent removal.
	RecordEviction()

	// RecordPersist is called after each asynchronous gateway op settles.
	// op is "save" or "delete"; err is nil on success.
	RecordPersist(op string, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLookup(bool, time.Duration, error)        {}
func (NoopMetricsCollector) RecordInsert(time.Duration, error)              {}
func (NoopMetricsCollector) RecordTransition(model.Tier, model.Tier)        {}
func (NoopMetricsCollector) RecordEviction()                                {}
func (NoopMetricsCollector) RecordPersist(string, time.Duration, error)     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	LookupCount      atomic.Int64
	LookupHits       atomic.Int64
	LookupMisses     atomic.Int64
	LookupErrors     atomic.Int64
	LookupTotalNanos atomic.Int64
	InsertCount      atomic.Int64
	InsertErrors     atomic.Int64
	InsertTotalNanos atomic.Int64
	Promotions       atomic.Int64
	Demotions        atomic.Int64
	Evictions        atomic.Int64
	PersistCount     atomic.Int64
	PersistErrors    atomic.Int64
}

// RecordLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLookup(hit bool, duration time.Duration, err error) {
	b.LookupCount.Add(1)
	b.LookupTotalNanos.Add(duration.Nanoseconds())
	switch {
	case err != nil:
		b.LookupErrors.Add(1)
	case hit:
		b.LookupHits.Add(1)
	default:
		b.LookupMisses.Add(1)
	}
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(duration time.Duration, err error) {
	b.InsertCount.Add(1)
	b.InsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordTransition implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTransition(from, to model.Tier) {
	if to < from {
		b.Promotions.Add(1)
	} else {
		b.Demotions.Add(1)
	}
}

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction() {
	b.Evictions.Add(1)
}

// RecordPersist implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPersist(_ string, _ time.Duration, err error) {
	b.PersistCount.Add(1)
	if err != nil {
		b.PersistErrors.Add(1)
	}
}
