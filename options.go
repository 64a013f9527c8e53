package topiccache

import (
	"log/slog"
	"time"

	"github.com/hupe1980/topiccache/model"
	"github.com/hupe1980/topiccache/resource"
)

// Default configuration. Capacities and thresholds are deliberately small;
// production deployments size them per workload.
const (
	DefaultHotCapacity  = 8
	DefaultWarmCapacity = 32
	DefaultColdCapacity = 128

	DefaultEvictThreshold         = 2.0
	DefaultPromoteToWarmThreshold = 8.0
	DefaultPromoteToHotThreshold  = 32.0

	DefaultRecencyWeight = 1.0
)

type options struct {
	capacity       [model.NumTiers]int
	evictThreshold float64
	warmThreshold  float64
	hotThreshold   float64
	recencyWeight  float64

	logger  *Logger
	metrics MetricsCollector
	clock   func() time.Time

	queueSize  int
	workers    int
	retries    int
	controller *resource.Controller
}

// Option configures cache construction.
type Option func(*options)

func defaultOptions() options {
	return options{
		capacity: [model.NumTiers]int{
			model.TierHot:  DefaultHotCapacity,
			model.TierWarm: DefaultWarmCapacity,
			model.TierCold: DefaultColdCapacity,
		},
		evictThreshold: DefaultEvictThreshold,
		warmThreshold:  DefaultPromoteToWarmThreshold,
		hotThreshold:   DefaultPromoteToHotThreshold,
		recencyWeight:  DefaultRecencyWeight,
		logger:         NoopLogger(),
		metrics:        NoopMetricsCollector{},
		clock:          time.Now,
	}
}

func (o *options) validate() error {
	for t := model.TierHot; t <= model.TierCold; t++ {
		if o.capacity[t] <= 0 {
			return &ErrInvalidConfig{Reason: t.String() + " capacity must be positive"}
		}
	}
	if !(o.evictThreshold < o.warmThreshold && o.warmThreshold < o.hotThreshold) {
		return &ErrInvalidConfig{Reason: "thresholds must satisfy evict < warm < hot"}
	}
	return nil
}

// WithTierCapacity sets the capacity of one tier. Must be positive.
func WithTierCapacity(tier model.Tier, capacity int) Option {
	return func(o *options) {
		if tier.Valid() {
			o.capacity[tier] = capacity
		}
	}
}

// WithThresholds sets the three score cutoffs. They must satisfy
// evict < promoteToWarm < promoteToHot.
func WithThresholds(evict, promoteToWarm, promoteToHot float64) Option {
	return func(o *options) {
		o.evictThreshold = evict
		o.warmThreshold = promoteToWarm
		o.hotThreshold = promoteToHot
	}
}

// WithRecencyWeight sets the configured recency scalar in the score formula.
func WithRecencyWeight(w float64) Option {
	return func(o *options) {
		o.recencyWeight = w
	}
}

// WithLogger configures structured logging for cache operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring.
// Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

// WithClock overrides the time source. Used by tests to make first-seen and
// last-access timestamps deterministic.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithPersistence tunes the asynchronous writer: queue size, worker count,
// and retry attempts per op. With workers > 1 gateway ops may be applied out
// of enqueue order, which idempotent gateways tolerate at the cost of the
// strict replay ordering a single worker provides.
func WithPersistence(queueSize, workers, retries int) Option {
	return func(o *options) {
		o.queueSize = queueSize
		o.workers = workers
		o.retries = retries
	}
}

// WithResourceController throttles gateway traffic (worker slots and write
// rate). Cache reads and writes are never throttled.
func WithResourceController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}
