package topiccache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/topiccache/model"
	"github.com/hupe1980/topiccache/persistence"
	"github.com/hupe1980/topiccache/store"
)

// Cache is the tiered topic cache manager. It orchestrates lookup, insert,
// promotion, demotion, and eviction over the authoritative in-memory store,
// and streams every mutation to the persistence gateway asynchronously.
//
// All multi-step tier logic runs inside one exclusive critical section per
// instance: a promotion reads one tier's occupancy and writes another's, so
// per-tier locking could interleave with an insert and overfill a tier.
// Gateway notifications are enqueued strictly after the lock is released, so
// a slow or failing gateway never blocks cache traffic.
type Cache struct {
	opts    options
	gateway persistence.Gateway
	writer  *persistence.Writer

	mu          sync.Mutex
	store       *store.Store
	initialized bool
	closed      bool
}

// mutation is a persistence effect collected inside the critical section and
// published after the lock is released.
type mutation struct {
	del    bool
	record model.Record
	key    model.TopicKey
}

// New creates a cache persisting through gateway. The cache serves no
// traffic until Initialize has loaded the gateway snapshot.
func New(gateway persistence.Gateway, optFns ...Option) (*Cache, error) {
	if gateway == nil {
		return nil, &ErrInvalidConfig{Reason: "persistence gateway is required"}
	}
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	c := &Cache{
		opts:    opts,
		gateway: gateway,
		store:   store.New(),
	}
	c.writer = persistence.NewWriter(gateway, persistence.WriterConfig{
		QueueSize:  opts.queueSize,
		Workers:    opts.workers,
		Retries:    opts.retries,
		Controller: opts.controller,
		Logger:     opts.logger.Logger,
		OnResult: func(kind persistence.OpKind, d time.Duration, err error) {
			opts.metrics.RecordPersist(kind.String(), d, err)
		},
	})
	return c, nil
}

// Initialize loads the full gateway snapshot, rebuilds the store and
// per-tier bookkeeping, and verifies the capacity invariants. It blocks
// until the rebuild completes; the cache accepts no traffic before that.
//
// A snapshot that holds a key twice or overfills a tier fails with
// ErrCapacityInconsistency.
func (c *Cache) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCacheClosed
	}
	if c.initialized {
		return nil
	}

	if err := c.loadLocked(ctx); err != nil {
		c.opts.logger.LogLoad(ctx, 0, 0, 0, err)
		return err
	}

	c.writer.Start()
	c.initialized = true
	c.opts.logger.LogLoad(ctx,
		c.store.Occupancy(model.TierHot),
		c.store.Occupancy(model.TierWarm),
		c.store.Occupancy(model.TierCold),
		nil,
	)
	return nil
}

// loadLocked rebuilds the store from the gateway snapshot.
func (c *Cache) loadLocked(ctx context.Context) error {
	records, err := c.gateway.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	fresh := store.New()
	for _, rec := range records {
		if err := rec.Key.Validate(); err != nil {
			return fmt.Errorf("snapshot record: %w", err)
		}
		if !rec.Tier.Valid() {
			return fmt.Errorf("%w: snapshot record %s has invalid tier %d", ErrCapacityInconsistency, rec.Key, rec.Tier)
		}
		if _, dup := fresh.Get(rec.Key); dup {
			return fmt.Errorf("%w: key %s appears twice in snapshot", ErrCapacityInconsistency, rec.Key)
		}
		fresh.Put(model.CacheEntry{Key: rec.Key, State: rec.State, Tier: rec.Tier})
	}
	for t := model.TierHot; t <= model.TierCold; t++ {
		if occ := fresh.Occupancy(t); occ > c.opts.capacity[t] {
			return fmt.Errorf("%w: %s tier holds %d entries, capacity is %d",
				ErrCapacityInconsistency, t, occ, c.opts.capacity[t])
		}
	}
	if err := fresh.Audit(); err != nil {
		return translateError(err)
	}

	c.store = fresh
	return nil
}

// Lookup returns the state cached for key. ok is false on a miss; a miss is
// a normal outcome and never reported as an error.
//
// A hit bumps the usage counters, recomputes the score, and applies the tier
// transition rules: Cold entries crossing the warm threshold are promoted,
// Warm entries crossing the hot threshold are promoted, Warm entries falling
// below the warm threshold are demoted, and Cold entries falling below the
// evict threshold are evicted when Cold is full. Hot entries are never
// demoted by lookups.
func (c *Cache) Lookup(ctx context.Context, key model.TopicKey) (model.TopicState, bool, error) {
	start := time.Now()
	state, ok, err := c.lookup(ctx, key)
	c.opts.metrics.RecordLookup(ok, time.Since(start), err)
	return state, ok, err
}

func (c *Cache) lookup(ctx context.Context, key model.TopicKey) (model.TopicState, bool, error) {
	if err := key.Validate(); err != nil {
		return model.TopicState{}, false, err
	}

	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return model.TopicState{}, false, err
	}

	var muts []mutation
	state, ok := c.lookupLocked(ctx, key, &muts)
	err := c.verifyLocked(ctx)
	c.mu.Unlock()

	c.publish(muts)
	if err != nil {
		return model.TopicState{}, false, err
	}
	if !ok {
		c.opts.logger.LogLookup(ctx, key, false, 0)
		return model.TopicState{}, false, nil
	}
	return state, true, nil
}

// lookupLocked implements the hit path. It returns the possibly
// tier-changed state; absent keys cause no mutation at all.
func (c *Cache) lookupLocked(ctx context.Context, key model.TopicKey, muts *[]mutation) (model.TopicState, bool) {
	entry, ok := c.store.Get(key)
	if !ok {
		return model.TopicState{}, false
	}

	state := entry.State
	state.AccessCount++
	state.LastAccess = c.opts.clock()
	state.Score = Score(state, c.opts.recencyWeight)
	c.store.UpdateState(key, state)
	c.opts.logger.LogLookup(ctx, key, true, entry.Tier)

	// Transition paths persist the entry themselves; the plain-hit path
	// still needs its counter bump saved.
	switch {
	case entry.Tier == model.TierCold && state.Score > c.opts.warmThreshold:
		c.promoteLocked(ctx, key, model.TierWarm, muts)
	case entry.Tier == model.TierWarm && state.Score > c.opts.hotThreshold:
		c.promoteLocked(ctx, key, model.TierHot, muts)
	case entry.Tier == model.TierWarm && state.Score < c.opts.warmThreshold:
		c.demoteLocked(ctx, key, model.TopicKey{}, muts)
	case entry.Tier == model.TierCold && state.Score < c.opts.evictThreshold &&
		c.store.Occupancy(model.TierCold) == c.opts.capacity[model.TierCold]:
		c.evictLocked(ctx, key, muts)
	default:
		c.appendSave(key, muts)
	}
	return state.Clone(), true
}

// promoteLocked moves key into target. If target is full, target's
// least-valuable entry is first demoted one tier down to free the slot; the
// freed tier below may in turn evict (Cold) or demote further, cascading to
// at most a single eviction.
func (c *Cache) promoteLocked(ctx context.Context, key model.TopicKey, target model.Tier, muts *[]mutation) {
	from, _ := c.store.Get(key)

	if c.store.Occupancy(target) >= c.opts.capacity[target] {
		if victim, ok := c.store.LeastValuable(target); ok {
			c.demoteLocked(ctx, victim.Key, key, muts)
		}
	}

	c.store.MoveTier(key, target)
	c.appendSave(key, muts)
	c.opts.logger.LogTransition(ctx, key, from.Tier, target, from.State.Score)
	c.opts.metrics.RecordTransition(from.Tier, target)
}

// demoteLocked moves key one tier down. When the tier below is full, its
// least-valuable entry is evicted (Cold) or demoted further first. protected
// marks a key that must never be selected as a cascade victim: the entry
// whose promotion triggered this demotion.
func (c *Cache) demoteLocked(ctx context.Context, key model.TopicKey, protected model.TopicKey, muts *[]mutation) {
	entry, ok := c.store.Get(key)
	if !ok {
		return
	}
	below, ok := entry.Tier.Below()
	if !ok {
		// Cold has no tier below; displacement out of Cold is an eviction.
		c.evictLocked(ctx, key, muts)
		return
	}

	if c.store.Occupancy(below) >= c.opts.capacity[below] {
		if victim, ok := c.store.LeastValuableExcluding(below, protected); ok {
			if below == model.TierCold {
				c.evictLocked(ctx, victim.Key, muts)
			} else {
				c.demoteLocked(ctx, victim.Key, protected, muts)
			}
		}
	}

	c.store.MoveTier(key, below)
	c.appendSave(key, muts)
	c.opts.logger.LogTransition(ctx, key, entry.Tier, below, entry.State.Score)
	c.opts.metrics.RecordTransition(entry.Tier, below)
}

// evictLocked removes key permanently and queues the gateway deletion.
func (c *Cache) evictLocked(ctx context.Context, key model.TopicKey, muts *[]mutation) {
	entry, ok := c.store.Remove(key)
	if !ok {
		return
	}
	*muts = append(*muts, mutation{del: true, key: key})
	c.opts.logger.LogEviction(ctx, key, entry.State.Score)
	c.opts.metrics.RecordEviction()
}

func (c *Cache) appendSave(key model.TopicKey, muts *[]mutation) {
	entry, ok := c.store.Get(key)
	if !ok {
		return
	}
	*muts = append(*muts, mutation{record: model.Record{
		Key:   entry.Key,
		State: entry.State.Clone(),
		Tier:  entry.Tier,
	}})
}

// Insert admits a new topic into the Cold tier. Reinsertion under an
// existing key is not a duplicate creation: it is treated as a hit and
// delegates to lookup semantics.
//
// Only CachedChunkIDs and Confidence are taken from the caller's state; the
// usage counters and timestamps are owned by the cache.
func (c *Cache) Insert(ctx context.Context, key model.TopicKey, state model.TopicState) error {
	start := time.Now()
	err := c.insert(ctx, key, state)
	c.opts.metrics.RecordInsert(time.Since(start), err)
	return err
}

func (c *Cache) insert(ctx context.Context, key model.TopicKey, state model.TopicState) error {
	if err := key.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}

	var muts []mutation
	if _, exists := c.store.Get(key); exists {
		c.lookupLocked(ctx, key, &muts)
	} else {
		evicted := 0
		if c.store.Occupancy(model.TierCold) >= c.opts.capacity[model.TierCold] {
			if victim, ok := c.store.LeastValuable(model.TierCold); ok {
				c.evictLocked(ctx, victim.Key, &muts)
				evicted++
			}
		}
		now := c.opts.clock()
		fresh := model.TopicState{
			CachedChunkIDs: append([]string(nil), state.CachedChunkIDs...),
			Confidence:     state.Confidence,
			AccessCount:    0,
			LastAccess:     now,
			FirstSeen:      now,
		}
		fresh.Score = Score(fresh, c.opts.recencyWeight)
		c.store.Put(model.CacheEntry{Key: key, State: fresh, Tier: model.TierCold})
		c.appendSave(key, &muts)
		c.opts.logger.LogInsert(ctx, key, evicted)
	}
	err := c.verifyLocked(ctx)
	c.mu.Unlock()

	c.publish(muts)
	return err
}

// usableLocked gates traffic on the lifecycle state.
func (c *Cache) usableLocked() error {
	if c.closed {
		return ErrCacheClosed
	}
	if !c.initialized {
		return ErrNotInitialized
	}
	return nil
}

// verifyLocked checks the store's bookkeeping after a mutation. A divergence
// is fatal: it is surfaced to the logger and metrics and answered with a
// full reload from the gateway, since the gateway is the only state that is
// still trustworthy at that point.
func (c *Cache) verifyLocked(ctx context.Context) error {
	err := c.store.CheckConsistency()
	if err == nil {
		return nil
	}
	cause := translateError(err)

	reloadErr := c.loadLocked(ctx)
	c.opts.logger.LogReload(ctx, cause, reloadErr)
	if reloadErr != nil {
		return errors.Join(cause, reloadErr)
	}
	return cause
}

// publish hands the collected persistence effects to the async writer.
// Runs outside the critical section.
func (c *Cache) publish(muts []mutation) {
	for _, m := range muts {
		if m.del {
			c.writer.EnqueueDelete(m.key)
		} else {
			c.writer.EnqueueSave(m.record)
		}
	}
}

// Occupancy returns the number of entries currently in tier.
func (c *Cache) Occupancy(tier model.Tier) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Occupancy(tier)
}

// Len returns the total number of cached topics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Len()
}

// Snapshot returns every entry as a record, ordered by (tier, key).
func (c *Cache) Snapshot() []model.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Snapshot()
}

// Flush blocks until every persistence effect enqueued so far has been
// applied to the gateway, or ctx is canceled.
func (c *Cache) Flush(ctx context.Context) error {
	return c.writer.Flush(ctx)
}

// Close drains the persistence queue and releases the gateway. The cache
// rejects traffic afterwards. Idempotent.
func (c *Cache) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if err := c.writer.Flush(ctx); err != nil {
		return err
	}
	c.writer.Close()
	return c.gateway.Close()
}
