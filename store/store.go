// Package store implements the authoritative in-memory mapping from TopicKey
// to CacheEntry, with per-tier occupancy counters and a least-valuable index
// per tier.
//
// The store performs no locking. All operations must run inside the cache
// manager's critical section; a promotion reads one tier's bookkeeping and
// writes another's, so the store relies on the caller for exclusion.
package store

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/hupe1980/topiccache/model"
)

// InconsistencyError reports that a tier's counted occupancy diverged from
// the number of entries actually present in it. This is a fatal internal
// error; the manager reacts with a full reload from persistence.
type InconsistencyError struct {
	Tier    model.Tier
	Counted int
	Actual  int
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("capacity inconsistency in %s tier: counted %d, actual %d", e.Tier, e.Counted, e.Actual)
}

// item is a heap-managed handle to one entry. Index is maintained by the
// heap.Interface methods so entries can be fixed or removed in place.
type item struct {
	entry model.CacheEntry
	index int
}

// tierQueue is a min-heap ordering a tier's entries by value: lowest access
// count first, ties broken by oldest first-seen timestamp, further ties by
// lexicographically smallest key. The top of the heap is the tier's
// least-valuable entry, the next candidate for demotion or eviction.
type tierQueue struct {
	items []*item
}

var _ heap.Interface = (*tierQueue)(nil)

func (q *tierQueue) Len() int { return len(q.items) }

func (q *tierQueue) Less(i, j int) bool {
	a, b := q.items[i].entry, q.items[j].entry
	if a.State.AccessCount != b.State.AccessCount {
		return a.State.AccessCount < b.State.AccessCount
	}
	if !a.State.FirstSeen.Equal(b.State.FirstSeen) {
		return a.State.FirstSeen.Before(b.State.FirstSeen)
	}
	return a.Key.Compare(b.Key) < 0
}

func (q *tierQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

func (q *tierQueue) Push(x any) {
	it, _ := x.(*item)
	it.index = len(q.items)
	q.items = append(q.items, it)
}

func (q *tierQueue) Pop() any {
	old := q.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	q.items = old[:n-1]
	return it
}

// Store holds every CacheEntry exactly once and keeps per-tier bookkeeping.
type Store struct {
	entries map[model.TopicKey]*item
	queues  [model.NumTiers]tierQueue
	counts  [model.NumTiers]int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		entries: make(map[model.TopicKey]*item),
	}
}

// Get returns a copy of the entry for key.
func (s *Store) Get(key model.TopicKey) (model.CacheEntry, bool) {
	it, ok := s.entries[key]
	if !ok {
		return model.CacheEntry{}, false
	}
	return it.entry, true
}

// Put inserts the entry, or overwrites an existing entry under the same key.
// Tier occupancy and the least-valuable index are updated for the affected
// tiers.
func (s *Store) Put(e model.CacheEntry) {
	if old, ok := s.entries[e.Key]; ok {
		s.detach(old)
	}
	it := &item{entry: e}
	s.entries[e.Key] = it
	heap.Push(&s.queues[e.Tier], it)
	s.counts[e.Tier]++
}

// Remove deletes the entry for key and returns it.
func (s *Store) Remove(key model.TopicKey) (model.CacheEntry, bool) {
	it, ok := s.entries[key]
	if !ok {
		return model.CacheEntry{}, false
	}
	s.detach(it)
	delete(s.entries, key)
	return it.entry, true
}

// detach unlinks an item from its tier's heap and counter.
func (s *Store) detach(it *item) {
	heap.Remove(&s.queues[it.entry.Tier], it.index)
	s.counts[it.entry.Tier]--
}

// UpdateState replaces the stored state for key and restores heap order.
// The monotonic fields are protected here: AccessCount never decreases and
// FirstSeen keeps its original value.
func (s *Store) UpdateState(key model.TopicKey, state model.TopicState) bool {
	it, ok := s.entries[key]
	if !ok {
		return false
	}
	if state.AccessCount < it.entry.State.AccessCount {
		state.AccessCount = it.entry.State.AccessCount
	}
	state.FirstSeen = it.entry.State.FirstSeen
	it.entry.State = state
	heap.Fix(&s.queues[it.entry.Tier], it.index)
	return true
}

// MoveTier atomically moves one entry to a new tier, updating both tiers'
// bookkeeping.
func (s *Store) MoveTier(key model.TopicKey, to model.Tier) bool {
	it, ok := s.entries[key]
	if !ok {
		return false
	}
	if it.entry.Tier == to {
		return true
	}
	s.detach(it)
	it.entry.Tier = to
	heap.Push(&s.queues[to], it)
	s.counts[to]++
	return true
}

// Occupancy returns the counted number of entries in tier.
func (s *Store) Occupancy(tier model.Tier) int {
	return s.counts[tier]
}

// Len returns the total number of entries across all tiers.
func (s *Store) Len() int {
	return len(s.entries)
}

// LeastValuable returns the entry in tier with the lowest access count,
// ties broken by oldest first-seen, then smallest key.
func (s *Store) LeastValuable(tier model.Tier) (model.CacheEntry, bool) {
	q := &s.queues[tier]
	if q.Len() == 0 {
		return model.CacheEntry{}, false
	}
	return q.items[0].entry, true
}

// LeastValuableExcluding returns the least-valuable entry in tier that is not
// stored under skip. Used while a promotion is in flight so a cascading Cold
// eviction can never select the entry being promoted.
func (s *Store) LeastValuableExcluding(tier model.Tier, skip model.TopicKey) (model.CacheEntry, bool) {
	q := &s.queues[tier]
	if q.Len() == 0 {
		return model.CacheEntry{}, false
	}
	top := q.items[0]
	if top.entry.Key != skip {
		return top.entry, true
	}
	if q.Len() == 1 {
		return model.CacheEntry{}, false
	}
	// Pop the excluded top, peek the runner-up, then restore heap order.
	popped, _ := heap.Pop(q).(*item)
	second := q.items[0].entry
	heap.Push(q, popped)
	return second, true
}

// Snapshot returns every entry as a Record, ordered by (tier, key) for
// deterministic dumps and round-trip comparisons.
func (s *Store) Snapshot() []model.Record {
	out := make([]model.Record, 0, len(s.entries))
	for _, it := range s.entries {
		out = append(out, model.Record{
			Key:   it.entry.Key,
			State: it.entry.State.Clone(),
			Tier:  it.entry.Tier,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier < out[j].Tier
		}
		return out[i].Key.Compare(out[j].Key) < 0
	})
	return out
}

// CheckConsistency verifies each tier's counter against its heap membership.
// O(1), so the manager can run it after every mutation without holding the
// lock for a walk of the entries. Map-level divergence is covered by Audit.
func (s *Store) CheckConsistency() error {
	for t := model.TierHot; t <= model.TierCold; t++ {
		if n := s.queues[t].Len(); s.counts[t] != n {
			return &InconsistencyError{Tier: t, Counted: s.counts[t], Actual: n}
		}
	}
	return nil
}

// Audit recounts every entry and verifies tier validity plus per-tier
// membership against both the counters and the heaps. O(n); meant for
// startup and periodic audits, not the per-operation path.
func (s *Store) Audit() error {
	var actual [model.NumTiers]int
	for _, it := range s.entries {
		if !it.entry.Tier.Valid() {
			return &InconsistencyError{Tier: it.entry.Tier, Counted: 0, Actual: 1}
		}
		actual[it.entry.Tier]++
	}
	for t := model.TierHot; t <= model.TierCold; t++ {
		if s.counts[t] != actual[t] || s.queues[t].Len() != actual[t] {
			return &InconsistencyError{Tier: t, Counted: s.counts[t], Actual: actual[t]}
		}
	}
	return nil
}
