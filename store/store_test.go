package store

import (
	"testing"
	"time"

	"github.com/hupe1980/topiccache/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func key(label string) model.TopicKey {
	return model.TopicKey{TopicLabel: label, ModalityFilter: "text", RetrievalPolicy: "hybrid"}
}

func entry(label string, tier model.Tier, access uint64, seenOffset time.Duration) model.CacheEntry {
	return model.CacheEntry{
		Key: key(label),
		State: model.TopicState{
			AccessCount: access,
			FirstSeen:   base.Add(seenOffset),
		},
		Tier: tier,
	}
}

func TestPutGetRemove(t *testing.T) {
	s := New()

	s.Put(entry("a", model.TierCold, 1, 0))
	got, ok := s.Get(key("a"))
	require.True(t, ok)
	assert.Equal(t, model.TierCold, got.Tier)
	assert.Equal(t, 1, s.Occupancy(model.TierCold))
	assert.Equal(t, 1, s.Len())

	// Overwrite by key moves bookkeeping to the new tier.
	s.Put(entry("a", model.TierWarm, 5, 0))
	assert.Equal(t, 0, s.Occupancy(model.TierCold))
	assert.Equal(t, 1, s.Occupancy(model.TierWarm))
	assert.Equal(t, 1, s.Len())

	removed, ok := s.Remove(key("a"))
	require.True(t, ok)
	assert.Equal(t, uint64(5), removed.State.AccessCount)
	assert.Equal(t, 0, s.Occupancy(model.TierWarm))
	assert.Equal(t, 0, s.Len())

	_, ok = s.Remove(key("a"))
	assert.False(t, ok)
}

func TestLeastValuableOrdering(t *testing.T) {
	s := New()

	// Lowest access count wins.
	s.Put(entry("busy", model.TierCold, 10, 0))
	s.Put(entry("quiet", model.TierCold, 2, time.Minute))
	lv, ok := s.LeastValuable(model.TierCold)
	require.True(t, ok)
	assert.Equal(t, key("quiet"), lv.Key)

	// Equal access counts: oldest first-seen wins.
	s.Put(entry("older", model.TierCold, 2, -time.Hour))
	lv, _ = s.LeastValuable(model.TierCold)
	assert.Equal(t, key("older"), lv.Key)

	// Full tie: lexicographically smallest key wins.
	s.Put(entry("aaa", model.TierCold, 2, -time.Hour))
	lv, _ = s.LeastValuable(model.TierCold)
	assert.Equal(t, key("aaa"), lv.Key)

	_, ok = s.LeastValuable(model.TierHot)
	assert.False(t, ok)
}

func TestLeastValuableExcluding(t *testing.T) {
	s := New()
	s.Put(entry("a", model.TierCold, 1, 0))
	s.Put(entry("b", model.TierCold, 2, 0))

	lv, ok := s.LeastValuableExcluding(model.TierCold, key("a"))
	require.True(t, ok)
	assert.Equal(t, key("b"), lv.Key)

	// Exclusion does not disturb heap order.
	lv, ok = s.LeastValuable(model.TierCold)
	require.True(t, ok)
	assert.Equal(t, key("a"), lv.Key)

	// Non-matching exclusion returns the true least valuable.
	lv, ok = s.LeastValuableExcluding(model.TierCold, key("zzz"))
	require.True(t, ok)
	assert.Equal(t, key("a"), lv.Key)

	// Sole entry excluded: nothing to return.
	s2 := New()
	s2.Put(entry("only", model.TierCold, 1, 0))
	_, ok = s2.LeastValuableExcluding(model.TierCold, key("only"))
	assert.False(t, ok)
}

func TestUpdateStateReordersHeap(t *testing.T) {
	s := New()
	s.Put(entry("a", model.TierCold, 1, 0))
	s.Put(entry("b", model.TierCold, 2, 0))

	st, _ := s.Get(key("a"))
	updated := st.State
	updated.AccessCount = 9
	require.True(t, s.UpdateState(key("a"), updated))

	lv, _ := s.LeastValuable(model.TierCold)
	assert.Equal(t, key("b"), lv.Key)
}

func TestUpdateStateProtectsMonotonicFields(t *testing.T) {
	s := New()
	s.Put(entry("a", model.TierCold, 5, 0))

	st, _ := s.Get(key("a"))
	mutated := st.State
	mutated.AccessCount = 1                       // must not decrease
	mutated.FirstSeen = base.Add(48 * time.Hour) // must not change
	s.UpdateState(key("a"), mutated)

	got, _ := s.Get(key("a"))
	assert.Equal(t, uint64(5), got.State.AccessCount)
	assert.Equal(t, base, got.State.FirstSeen)
}

func TestMoveTier(t *testing.T) {
	s := New()
	s.Put(entry("a", model.TierCold, 1, 0))

	require.True(t, s.MoveTier(key("a"), model.TierWarm))
	assert.Equal(t, 0, s.Occupancy(model.TierCold))
	assert.Equal(t, 1, s.Occupancy(model.TierWarm))

	got, _ := s.Get(key("a"))
	assert.Equal(t, model.TierWarm, got.Tier)

	// Moving to the current tier is a no-op.
	require.True(t, s.MoveTier(key("a"), model.TierWarm))
	assert.Equal(t, 1, s.Occupancy(model.TierWarm))

	assert.False(t, s.MoveTier(key("missing"), model.TierHot))
}

func TestSnapshotDeterministicOrder(t *testing.T) {
	s := New()
	s.Put(entry("c", model.TierCold, 1, 0))
	s.Put(entry("a", model.TierCold, 2, 0))
	s.Put(entry("h", model.TierHot, 9, 0))

	recs := s.Snapshot()
	require.Len(t, recs, 3)
	assert.Equal(t, key("h"), recs[0].Key)
	assert.Equal(t, key("a"), recs[1].Key)
	assert.Equal(t, key("c"), recs[2].Key)
}

func TestCheckConsistency(t *testing.T) {
	s := New()
	s.Put(entry("a", model.TierCold, 1, 0))
	s.Put(entry("b", model.TierWarm, 2, 0))
	require.NoError(t, s.CheckConsistency())

	// Corrupt the counter behind the store's back.
	s.counts[model.TierCold] = 5
	err := s.CheckConsistency()
	require.Error(t, err)
	var inc *InconsistencyError
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, model.TierCold, inc.Tier)
	assert.Equal(t, 5, inc.Counted)
	assert.Equal(t, 1, inc.Actual)
}

func TestCheckConsistencyIsCounterOnly(t *testing.T) {
	// The per-operation check compares counters against heap sizes and must
	// not walk the entries map; map-level divergence is Audit's job.
	s := New()
	s.Put(entry("a", model.TierCold, 1, 0))
	s.Put(entry("b", model.TierWarm, 2, 0))

	// Flip an entry's tier field without touching heaps or counters.
	s.entries[key("a")].entry.Tier = model.TierWarm

	assert.NoError(t, s.CheckConsistency())
	assert.Error(t, s.Audit())
}

func TestAudit(t *testing.T) {
	s := New()
	s.Put(entry("a", model.TierCold, 1, 0))
	s.Put(entry("b", model.TierWarm, 2, 0))
	require.NoError(t, s.Audit())

	s.counts[model.TierWarm] = 3
	err := s.Audit()
	require.Error(t, err)
	var inc *InconsistencyError
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, model.TierWarm, inc.Tier)
	assert.Equal(t, 3, inc.Counted)
	assert.Equal(t, 1, inc.Actual)
}
