package model

import (
	"fmt"
	"strings"
	"time"
)

// Tier identifies one of the capacity-bounded cache partitions.
// Lower values are hotter: TierHot < TierWarm < TierCold.
type Tier uint8

const (
	// TierHot is the terminal, most protected tier. Entries in Hot are never
	// demoted automatically.
	TierHot Tier = iota
	// TierWarm is the intermediate tier.
	TierWarm
	// TierCold is the admission tier for new entries and the only tier
	// entries are evicted from.
	TierCold

	// NumTiers is the number of tiers in the chain.
	NumTiers = 3
)

// String returns the tier name ("hot", "warm", "cold").
func (t Tier) String() string {
	switch t {
	case TierHot:
		return "hot"
	case TierWarm:
		return "warm"
	case TierCold:
		return "cold"
	default:
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
}

// Valid reports whether t is one of the defined tiers.
func (t Tier) Valid() bool {
	return t <= TierCold
}

// Below returns the next colder tier. ok is false for TierCold, which has no
// tier below it; displacement out of Cold is an eviction, not a demotion.
func (t Tier) Below() (Tier, bool) {
	if t >= TierCold {
		return t, false
	}
	return t + 1, true
}

// TopicKey is the immutable composite identifier of a cached topic.
// Two keys are equal iff all three fields are equal.
type TopicKey struct {
	TopicLabel      string `json:"topic_label"`
	ModalityFilter  string `json:"modality_filter"`
	RetrievalPolicy string `json:"retrieval_policy"`
}

// ErrInvalidKey reports a malformed TopicKey. Keys are validated at the API
// boundary; a malformed key never reaches the cache manager.
type ErrInvalidKey struct {
	Reason string
}

func (e *ErrInvalidKey) Error() string {
	return fmt.Sprintf("invalid topic key: %s", e.Reason)
}

// Validate checks that the key is well formed.
func (k TopicKey) Validate() error {
	if k.TopicLabel == "" {
		return &ErrInvalidKey{Reason: "empty topic_label"}
	}
	return nil
}

// Canonical returns a stable string form of the key, used as the partition
// key by persistence gateways and for deterministic ordering.
func (k TopicKey) Canonical() string {
	return k.TopicLabel + "|" + k.ModalityFilter + "|" + k.RetrievalPolicy
}

// Compare orders keys lexicographically by (label, modality, policy).
// Used as the final tie-break when selecting a tier's least-valuable entry.
func (k TopicKey) Compare(other TopicKey) int {
	if c := strings.Compare(k.TopicLabel, other.TopicLabel); c != 0 {
		return c
	}
	if c := strings.Compare(k.ModalityFilter, other.ModalityFilter); c != 0 {
		return c
	}
	return strings.Compare(k.RetrievalPolicy, other.RetrievalPolicy)
}

func (k TopicKey) String() string {
	return k.Canonical()
}

// TopicState is the cached payload of a topic.
type TopicState struct {
	// Score is the current computed heat of the topic.
	Score float64 `json:"score"`
	// CachedChunkIDs is the ordered bundle of result chunk references.
	CachedChunkIDs []string `json:"cached_chunk_ids"`
	// AccessCount increases monotonically; it is mutated only by lookups.
	AccessCount uint64 `json:"access_count"`
	// LastAccess is the timestamp of the most recent lookup.
	LastAccess time.Time `json:"last_access_ts"`
	// FirstSeen is set once at insertion and never mutated afterwards.
	FirstSeen time.Time `json:"first_seen_ts"`
	// Confidence is an informational heuristic signal.
	Confidence float64 `json:"confidence"`
}

// Clone returns a deep copy of the state. The cache hands clones to callers
// so the authoritative copy cannot be mutated from outside.
func (s TopicState) Clone() TopicState {
	out := s
	if s.CachedChunkIDs != nil {
		out.CachedChunkIDs = make([]string, len(s.CachedChunkIDs))
		copy(out.CachedChunkIDs, s.CachedChunkIDs)
	}
	return out
}

// CacheEntry is the unit stored by the cache: a state pinned to a tier.
type CacheEntry struct {
	Key   TopicKey
	State TopicState
	Tier  Tier
}

// Record is the (key, state, tier) triple exchanged with persistence
// gateways. It is also the unit returned by snapshot dumps.
type Record struct {
	Key   TopicKey   `json:"key"`
	State TopicState `json:"state"`
	Tier  Tier       `json:"tier"`
}
