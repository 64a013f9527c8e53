package testutil

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/hupe1980/topiccache/model"
)

// RNG encapsulates a seeded random number generator. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Key returns a deterministic topic key for index i.
func Key(i int) model.TopicKey {
	return model.TopicKey{
		TopicLabel:      fmt.Sprintf("topic-%03d", i),
		ModalityFilter:  "text",
		RetrievalPolicy: "hybrid",
	}
}

// Keys returns n deterministic distinct topic keys.
func Keys(n int) []model.TopicKey {
	out := make([]model.TopicKey, n)
	for i := range out {
		out[i] = Key(i)
	}
	return out
}

// State returns a payload-only state carrying i result chunk references.
// Counters and timestamps are left zero; the cache owns them.
func State(i int) model.TopicState {
	ids := make([]string, 0, i%4+1)
	for j := 0; j <= i%4; j++ {
		ids = append(ids, fmt.Sprintf("chunk-%03d-%d", i, j))
	}
	return model.TopicState{
		CachedChunkIDs: ids,
		Confidence:     0.5,
	}
}

// Clock is a manually advanced time source for deterministic timestamps.
// Thread-safe.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock starting at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Tick advances the clock by one second.
func (c *Clock) Tick() time.Time {
	return c.Advance(time.Second)
}
