// Package model defines the core types of the tiered topic cache.
//
// # Identity
//
//   - TopicKey: immutable composite identifier (label, modality filter,
//     retrieval policy). Equality is field-wise; Canonical() yields a stable
//     string form used as a persistence partition key.
//
// # Data
//
//   - TopicState: the cached payload (score, chunk IDs, usage counters)
//   - CacheEntry: a TopicState pinned to a Tier under a TopicKey
//   - Record: the (key, state, tier) triple exchanged with persistence
//
// # Tiers
//
// Tiers form a strictly ordered chain Hot < Warm < Cold. Hot is the most
// protected tier, Cold is the admission tier and the only tier entries are
// evicted from.
package model
