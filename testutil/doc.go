// Package testutil provides deterministic helpers for cache tests: a seeded
// thread-safe RNG, topic key/state generators, and a manually advanced clock.
package testutil
