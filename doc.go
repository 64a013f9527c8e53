// Package topiccache implements a tiered in-memory cache for topic result
// bundles, the component of a retrieval pipeline that decides which topics
// stay hot, warm, or cold under load.
//
// Entries are admitted into the Cold tier, promoted towards Hot as their
// usage score crosses configured thresholds, demoted when it falls, and
// evicted only from Cold. Every tier is capacity-bounded; admission into a
// full tier displaces that tier's least-valuable entry one tier down rather
// than destroying it, except displacement out of Cold, which is a true
// eviction.
//
// The in-memory store is authoritative for the life of the process. A
// persistence gateway receives every mutation asynchronously and provides
// the snapshot the cache is rebuilt from at startup.
//
//	gw := persistence.NewMemoryGateway()
//	cache, err := topiccache.New(gw,
//	    topiccache.WithTierCapacity(model.TierHot, 8),
//	    topiccache.WithTierCapacity(model.TierWarm, 32),
//	    topiccache.WithTierCapacity(model.TierCold, 128),
//	)
//	if err != nil { ... }
//	if err := cache.Initialize(ctx); err != nil { ... }
//	defer cache.Close(ctx)
//
//	state, ok, err := cache.Lookup(ctx, key)
package topiccache
