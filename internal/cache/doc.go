// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

// Package cache caches recommendation results.
//
// Results layers two tiers:
//
//   - LRU: in-process, capacity-bounded, per-entry TTL
//   - RedisCache: shared across replicas, behind a sony/gobreaker circuit
//     breaker
//
// Values are stored as JSON. Keys carry the snapshot epoch and version (see
// Key), so publishing a new snapshot or restarting the process invalidates
// every older result at once. Evict later frees a superseded snapshot in
// both tiers.
//
//	results := cache.NewResults(1000, 5*time.Minute, redisCache, logger)
//	key := cache.Key(snap.Epoch, snap.Version, "recs", userID, algo, limit)
//	var res recommend.RecommendationResult
//	if !results.Get(ctx, key, &res) {
//	    res = compute()
//	    results.Set(ctx, key, res)
//	}
//
// Lookups record cache_hits_total and cache_misses_total by tier.
package cache
