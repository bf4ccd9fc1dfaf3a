// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

// Package recommend is the serving core of the movie recommendation engine.
//
// # Architecture
//
// Training and serving are separate. A trainer builds the models below from
// a read-only copy of the rating store and publishes them together as one
// immutable Snapshot:
//
//   - Rating matrix (package matrix): filtered user x movie ratings
//   - Content index (package textindex): TF-IDF vectors over movie metadata
//   - Collaborative model (package algorithms): biased ALS factorization
//   - Content-based model (package algorithms): rating-weighted profiles
//   - Popularity model (package algorithms): average rating baseline
//
// The Service answers queries against whichever snapshot is current. Publish
// swaps it atomically, so a request sees either the old generation or the new
// one and never a mix.
//
// # Algorithms
//
// Collaborative results are scored on the rating scale. Content results are
// cosine similarities. Hybrid results are a linear blend of the two lists
// after min-max normalization (see Combine) and lie in [0, 1].
//
// # Fallback
//
// Collaborative and content requests return their model's typed error.
// Hybrid requests degrade to whichever side could serve the user and set
// RecommendationResult.Degraded. When neither can, a *HybridUnavailableError
// wraps both causes. Movies the user already rated are never returned.
//
// # Usage
//
//	svc, err := recommend.NewService(recommend.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	svc.Publish(snapshot)
//
//	res, err := svc.Recommend(ctx, userID, 10, recommend.AlgorithmHybrid)
//	switch {
//	case errors.Is(err, recommend.ErrUnknownEntity):
//	    // cold start
//	case err != nil:
//	    return err
//	}
package recommend
