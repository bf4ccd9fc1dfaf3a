// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

// Package algorithms implements the models behind the recommendation service.
//
// # Models
//
// Collaborative filtering:
//   - ALS: biased alternating least squares over the filtered rating matrix.
//     Fit produces an immutable LatentFactors value that serves predictions,
//     user recommendations and user/movie similarity.
//
// Content-based filtering:
//   - ContentBased: cosine similarity between a user's rating-weighted
//     profile and the TF-IDF vectors of candidate movies.
//
// Baseline:
//   - Popularity: damped mean rating per movie, used for trending and as
//     the user-independent fallback.
//
// # ALS Objective
//
// For every observed rating r(u,i) the model minimizes
//
//	(r - mu - b_u - b_i - p_u . q_i)^2 + lambda * (|p_u|^2 + b_u^2 + |q_i|^2 + b_i^2)
//
// Each half-step solves one small ridge regression per user (or movie) with
// a Cholesky factorization; rows are split across NumWorkers goroutines.
// Iteration stops after NumIterations or once the relative improvement of
// the objective drops to Tolerance.
//
// # Lifecycle
//
// Models embed BaseAlgorithm, which tracks
//
//	untrained -> trained -> stale -> trained
//
// A retrain trigger marks a trained model stale; it keeps serving until the
// next fit replaces it.
//
// # Usage Example
//
//	m, err := matrix.Build(ratings, 5, 3)
//	if err != nil {
//	    return err
//	}
//	als := algorithms.NewALS(algorithms.ALSConfigFrom(cfg.Collaborative))
//	factors, err := als.Fit(ctx, m)
//	if err != nil {
//	    return err
//	}
//	top, err := factors.RecommendFor(userID, 10)
//
// # Thread Safety
//
// LatentFactors and ContentBased are immutable after construction and safe
// for concurrent reads. ALS.Fit takes the exclusive lock only to publish its
// result; Popularity.Train holds it for the whole pass.
package algorithms
