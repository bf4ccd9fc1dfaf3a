// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package algorithms

import (
	"context"

	"github.com/marquee-rec/marquee/internal/recommend"
)

// Popularity ranks movies by their average rating across all users. It is
// the user-independent baseline behind the trending endpoint and the
// popularity algorithm.
//
// The score is the damped mean
//
//	score(movie) = (sum(r) + prior * mu) / (count + prior)
//
// where mu is the global mean rating. With Prior = 0 this is the plain
// average; a positive prior keeps a single 5-star rating from outranking a
// movie rated 4.8 by hundreds of users.
type Popularity struct {
	BaseAlgorithm

	// Configuration
	minRatings int
	prior      float64

	// Trained model
	ranked []recommend.ScoredCandidate
}

// PopularityConfig contains configuration for the popularity algorithm.
type PopularityConfig struct {
	// MinRatings excludes movies with fewer ratings.
	// Default: 1.
	MinRatings int

	// Prior is the number of virtual global-mean ratings added to each movie.
	Prior float64
}

// NewPopularity creates a new popularity algorithm.
func NewPopularity(cfg PopularityConfig) *Popularity {
	if cfg.MinRatings <= 0 {
		cfg.MinRatings = 1
	}
	if cfg.Prior < 0 {
		cfg.Prior = 0
	}

	return &Popularity{
		BaseAlgorithm: NewBaseAlgorithm("popularity"),
		minRatings:    cfg.MinRatings,
		prior:         cfg.Prior,
	}
}

// Train computes average ratings. Invalid ratings are ignored.
//
//nolint:gocritic // rangeValCopy: RatingEntry is passed by value in range, acceptable for clarity
func (p *Popularity) Train(ctx context.Context, ratings []recommend.RatingEntry) error {
	p.acquireTrainLock()
	defer p.releaseTrainLock()

	// Clear previous model
	p.ranked = nil

	sums := make(map[int]float64)
	counts := make(map[int]int)
	var total float64
	var n int
	for i, r := range ratings {
		if i%4096 == 0 && ContextCancelled(ctx) {
			return ctx.Err()
		}
		if !r.Valid() {
			continue
		}
		sums[r.MovieID] += r.Value
		counts[r.MovieID]++
		total += r.Value
		n++
	}

	if n == 0 {
		p.markTrained()
		return nil
	}
	mu := total / float64(n)

	p.ranked = make([]recommend.ScoredCandidate, 0, len(sums))
	for id, sum := range sums {
		c := counts[id]
		if c < p.minRatings {
			continue
		}
		p.ranked = append(p.ranked, recommend.ScoredCandidate{
			MovieID:  id,
			RawScore: (sum + p.prior*mu) / (float64(c) + p.prior),
			Source:   recommend.AlgorithmPopularity,
		})
	}
	recommend.SortCandidates(p.ranked)

	p.markTrained()
	return nil
}

// Top returns the limit highest-scoring movies not in exclude.
func (p *Popularity) Top(limit int, exclude map[int]struct{}) []recommend.ScoredCandidate {
	p.acquirePredictLock()
	defer p.releasePredictLock()

	if limit <= 0 {
		return nil
	}
	out := make([]recommend.ScoredCandidate, 0, min(limit, len(p.ranked)))
	for _, c := range p.ranked {
		if len(out) >= limit {
			break
		}
		if _, skip := exclude[c.MovieID]; skip {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Len returns the number of ranked movies.
func (p *Popularity) Len() int {
	p.acquirePredictLock()
	defer p.releasePredictLock()
	return len(p.ranked)
}
