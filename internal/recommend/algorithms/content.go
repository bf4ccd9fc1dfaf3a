// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package algorithms

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/marquee-rec/marquee/internal/recommend"
	"github.com/marquee-rec/marquee/internal/recommend/textindex"
)

// ContentBasedConfig contains configuration for content-based filtering.
type ContentBasedConfig struct {
	// Weighting selects how each rating contributes to the profile.
	Weighting recommend.ProfileWeighting
}

// ContentBased recommends movies whose metadata resembles what a user rated
// highly. It holds no per-user state: the profile is derived from the
// ratings passed to each call and discarded afterwards.
//
// The profile is the weighted average of the rated movies' TF-IDF vectors:
//
//	profile = sum(w_i * v_i) / sum(|w_i|)
//
// Under mean-centered weighting w_i = r_i - mean(r), so movies rated below
// the user's own average pull the profile away from similar content.
type ContentBased struct {
	index     *textindex.Index
	weighting recommend.ProfileWeighting
}

// NewContentBased creates a content-based model over a built index.
func NewContentBased(index *textindex.Index, cfg ContentBasedConfig) *ContentBased {
	if cfg.Weighting == "" {
		cfg.Weighting = recommend.WeightMeanCentered
	}
	return &ContentBased{
		index:     index,
		weighting: cfg.Weighting,
	}
}

// Index returns the feature index the model scores against.
func (c *ContentBased) Index() *textindex.Index {
	return c.index
}

// Profile builds the user's dense profile vector over the index vocabulary.
// It returns *recommend.EmptyProfileError when no rating carries signal.
//
//nolint:gocritic // rangeValCopy: RatingEntry is small
func (c *ContentBased) Profile(userID int, ratings []recommend.RatingEntry) ([]float64, error) {
	if len(ratings) == 0 {
		return nil, &recommend.EmptyProfileError{UserID: userID, Reason: "no ratings"}
	}

	type rated struct {
		vec   textindex.Vector
		value float64
	}
	usable := make([]rated, 0, len(ratings))
	values := make([]float64, 0, len(ratings))
	for _, r := range ratings {
		if !r.Valid() {
			continue
		}
		v, err := c.index.VectorOf(r.MovieID)
		if err != nil {
			continue
		}
		usable = append(usable, rated{vec: v, value: r.Value})
		values = append(values, r.Value)
	}
	if len(usable) == 0 {
		return nil, &recommend.EmptyProfileError{UserID: userID, Reason: "no rated movie is in the catalogue"}
	}

	var mean float64
	if c.weighting == recommend.WeightMeanCentered {
		mean = stat.Mean(values, nil)
	}

	profile := make([]float64, c.index.Dim())
	var total float64
	for _, r := range usable {
		w := r.value - mean
		if w == 0 || r.vec.IsZero() {
			continue
		}
		r.vec.AddTo(profile, w)
		total += math.Abs(w)
	}
	if total == 0 {
		return nil, &recommend.EmptyProfileError{UserID: userID, Reason: "all ratings carry zero weight"}
	}
	floats.Scale(1/total, profile)

	if floats.Norm(profile, 2) == 0 {
		return nil, &recommend.EmptyProfileError{UserID: userID, Reason: "rated movies cancel out"}
	}
	return profile, nil
}

// RecommendFor scores every candidate by cosine similarity to the user's
// profile and returns the top limit, ties by ascending movie ID. Candidates
// missing from the index are skipped. Scores lie in [-1, 1]; a negative score
// means the movie resembles what the user disliked.
func (c *ContentBased) RecommendFor(userID int, ratings []recommend.RatingEntry, candidates map[int]struct{}, limit int) ([]recommend.ScoredCandidate, error) {
	profile, err := c.Profile(userID, ratings)
	if err != nil {
		return nil, err
	}
	pn := floats.Norm(profile, 2)

	out := make([]recommend.ScoredCandidate, 0, len(candidates))
	for movieID := range candidates {
		v, err := c.index.VectorOf(movieID)
		if err != nil {
			continue
		}
		var score float64
		if vn := v.Norm(); vn > 0 {
			score = v.DotDense(profile) / (pn * vn)
		}
		out = append(out, recommend.ScoredCandidate{
			MovieID:  movieID,
			RawScore: score,
			Source:   recommend.AlgorithmContent,
		})
	}

	return recommend.TopCandidates(out, limit), nil
}

// SimilarMovies returns the movies nearest to movieID in feature space.
func (c *ContentBased) SimilarMovies(movieID, limit int) ([]recommend.ScoredCandidate, error) {
	return c.index.Nearest(movieID, limit)
}
