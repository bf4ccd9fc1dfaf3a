// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Rating bounds. Collaborative predictions are clamped to this range.
const (
	MinRating = 0.5
	MaxRating = 5.0
)

// Algorithm selects which model answers a recommendation request.
type Algorithm string

const (
	// AlgorithmCollaborative ranks by latent-factor predicted rating.
	AlgorithmCollaborative Algorithm = "collaborative"
	// AlgorithmContent ranks by similarity to the user's content profile.
	AlgorithmContent Algorithm = "content"
	// AlgorithmHybrid blends the two lists above.
	AlgorithmHybrid Algorithm = "hybrid"
	// AlgorithmPopularity ranks by average rating across all users.
	AlgorithmPopularity Algorithm = "popularity"
)

// ParseAlgorithm converts a request value to an Algorithm.
// "content_based" is accepted as an alias for content.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "collaborative":
		return AlgorithmCollaborative, nil
	case "content", "content_based":
		return AlgorithmContent, nil
	case "hybrid", "":
		return AlgorithmHybrid, nil
	case "popularity", "trending":
		return AlgorithmPopularity, nil
	default:
		return "", &InvalidConfigurationError{
			Field:  "algorithm",
			Reason: fmt.Sprintf("must be one of collaborative, content, hybrid, popularity (got %q)", s),
		}
	}
}

// String returns the algorithm name.
func (a Algorithm) String() string {
	return string(a)
}

// RatingEntry is one user's rating of one movie, as recorded by the store.
type RatingEntry struct {
	UserID  int       `json:"user_id"`
	MovieID int       `json:"movie_id"`
	Value   float64   `json:"rating"`
	RatedAt time.Time `json:"rated_at"`
}

// Valid reports whether the rating value lies in [MinRating, MaxRating].
func (r RatingEntry) Valid() bool {
	return !math.IsNaN(r.Value) && r.Value >= MinRating && r.Value <= MaxRating
}

// MovieRecord is the fixed metadata schema the content index reads.
type MovieRecord struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Genre           string `json:"genre"`
	Director        string `json:"director"`
	Year            int    `json:"year,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

// Text returns the fields that feed the content index.
//
//nolint:gocritic // value receiver keeps MovieRecord usable in range loops
func (m MovieRecord) Text() string {
	return strings.Join([]string{m.Title, m.Description, m.Genre, m.Director}, " ")
}

// ScoredCandidate is a transient per-request score from one algorithm.
type ScoredCandidate struct {
	MovieID         int       `json:"movie_id"`
	RawScore        float64   `json:"raw_score"`
	NormalizedScore float64   `json:"normalized_score"`
	Source          Algorithm `json:"source"`
}

// Recommendation is one entry of a RecommendationResult.
type Recommendation struct {
	MovieID   int       `json:"movie_id"`
	Score     float64   `json:"score"`
	Algorithm Algorithm `json:"algorithm"`
}

// RecommendationResult is the ordered output of the Service.
// It never holds more than the requested limit or duplicate movie IDs.
type RecommendationResult struct {
	UserID          int              `json:"user_id"`
	Requested       Algorithm        `json:"requested"`
	Items           []Recommendation `json:"items"`
	Degraded        bool             `json:"degraded,omitempty"`
	SnapshotVersion int64            `json:"snapshot_version"`
}

// UserSimilarity pairs a neighbour with its cosine similarity.
type UserSimilarity struct {
	UserID     int     `json:"user_id"`
	Similarity float64 `json:"similarity"`
}

// SortCandidates orders candidates by descending RawScore, breaking ties by
// ascending MovieID.
func SortCandidates(c []ScoredCandidate) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].RawScore != c[j].RawScore {
			return c[i].RawScore > c[j].RawScore
		}
		return c[i].MovieID < c[j].MovieID
	})
}

// TopCandidates sorts c and truncates it to limit. A limit of zero or less
// keeps everything.
func TopCandidates(c []ScoredCandidate, limit int) []ScoredCandidate {
	SortCandidates(c)
	if limit > 0 && len(c) > limit {
		c = c[:limit]
	}
	return c
}
