// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package recommend

import (
	"sort"
)

// Normalize min-max scales the RawScore of each candidate into
// NormalizedScore in [0, 1]. A single element or a list with zero variance
// normalizes every member to 1.0. The input slice is not modified.
func Normalize(c []ScoredCandidate) []ScoredCandidate {
	out := make([]ScoredCandidate, len(c))
	copy(out, c)
	if len(out) == 0 {
		return out
	}

	lo, hi := out[0].RawScore, out[0].RawScore
	for _, s := range out[1:] {
		if s.RawScore < lo {
			lo = s.RawScore
		}
		if s.RawScore > hi {
			hi = s.RawScore
		}
	}

	span := hi - lo
	for i := range out {
		if span == 0 {
			out[i].NormalizedScore = 1.0
			continue
		}
		out[i].NormalizedScore = (out[i].RawScore - lo) / span
	}
	return out
}

// Combine blends collaborative and content-based candidates into one ranked
// result. Each list is normalized on its own; a movie present in both lists
// scores weight*collab + (1-weight)*content, and a movie present in one list
// keeps that list's normalized score. Duplicate movie IDs within a list keep
// their best score.
//
// Combine is pure. Callers validate weight with ValidateWeight.
func Combine(collab, content []ScoredCandidate, weight float64, limit int) RecommendationResult {
	c := bestPerMovie(Normalize(collab))
	t := bestPerMovie(Normalize(content))

	scores := make(map[int]float64, len(c)+len(t))
	sources := make(map[int]Algorithm, len(c)+len(t))

	for id, cs := range c {
		if ts, ok := t[id]; ok {
			scores[id] = weight*cs + (1-weight)*ts
			sources[id] = AlgorithmHybrid
			continue
		}
		scores[id] = cs
		sources[id] = AlgorithmCollaborative
	}
	for id, ts := range t {
		if _, ok := c[id]; ok {
			continue
		}
		scores[id] = ts
		sources[id] = AlgorithmContent
	}

	items := make([]Recommendation, 0, len(scores))
	for id, s := range scores {
		items = append(items, Recommendation{MovieID: id, Score: s, Algorithm: sources[id]})
	}
	SortRecommendations(items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	return RecommendationResult{Requested: AlgorithmHybrid, Items: items}
}

func bestPerMovie(c []ScoredCandidate) map[int]float64 {
	m := make(map[int]float64, len(c))
	for _, s := range c {
		if cur, ok := m[s.MovieID]; !ok || s.NormalizedScore > cur {
			m[s.MovieID] = s.NormalizedScore
		}
	}
	return m
}

// SortRecommendations orders by descending Score, ties by ascending MovieID.
func SortRecommendations(items []Recommendation) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].MovieID < items[j].MovieID
	})
}

// ToRecommendations converts ranked candidates into result items using the
// raw score, which is rating-scale for collaborative and cosine for content.
func ToRecommendations(c []ScoredCandidate, algo Algorithm) []Recommendation {
	items := make([]Recommendation, len(c))
	for i, s := range c {
		items[i] = Recommendation{MovieID: s.MovieID, Score: s.RawScore, Algorithm: algo}
	}
	return items
}
