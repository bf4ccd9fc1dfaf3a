// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package algorithms

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/marquee-rec/marquee/internal/recommend"
	"github.com/marquee-rec/marquee/internal/recommend/storage"
)

// LatentFactors is the immutable output of one ALS fit. It answers
// predictions and similarity queries without locking and is safe for
// concurrent use.
//
// Rows of UserFactors and entries of UserBias follow UserIDs; rows of
// ItemFactors and entries of ItemBias follow MovieIDs. Rated holds, per user
// row, the column indices the user rated in training.
type LatentFactors struct {
	GlobalMean  float64
	UserIDs     []int
	MovieIDs    []int
	UserFactors [][]float64
	ItemFactors [][]float64
	UserBias    []float64
	ItemBias    []float64
	Rated       [][]int

	Objective  float64
	Iterations int
	FittedAt   time.Time

	userIdx  map[int]int
	movieIdx map[int]int
}

// index builds the ID lookup maps.
func (f *LatentFactors) index() {
	f.userIdx = make(map[int]int, len(f.UserIDs))
	for i, id := range f.UserIDs {
		f.userIdx[id] = i
	}
	f.movieIdx = make(map[int]int, len(f.MovieIDs))
	for j, id := range f.MovieIDs {
		f.movieIdx[id] = j
	}
}

// Rank returns the latent dimension k.
func (f *LatentFactors) Rank() int {
	if len(f.ItemFactors) == 0 {
		return 0
	}
	return len(f.ItemFactors[0])
}

// NumUsers returns the number of users with factors.
func (f *LatentFactors) NumUsers() int { return len(f.UserIDs) }

// NumMovies returns the number of movies with factors.
func (f *LatentFactors) NumMovies() int { return len(f.MovieIDs) }

// UserFactor returns the latent vector of a user. The slice must not be modified.
func (f *LatentFactors) UserFactor(userID int) ([]float64, bool) {
	u, ok := f.userIdx[userID]
	if !ok {
		return nil, false
	}
	return f.UserFactors[u], true
}

// ItemFactor returns the latent vector of a movie. The slice must not be modified.
func (f *LatentFactors) ItemFactor(movieID int) ([]float64, bool) {
	i, ok := f.movieIdx[movieID]
	if !ok {
		return nil, false
	}
	return f.ItemFactors[i], true
}

// raw returns the unclamped prediction for row u and column i.
func (f *LatentFactors) raw(u, i int) float64 {
	return f.GlobalMean + f.UserBias[u] + f.ItemBias[i] + floats.Dot(f.UserFactors[u], f.ItemFactors[i])
}

func (f *LatentFactors) lookupUser(userID int) (int, error) {
	u, ok := f.userIdx[userID]
	if !ok {
		return 0, &recommend.UnknownEntityError{Kind: recommend.EntityUser, ID: userID}
	}
	return u, nil
}

// Predict returns mu + b_u + b_i + p_u'q_i clamped to the rating range.
// Users and movies filtered out of the training matrix are unknown.
func (f *LatentFactors) Predict(userID, movieID int) (float64, error) {
	u, err := f.lookupUser(userID)
	if err != nil {
		return 0, err
	}
	i, ok := f.movieIdx[movieID]
	if !ok {
		return 0, &recommend.UnknownEntityError{Kind: recommend.EntityMovie, ID: movieID}
	}
	return clampRating(f.raw(u, i)), nil
}

// RecommendFor predicts every movie the user did not rate in training and
// returns the top limit by descending prediction, ties by ascending movie ID.
// A limit of zero or less returns every candidate.
func (f *LatentFactors) RecommendFor(userID, limit int) ([]recommend.ScoredCandidate, error) {
	u, err := f.lookupUser(userID)
	if err != nil {
		return nil, err
	}

	rated := make(map[int]struct{}, len(f.Rated[u]))
	for _, i := range f.Rated[u] {
		rated[i] = struct{}{}
	}

	out := make([]recommend.ScoredCandidate, 0, len(f.MovieIDs)-len(rated))
	for i, movieID := range f.MovieIDs {
		if _, skip := rated[i]; skip {
			continue
		}
		out = append(out, recommend.ScoredCandidate{
			MovieID:  movieID,
			RawScore: clampRating(f.raw(u, i)),
			Source:   recommend.AlgorithmCollaborative,
		})
	}

	return recommend.TopCandidates(out, limit), nil
}

// SimilarUsers returns the k users whose factor vectors have the highest
// cosine similarity to userID's, excluding the user itself. Ties are broken
// by ascending user ID.
func (f *LatentFactors) SimilarUsers(userID, k int) ([]recommend.UserSimilarity, error) {
	u, err := f.lookupUser(userID)
	if err != nil {
		return nil, err
	}

	out := make([]recommend.UserSimilarity, 0, len(f.UserIDs)-1)
	for v, otherID := range f.UserIDs {
		if v == u {
			continue
		}
		out = append(out, recommend.UserSimilarity{
			UserID:     otherID,
			Similarity: cosineSimilarity(f.UserFactors[u], f.UserFactors[v]),
		})
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].Similarity != out[b].Similarity {
			return out[a].Similarity > out[b].Similarity
		}
		return out[a].UserID < out[b].UserID
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// SimilarItems returns the k movies whose factor vectors are closest to
// movieID's by cosine similarity, ties by ascending movie ID.
func (f *LatentFactors) SimilarItems(movieID, k int) ([]recommend.ScoredCandidate, error) {
	i, ok := f.movieIdx[movieID]
	if !ok {
		return nil, &recommend.UnknownEntityError{Kind: recommend.EntityMovie, ID: movieID}
	}

	out := make([]recommend.ScoredCandidate, 0, len(f.MovieIDs)-1)
	for j, otherID := range f.MovieIDs {
		if j == i {
			continue
		}
		out = append(out, recommend.ScoredCandidate{
			MovieID:  otherID,
			RawScore: cosineSimilarity(f.ItemFactors[i], f.ItemFactors[j]),
			Source:   recommend.AlgorithmCollaborative,
		})
	}
	return recommend.TopCandidates(out, k), nil
}

// State returns the serializable form of the factors.
func (f *LatentFactors) State() storage.CollaborativeState {
	return storage.CollaborativeState{
		GlobalMean:  f.GlobalMean,
		UserIDs:     f.UserIDs,
		MovieIDs:    f.MovieIDs,
		UserFactors: f.UserFactors,
		ItemFactors: f.ItemFactors,
		UserBias:    f.UserBias,
		ItemBias:    f.ItemBias,
		Rated:       f.Rated,
		Objective:   f.Objective,
		Iterations:  f.Iterations,
		FittedAt:    f.FittedAt,
	}
}

// RestoreFactors rebuilds LatentFactors from persisted state.
//
//nolint:gocritic // state passed by value mirrors storage.Store.Load usage
func RestoreFactors(s storage.CollaborativeState) (*LatentFactors, error) {
	nu, nm := len(s.UserIDs), len(s.MovieIDs)
	if nu == 0 || nm == 0 {
		return nil, &recommend.InsufficientDataError{Component: "collaborative", Reason: "persisted model is empty"}
	}
	if len(s.UserFactors) != nu || len(s.UserBias) != nu || len(s.Rated) != nu {
		return nil, fmt.Errorf("persisted model: user arrays disagree with %d user IDs", nu)
	}
	if len(s.ItemFactors) != nm || len(s.ItemBias) != nm {
		return nil, fmt.Errorf("persisted model: item arrays disagree with %d movie IDs", nm)
	}
	k := len(s.ItemFactors[0])
	for _, row := range s.UserFactors {
		if len(row) != k {
			return nil, fmt.Errorf("persisted model: user factor length %d, want %d", len(row), k)
		}
	}
	for _, row := range s.ItemFactors {
		if len(row) != k {
			return nil, fmt.Errorf("persisted model: item factor length %d, want %d", len(row), k)
		}
	}

	f := &LatentFactors{
		GlobalMean:  s.GlobalMean,
		UserIDs:     s.UserIDs,
		MovieIDs:    s.MovieIDs,
		UserFactors: s.UserFactors,
		ItemFactors: s.ItemFactors,
		UserBias:    s.UserBias,
		ItemBias:    s.ItemBias,
		Rated:       s.Rated,
		Objective:   s.Objective,
		Iterations:  s.Iterations,
		FittedAt:    s.FittedAt,
	}
	f.index()
	return f, nil
}
