// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package recommend

import (
	"sort"
	"time"
)

// CollaborativeModel is the read side of a trained latent-factor model.
type CollaborativeModel interface {
	// Predict returns the clamped predicted rating of movieID by userID.
	Predict(userID, movieID int) (float64, error)

	// RecommendFor ranks movies the user did not rate in training.
	RecommendFor(userID, limit int) ([]ScoredCandidate, error)

	// SimilarUsers returns the k nearest users in factor space.
	SimilarUsers(userID, k int) ([]UserSimilarity, error)

	// SimilarItems returns the k nearest movies in factor space.
	SimilarItems(movieID, k int) ([]ScoredCandidate, error)
}

// ContentModel is the read side of a content-based model.
type ContentModel interface {
	// RecommendFor scores candidates against the profile built from ratings.
	RecommendFor(userID int, ratings []RatingEntry, candidates map[int]struct{}, limit int) ([]ScoredCandidate, error)

	// SimilarMovies returns the movies closest to movieID in feature space.
	SimilarMovies(movieID, limit int) ([]ScoredCandidate, error)
}

// PopularityModel ranks movies without any user signal.
type PopularityModel interface {
	Top(limit int, exclude map[int]struct{}) []ScoredCandidate
}

// SnapshotStats describes the data a snapshot was trained on.
type SnapshotStats struct {
	Ratings      int     `json:"ratings"`
	Users        int     `json:"users"`
	Movies       int     `json:"movies"`
	MatrixUsers  int     `json:"matrix_users"`
	MatrixMovies int     `json:"matrix_movies"`
	MatrixCells  int     `json:"matrix_cells"`
	Vocabulary   int     `json:"vocabulary"`
	Objective    float64 `json:"objective"`
	Iterations   int     `json:"iterations"`
}

// Snapshot is one immutable generation of trained models together with the
// rating history they were trained on. A model that failed to build is nil
// and its error is kept alongside it.
//
// Snapshots must not be modified after Service.Publish.
type Snapshot struct {
	Version   int64
	Epoch     string
	TrainedAt time.Time

	Collaborative    CollaborativeModel
	CollaborativeErr error

	Content    ContentModel
	ContentErr error

	Popularity PopularityModel

	Stats SnapshotStats

	ratingsByUser map[int][]RatingEntry
	movies        map[int]MovieRecord
	movieIDs      []int
}

// NewSnapshot indexes ratings and movies for serving. Invalid ratings are
// dropped and duplicate (user, movie) pairs keep the most recent entry.
func NewSnapshot(ratings []RatingEntry, movies []MovieRecord) *Snapshot {
	s := &Snapshot{
		TrainedAt:     time.Now().UTC(),
		ratingsByUser: make(map[int][]RatingEntry),
		movies:        make(map[int]MovieRecord, len(movies)),
	}

	for i := range movies {
		s.movies[movies[i].ID] = movies[i]
	}
	s.movieIDs = make([]int, 0, len(s.movies))
	for id := range s.movies {
		s.movieIDs = append(s.movieIDs, id)
	}
	sort.Ints(s.movieIDs)

	type key struct{ u, m int }
	latest := make(map[key]RatingEntry, len(ratings))
	for _, r := range ratings {
		if !r.Valid() {
			continue
		}
		k := key{r.UserID, r.MovieID}
		if prev, ok := latest[k]; ok && prev.RatedAt.After(r.RatedAt) {
			continue
		}
		latest[k] = r
	}
	for _, r := range latest {
		s.ratingsByUser[r.UserID] = append(s.ratingsByUser[r.UserID], r)
	}
	for u := range s.ratingsByUser {
		rs := s.ratingsByUser[u]
		sort.Slice(rs, func(i, j int) bool { return rs[i].MovieID < rs[j].MovieID })
	}

	s.Stats.Ratings = len(latest)
	s.Stats.Users = len(s.ratingsByUser)
	s.Stats.Movies = len(s.movies)
	return s
}

// RatingsFor returns the user's ratings ordered by movie ID.
func (s *Snapshot) RatingsFor(userID int) []RatingEntry {
	return s.ratingsByUser[userID]
}

// HasUser reports whether the user has any rating in the snapshot.
func (s *Snapshot) HasUser(userID int) bool {
	_, ok := s.ratingsByUser[userID]
	return ok
}

// Movie looks up catalogue metadata.
func (s *Snapshot) Movie(id int) (MovieRecord, bool) {
	m, ok := s.movies[id]
	return m, ok
}

// MovieIDs returns every catalogue movie in ascending order.
func (s *Snapshot) MovieIDs() []int {
	return s.movieIDs
}

// Ready reports whether at least one personalised model is available.
func (s *Snapshot) Ready() bool {
	return s.Collaborative != nil || s.Content != nil
}

func (s *Snapshot) ratedSet(userID int) map[int]struct{} {
	rs := s.ratingsByUser[userID]
	set := make(map[int]struct{}, len(rs))
	for _, r := range rs {
		set[r.MovieID] = struct{}{}
	}
	return set
}

func (s *Snapshot) candidates(exclude map[int]struct{}) map[int]struct{} {
	out := make(map[int]struct{}, len(s.movieIDs))
	for _, id := range s.movieIDs {
		if _, skip := exclude[id]; !skip {
			out[id] = struct{}{}
		}
	}
	return out
}
