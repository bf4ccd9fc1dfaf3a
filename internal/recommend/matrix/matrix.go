// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

// Package matrix materializes the sparse user x movie rating matrix that the
// collaborative model trains on.
//
// Users and movies below the minimum-support thresholds are absent from the
// matrix, never zero-filled. Row and column indices follow ascending user and
// movie IDs so that the same ratings always produce the same layout.
package matrix

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/marquee-rec/marquee/internal/recommend"
)

// Cell is one stored rating, addressed by the index of the other axis.
type Cell struct {
	Index int
	Value float64
}

// Stats records what Build discarded.
type Stats struct {
	Input         int `json:"input"`
	Invalid       int `json:"invalid"`
	Duplicates    int `json:"duplicates"`
	DroppedUsers  int `json:"dropped_users"`
	DroppedMovies int `json:"dropped_movies"`
	Passes        int `json:"passes"`
}

// RatingMatrix is an immutable sparse rating matrix.
type RatingMatrix struct {
	users    []int
	movies   []int
	userIdx  map[int]int
	movieIdx map[int]int

	rows [][]Cell // by user index, sorted by movie index
	cols [][]Cell // by movie index, sorted by user index

	cells int
	mean  float64
	stats Stats
}

type pair struct{ user, movie int }

// Build creates a RatingMatrix from ratings.
//
// Duplicate (user, movie) pairs keep the most recent entry; equal timestamps
// keep the later one in input order. Ratings outside the valid range are
// dropped. Users with fewer than minPerUser ratings and movies with fewer than
// minPerMovie ratings are removed repeatedly until nothing else changes.
func Build(ratings []recommend.RatingEntry, minPerUser, minPerMovie int) (*RatingMatrix, error) {
	if minPerUser < 1 {
		return nil, &recommend.InvalidConfigurationError{
			Field:  "matrix.min_ratings_per_user",
			Reason: fmt.Sprintf("must be positive, got %d", minPerUser),
		}
	}
	if minPerMovie < 1 {
		return nil, &recommend.InvalidConfigurationError{
			Field:  "matrix.min_ratings_per_movie",
			Reason: fmt.Sprintf("must be positive, got %d", minPerMovie),
		}
	}

	stats := Stats{Input: len(ratings)}

	latest := make(map[pair]recommend.RatingEntry, len(ratings))
	for _, r := range ratings {
		if !r.Valid() {
			stats.Invalid++
			continue
		}
		k := pair{r.UserID, r.MovieID}
		if prev, ok := latest[k]; ok {
			stats.Duplicates++
			if prev.RatedAt.After(r.RatedAt) {
				continue
			}
		}
		latest[k] = r
	}

	entries := make([]recommend.RatingEntry, 0, len(latest))
	for _, r := range latest {
		entries = append(entries, r)
	}
	sort.Slice(entries, func(a, b int) bool {
		if entries[a].UserID != entries[b].UserID {
			return entries[a].UserID < entries[b].UserID
		}
		return entries[a].MovieID < entries[b].MovieID
	})

	entries, stats = filter(entries, minPerUser, minPerMovie, stats)
	if len(entries) == 0 {
		return nil, &recommend.InsufficientDataError{
			Component: "matrix",
			Reason: fmt.Sprintf("no users with >= %d ratings on movies with >= %d ratings (%d valid ratings)",
				minPerUser, minPerMovie, len(latest)),
		}
	}

	return assemble(entries, stats), nil
}

// filter drops under-supported users and movies until a fixed point.
func filter(entries []recommend.RatingEntry, minPerUser, minPerMovie int, stats Stats) ([]recommend.RatingEntry, Stats) {
	for {
		stats.Passes++

		perUser := make(map[int]int)
		for _, r := range entries {
			perUser[r.UserID]++
		}
		kept := entries[:0]
		for _, r := range entries {
			if perUser[r.UserID] >= minPerUser {
				kept = append(kept, r)
			}
		}
		for _, n := range perUser {
			if n < minPerUser {
				stats.DroppedUsers++
			}
		}

		perMovie := make(map[int]int)
		for _, r := range kept {
			perMovie[r.MovieID]++
		}
		next := kept[:0]
		for _, r := range kept {
			if perMovie[r.MovieID] >= minPerMovie {
				next = append(next, r)
			}
		}
		for _, n := range perMovie {
			if n < minPerMovie {
				stats.DroppedMovies++
			}
		}

		changed := len(next) != len(entries)
		entries = next
		if !changed || len(entries) == 0 {
			return entries, stats
		}
	}
}

func assemble(entries []recommend.RatingEntry, stats Stats) *RatingMatrix {
	m := &RatingMatrix{
		userIdx:  make(map[int]int),
		movieIdx: make(map[int]int),
		cells:    len(entries),
		stats:    stats,
	}

	for _, r := range entries {
		m.userIdx[r.UserID] = 0
		m.movieIdx[r.MovieID] = 0
	}
	m.users = sortedKeys(m.userIdx)
	m.movies = sortedKeys(m.movieIdx)
	for i, id := range m.users {
		m.userIdx[id] = i
	}
	for j, id := range m.movies {
		m.movieIdx[id] = j
	}

	m.rows = make([][]Cell, len(m.users))
	m.cols = make([][]Cell, len(m.movies))
	values := make([]float64, 0, len(entries))
	for _, r := range entries {
		i, j := m.userIdx[r.UserID], m.movieIdx[r.MovieID]
		m.rows[i] = append(m.rows[i], Cell{Index: j, Value: r.Value})
		m.cols[j] = append(m.cols[j], Cell{Index: i, Value: r.Value})
		values = append(values, r.Value)
	}
	for _, row := range m.rows {
		sortCells(row)
	}
	for _, col := range m.cols {
		sortCells(col)
	}

	m.mean = stat.Mean(values, nil)
	return m
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortCells(c []Cell) {
	sort.Slice(c, func(a, b int) bool { return c[a].Index < c[b].Index })
}

// NumUsers returns the number of rows.
func (m *RatingMatrix) NumUsers() int { return len(m.users) }

// NumMovies returns the number of columns.
func (m *RatingMatrix) NumMovies() int { return len(m.movies) }

// Len returns the number of stored cells.
func (m *RatingMatrix) Len() int { return m.cells }

// Users returns user IDs in row order. The slice must not be modified.
func (m *RatingMatrix) Users() []int { return m.users }

// Movies returns movie IDs in column order. The slice must not be modified.
func (m *RatingMatrix) Movies() []int { return m.movies }

// UserIndex returns the row of userID.
func (m *RatingMatrix) UserIndex(userID int) (int, bool) {
	i, ok := m.userIdx[userID]
	return i, ok
}

// MovieIndex returns the column of movieID.
func (m *RatingMatrix) MovieIndex(movieID int) (int, bool) {
	j, ok := m.movieIdx[movieID]
	return j, ok
}

// Row returns the cells of user row i keyed by movie index.
func (m *RatingMatrix) Row(i int) []Cell { return m.rows[i] }

// Col returns the cells of movie column j keyed by user index.
func (m *RatingMatrix) Col(j int) []Cell { return m.cols[j] }

// GlobalMean returns the mean of all stored ratings.
func (m *RatingMatrix) GlobalMean() float64 { return m.mean }

// Stats returns what Build discarded.
func (m *RatingMatrix) Stats() Stats { return m.stats }
