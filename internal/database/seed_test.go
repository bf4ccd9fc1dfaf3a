// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package database

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/marquee-rec/marquee/internal/recommend"
	"github.com/marquee-rec/marquee/internal/recommend/matrix"
)

func TestSampleRatings(t *testing.T) {
	ids := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	a := sampleRatings(ids, now)
	b := sampleRatings(ids, now)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("sampleRatings should be deterministic")
	}

	perUser := make(map[int]int)
	seen := make(map[[2]int]bool)
	for _, r := range a {
		if !r.Valid() || r.Value < sampleMinRating || r.Value > sampleMaxRating {
			t.Errorf("rating %+v outside sample range", r)
		}
		key := [2]int{r.UserID, r.MovieID}
		if seen[key] {
			t.Errorf("duplicate rating %v", key)
		}
		seen[key] = true
		perUser[r.UserID]++
	}
	if len(perUser) != sampleUsers {
		t.Errorf("users = %d, want %d", len(perUser), sampleUsers)
	}
	for user, n := range perUser {
		if n < sampleMinPerUser || n > sampleMaxPerUser {
			t.Errorf("user %d rated %d movies, want %d..%d", user, n, sampleMinPerUser, sampleMaxPerUser)
		}
	}

	// The sample set trains under the default thresholds.
	cfg := recommend.DefaultConfig()
	m, err := matrix.Build(a, cfg.Matrix.MinRatingsPerUser, cfg.Matrix.MinRatingsPerMovie)
	if err != nil {
		t.Fatalf("matrix.Build(sample) error = %v", err)
	}
	if m.NumUsers() == 0 || m.NumMovies() == 0 {
		t.Errorf("sample matrix is empty: %d users, %d movies", m.NumUsers(), m.NumMovies())
	}
}

func TestSeedSample(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	res, err := SeedSample(ctx, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("SeedSample() error = %v", err)
	}
	if res.Skipped || res.Movies != len(SampleMovies) || res.Ratings == 0 {
		t.Fatalf("SeedSample() = %+v", res)
	}

	movies, ratings, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if movies != len(SampleMovies) || ratings != res.Ratings {
		t.Errorf("Counts() = %d, %d, want %d, %d", movies, ratings, len(SampleMovies), res.Ratings)
	}

	again, err := SeedSample(ctx, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("second SeedSample() error = %v", err)
	}
	if !again.Skipped {
		t.Error("second SeedSample() should skip a populated store")
	}
}
