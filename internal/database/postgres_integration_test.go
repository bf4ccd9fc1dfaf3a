// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

//go:build integration

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/marquee-rec/marquee/internal/recommend"
	"github.com/marquee-rec/marquee/internal/testinfra"
)

func TestPostgresStore_Integration(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg, err := testinfra.NewPostgresContainer(ctx, t)
	if err != nil {
		t.Fatalf("NewPostgresContainer() error = %v", err)
	}

	store, err := OpenPostgres(ctx, pg.URL, 4, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenPostgres() error = %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() should be idempotent: %v", err)
	}

	res, err := SeedSample(ctx, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("SeedSample() error = %v", err)
	}

	movies, err := store.Movies(ctx)
	if err != nil {
		t.Fatalf("Movies() error = %v", err)
	}
	if len(movies) != len(SampleMovies) || movies[0].Title != SampleMovies[0].Title {
		t.Errorf("Movies() = %d rows, first %q", len(movies), movies[0].Title)
	}

	ratings, err := store.Ratings(ctx)
	if err != nil {
		t.Fatalf("Ratings() error = %v", err)
	}
	if len(ratings) != res.Ratings {
		t.Errorf("len(Ratings()) = %d, want %d", len(ratings), res.Ratings)
	}

	r := recommend.RatingEntry{UserID: 1, MovieID: movies[0].ID, Value: 1}
	if err := store.UpsertRating(ctx, r); err != nil {
		t.Fatalf("UpsertRating() error = %v", err)
	}
	_, n, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if n != res.Ratings && n != res.Ratings+1 {
		t.Errorf("Counts() ratings = %d, want %d or %d", n, res.Ratings, res.Ratings+1)
	}

	err = store.UpsertRating(ctx, recommend.RatingEntry{UserID: 1, MovieID: 99999, Value: 3})
	if !errors.Is(err, ErrMovieNotFound) {
		t.Errorf("UpsertRating(unknown movie) error = %v, want ErrMovieNotFound", err)
	}
}
