// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/marquee-rec/marquee/internal/config"
	"github.com/marquee-rec/marquee/internal/metrics"
	"github.com/marquee-rec/marquee/internal/recommend"
)

// defaultQueryTimeout bounds queries whose context carries no deadline.
const defaultQueryTimeout = 30 * time.Second

// ErrInvalidRecord is returned when a movie or rating fails basic checks
// before it reaches the database.
var ErrInvalidRecord = errors.New("invalid record")

// ErrMovieNotFound is returned when a rating references a movie that is not
// in the catalogue.
var ErrMovieNotFound = errors.New("movie not found")

// Store is the rating and catalogue store. Both drivers satisfy
// trainer.DataSource through Ratings and Movies.
type Store interface {
	// Ratings returns every rating, ordered by user then movie.
	Ratings(ctx context.Context) ([]recommend.RatingEntry, error)

	// Movies returns the catalogue ordered by id.
	Movies(ctx context.Context) ([]recommend.MovieRecord, error)

	// AddMovie inserts a movie and returns its assigned id.
	AddMovie(ctx context.Context, m recommend.MovieRecord) (int, error)

	// UpsertRating inserts a rating or replaces the user's previous rating
	// of the same movie. It returns ErrMovieNotFound for unknown movies.
	UpsertRating(ctx context.Context, r recommend.RatingEntry) error

	// Counts returns the number of movies and ratings.
	Counts(ctx context.Context) (movies, ratings int, err error)

	Ping(ctx context.Context) error
	Close() error

	// Driver names the backend for metrics and logs.
	Driver() string
}

// Open connects to the store selected by cfg.Driver and creates the schema.
func Open(ctx context.Context, cfg *config.DatabaseConfig, logger zerolog.Logger) (Store, error) {
	switch cfg.Driver {
	case config.DriverDuckDB, "":
		return OpenDuckDB(ctx, cfg.Path, logger)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.URL, cfg.MaxConns, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// ensureContext applies defaultQueryTimeout when ctx has no deadline.
func ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, defaultQueryTimeout)
	}
	return ctx, func() {}
}

// observe records a query's duration and outcome.
func observe(driver, operation string, start time.Time, err error) {
	metrics.RecordDBQuery(driver, operation, time.Since(start), err)
}

func validateMovie(m *recommend.MovieRecord) error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("%w: movie title is required", ErrInvalidRecord)
	}
	if m.Year < 0 || m.DurationMinutes < 0 {
		return fmt.Errorf("%w: year and duration must not be negative", ErrInvalidRecord)
	}
	return nil
}

func validateRating(r *recommend.RatingEntry) error {
	if r.UserID < 1 || r.MovieID < 1 {
		return fmt.Errorf("%w: user and movie ids must be positive", ErrInvalidRecord)
	}
	if !r.Valid() {
		return fmt.Errorf("%w: rating %v outside [%v, %v]", ErrInvalidRecord, r.Value, recommend.MinRating, recommend.MaxRating)
	}
	return nil
}
