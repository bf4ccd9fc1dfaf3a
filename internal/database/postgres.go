// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/marquee-rec/marquee/internal/recommend"
)

const postgresDriver = "postgres"

// foreignKeyViolation is the SQLSTATE for a rating of a missing movie.
const foreignKeyViolation = "23503"

// PostgresStore is the shared store used when several replicas serve the
// same catalogue.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// OpenPostgres connects a pool to url, waits for the server and creates the
// schema.
func OpenPostgres(ctx context.Context, url string, maxConns int32, logger zerolog.Logger) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &PostgresStore{
		pool:   pool,
		logger: logger.With().Str("component", "database").Str("driver", postgresDriver).Logger(),
	}

	if err := s.waitForDB(ctx, 30, time.Second); err != nil {
		pool.Close()
		return nil, err
	}
	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	s.logger.Info().Str("host", poolConfig.ConnConfig.Host).Int32("max_conns", poolConfig.MaxConns).Msg("Postgres store opened")
	return s, nil
}

// NewPostgresStore wraps an existing pool. The schema must already exist or
// be created with Migrate.
func NewPostgresStore(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: logger.With().Str("component", "database").Str("driver", postgresDriver).Logger(),
	}
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return s.createSchema(ctx)
}

func (s *PostgresStore) waitForDB(ctx context.Context, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = s.pool.Ping(ctx); err == nil {
			return nil
		}
		s.logger.Debug().Int("attempt", i+1).Err(err).Msg("Waiting for database")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("database not reachable after %d attempts: %w", attempts, err)
}

func (s *PostgresStore) createSchema(ctx context.Context) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Driver returns "postgres".
func (s *PostgresStore) Driver() string { return postgresDriver }

// Ratings returns every rating.
func (s *PostgresStore) Ratings(ctx context.Context) (ratings []recommend.RatingEntry, err error) {
	start := time.Now()
	defer func() { observe(postgresDriver, "ratings", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, selectRatings)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	ratings, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (recommend.RatingEntry, error) {
		var r recommend.RatingEntry
		err := row.Scan(&r.UserID, &r.MovieID, &r.Value, &r.RatedAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan ratings: %w", err)
	}
	return ratings, nil
}

// Movies returns the catalogue.
func (s *PostgresStore) Movies(ctx context.Context) (movies []recommend.MovieRecord, err error) {
	start := time.Now()
	defer func() { observe(postgresDriver, "movies", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, selectMovies)
	if err != nil {
		return nil, fmt.Errorf("query movies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m recommend.MovieRecord
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.Genre, &m.Director, &m.Year, &m.DurationMinutes); err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movies: %w", err)
	}
	return movies, nil
}

// AddMovie inserts m and returns its id. m.ID is ignored.
func (s *PostgresStore) AddMovie(ctx context.Context, m recommend.MovieRecord) (id int, err error) {
	if err := validateMovie(&m); err != nil {
		return 0, err
	}
	start := time.Now()
	defer func() { observe(postgresDriver, "add_movie", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	err = s.pool.QueryRow(ctx, insertMovie,
		m.Title, m.Description, m.Genre, m.Director, m.Year, m.DurationMinutes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert movie %q: %w", m.Title, err)
	}
	return id, nil
}

// UpsertRating stores r, replacing an earlier rating of the same movie.
func (s *PostgresStore) UpsertRating(ctx context.Context, r recommend.RatingEntry) (err error) {
	if err := validateRating(&r); err != nil {
		return err
	}
	if r.RatedAt.IsZero() {
		r.RatedAt = time.Now().UTC()
	}
	start := time.Now()
	defer func() { observe(postgresDriver, "upsert_rating", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if _, err = s.pool.Exec(ctx, upsertRating, r.UserID, r.MovieID, r.Value, r.RatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return fmt.Errorf("movie %d: %w", r.MovieID, ErrMovieNotFound)
		}
		return fmt.Errorf("upsert rating (user %d, movie %d): %w", r.UserID, r.MovieID, err)
	}
	return nil
}

// Counts returns the number of movies and ratings.
func (s *PostgresStore) Counts(ctx context.Context) (movies, ratings int, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if err := s.pool.QueryRow(ctx, countMovies).Scan(&movies); err != nil {
		return 0, 0, fmt.Errorf("count movies: %w", err)
	}
	if err := s.pool.QueryRow(ctx, countRatings).Scan(&ratings); err != nil {
		return movies, 0, fmt.Errorf("count ratings: %w", err)
	}
	return movies, ratings, nil
}

// Ping checks the pool.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
