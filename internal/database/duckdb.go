// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/marquee-rec/marquee/internal/recommend"
)

const duckDBDriver = "duckdb"

// DuckDBStore is the embedded store used by single-node deployments.
type DuckDBStore struct {
	conn   *sql.DB
	path   string
	logger zerolog.Logger
}

// OpenDuckDB opens (or creates) the database at path. An empty path or
// ":memory:" keeps everything in memory.
func OpenDuckDB(ctx context.Context, path string, logger zerolog.Logger) (*DuckDBStore, error) {
	if path == "" {
		path = ":memory:"
	}

	connStr := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
		// Extensions are not used; skip auto-install so startup never reaches
		// for the network.
		connStr = fmt.Sprintf("%s?access_mode=read_write&threads=%d&autoinstall_known_extensions=false&autoload_known_extensions=false",
			path, runtime.NumCPU())
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	s := &DuckDBStore{
		conn:   conn,
		path:   path,
		logger: logger.With().Str("component", "database").Str("driver", duckDBDriver).Logger(),
	}

	if err := s.createSchema(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	s.logger.Info().Str("path", path).Msg("DuckDB store opened")
	return s, nil
}

func (s *DuckDBStore) createSchema(ctx context.Context) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	for _, stmt := range duckDBSchema {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Driver returns "duckdb".
func (s *DuckDBStore) Driver() string { return duckDBDriver }

// Path returns the database file path, or ":memory:".
func (s *DuckDBStore) Path() string { return s.path }

// Ratings returns every rating.
func (s *DuckDBStore) Ratings(ctx context.Context) (ratings []recommend.RatingEntry, err error) {
	start := time.Now()
	defer func() { observe(duckDBDriver, "ratings", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, selectRatings)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var r recommend.RatingEntry
		if err := rows.Scan(&r.UserID, &r.MovieID, &r.Value, &r.RatedAt); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return ratings, nil
}

// Movies returns the catalogue.
func (s *DuckDBStore) Movies(ctx context.Context) (movies []recommend.MovieRecord, err error) {
	start := time.Now()
	defer func() { observe(duckDBDriver, "movies", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, selectMovies)
	if err != nil {
		return nil, fmt.Errorf("query movies: %w", err)
	}
	defer closeQuietly(rows)

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
func (s *DuckDBStore) AddMovie(ctx context.Context, m recommend.MovieRecord) (id int, err error) {
	if err := validateMovie(&m); err != nil {
		return 0, err
	}
	start := time.Now()
	defer func() { observe(duckDBDriver, "add_movie", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	err = s.conn.QueryRowContext(ctx, insertMovie,
		m.Title, m.Description, m.Genre, m.Director, m.Year, m.DurationMinutes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert movie %q: %w", m.Title, err)
	}
	return id, nil
}

// UpsertRating stores r, replacing an earlier rating of the same movie.
// A zero RatedAt is stamped with the current time.
func (s *DuckDBStore) UpsertRating(ctx context.Context, r recommend.RatingEntry) (err error) {
	if err := validateRating(&r); err != nil {
		return err
	}
	if r.RatedAt.IsZero() {
		r.RatedAt = time.Now().UTC()
	}
	start := time.Now()
	defer func() { observe(duckDBDriver, "upsert_rating", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var exists bool
	if err = s.conn.QueryRowContext(ctx, movieExists, r.MovieID).Scan(&exists); err != nil {
		return fmt.Errorf("look up movie %d: %w", r.MovieID, err)
	}
	if !exists {
		return fmt.Errorf("movie %d: %w", r.MovieID, ErrMovieNotFound)
	}

	if _, err = s.conn.ExecContext(ctx, upsertRating, r.UserID, r.MovieID, r.Value, r.RatedAt); err != nil {
		return fmt.Errorf("upsert rating (user %d, movie %d): %w", r.UserID, r.MovieID, err)
	}
	return nil
}

// Counts returns the number of movies and ratings.
func (s *DuckDBStore) Counts(ctx context.Context) (movies, ratings int, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if err := s.conn.QueryRowContext(ctx, countMovies).Scan(&movies); err != nil {
		return 0, 0, fmt.Errorf("failed to count movies: %w", err)
	}
	if err := s.conn.QueryRowContext(ctx, countRatings).Scan(&ratings); err != nil {
		return movies, 0, fmt.Errorf("failed to count ratings: %w", err)
	}
	return movies, ratings, nil
}

// Ping checks the connection.
func (s *DuckDBStore) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Checkpoint forces a WAL checkpoint.
func (s *DuckDBStore) Checkpoint(ctx context.Context) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if _, err := s.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// Close checkpoints file-backed databases and closes the connection.
func (s *DuckDBStore) Close() error {
	if s.path != ":memory:" {
		if err := s.Checkpoint(context.Background()); err != nil {
			s.logger.Warn().Err(err).Msg("Checkpoint before close failed")
		}
	}
	return s.conn.Close()
}
