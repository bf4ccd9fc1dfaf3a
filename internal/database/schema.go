// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package database

// duckDBSchema creates the catalogue and rating tables. DuckDB has no SERIAL,
// so movie ids come from a sequence.
var duckDBSchema = []string{
	`CREATE SEQUENCE IF NOT EXISTS movies_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS movies (
		id               INTEGER PRIMARY KEY DEFAULT nextval('movies_id_seq'),
		title            VARCHAR NOT NULL,
		description      VARCHAR NOT NULL DEFAULT '',
		genre            VARCHAR NOT NULL DEFAULT '',
		director         VARCHAR NOT NULL DEFAULT '',
		year             INTEGER NOT NULL DEFAULT 0,
		duration_minutes INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS ratings (
		user_id  INTEGER NOT NULL,
		movie_id INTEGER NOT NULL,
		rating   DOUBLE NOT NULL,
		rated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, movie_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ratings_movie ON ratings (movie_id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS movies (
		id               SERIAL PRIMARY KEY,
		title            TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		genre            TEXT NOT NULL DEFAULT '',
		director         TEXT NOT NULL DEFAULT '',
		year             INTEGER NOT NULL DEFAULT 0,
		duration_minutes INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS ratings (
		user_id  INTEGER NOT NULL,
		movie_id INTEGER NOT NULL REFERENCES movies (id) ON DELETE CASCADE,
		rating   DOUBLE PRECISION NOT NULL CHECK (rating >= 0.5 AND rating <= 5.0),
		rated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, movie_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ratings_movie ON ratings (movie_id)`,
}

const (
	selectRatings = `SELECT user_id, movie_id, rating, rated_at FROM ratings ORDER BY user_id, movie_id`

	selectMovies = `SELECT id, title, description, genre, director, year, duration_minutes FROM movies ORDER BY id`

	insertMovie = `INSERT INTO movies (title, description, genre, director, year, duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	upsertRating = `INSERT INTO ratings (user_id, movie_id, rating, rated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, movie_id) DO UPDATE SET rating = excluded.rating, rated_at = excluded.rated_at`

	movieExists = `SELECT EXISTS (SELECT 1 FROM movies WHERE id = $1)`

	countMovies  = `SELECT COUNT(*) FROM movies`
	countRatings = `SELECT COUNT(*) FROM ratings`
)
