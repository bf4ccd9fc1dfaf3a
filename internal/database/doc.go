// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

/*
Package database stores the movie catalogue and user ratings that the
recommendation models train on.

Two backends implement Store:

  - DuckDBStore: embedded, file-backed or in-memory (duckdb-go)
  - PostgresStore: shared server via a pgx connection pool

Open picks one from config.DatabaseConfig. Both create their schema on open
and satisfy trainer.DataSource through Ratings and Movies.

# Schema

	movies  (id, title, description, genre, director, year, duration_minutes)
	ratings (user_id, movie_id, rating, rated_at)  PRIMARY KEY (user_id, movie_id)

A user re-rating a movie replaces the earlier rating. Users have no table of
their own; a user exists once they have rated something.

# Sample Data

SeedSample loads a ten-movie catalogue and a seeded set of ratings into an
empty store, enough for every model to train under the default thresholds.

# Metrics

Every query records db_query_duration_seconds, labelled by driver
and operation.
*/
package database
