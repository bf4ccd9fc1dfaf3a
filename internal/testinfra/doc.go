// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

// Package testinfra starts Docker containers for integration tests.
//
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./...
//
// # Containers
//
//   - NewPostgresContainer: Postgres for the pgx rating store
//   - NewRedisContainer: Redis for the shared result cache
//
// Each constructor registers t.Cleanup to terminate the container.
//
//	func TestPostgresStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    pg, err := testinfra.NewPostgresContainer(ctx, t)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    store, err := database.OpenPostgres(ctx, pg.URL, 4, zerolog.Nop())
//	    // ...
//	}
//
// Tests skip when Docker is unavailable. The first run pulls images.
package testinfra
