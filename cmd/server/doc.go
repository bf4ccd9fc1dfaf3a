// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

/*
Package main is the entry point for the Marquee recommendation server.

Marquee serves personalized movie recommendations from a hybrid of a
latent-factor collaborative model and a TF-IDF content model, trained in the
background from the ratings in DuckDB or PostgreSQL.

# Application Architecture

Long-running components are supervised with Suture v4:

	RootSupervisor ("marquee")
	├── ModelSupervisor ("model-layer")
	│   ├── Training service (restore, startup and periodic training)
	│   └── Cache janitor (purges cached results on model swap)
	├── EventsSupervisor ("events-layer")
	│   └── NATS rating subscriber (optional)
	└── APISupervisor ("api-layer")
	    └── HTTP server

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config file and environment
 2. Rating store: DuckDB (default) or PostgreSQL, optional sample seed
 3. Engine: recommendation service, trainer and model store
 4. Result cache: in-process LRU, optionally backed by Redis
 5. NATS (optional): embedded or external server, publisher and subscriber
 6. HTTP server: chi router with rate limiting, CORS and Prometheus metrics

# Configuration

Common environment variables:

	HTTP_PORT=8080                      listen port
	DB_DRIVER=duckdb|postgres           rating store backend
	DUCKDB_PATH=/data/marquee.duckdb    DuckDB file
	DATABASE_URL=postgres://...         PostgreSQL DSN
	SEED_SAMPLE_DATA=true               load a small sample catalogue
	RECOMMEND_MODEL_PATH=/data/models   persisted models ("" disables)
	REDIS_ADDR=localhost:6379           shared result cache
	NATS_ENABLED=true                   rating change events
	NATS_EMBEDDED=true                  run NATS in-process

# Signal Handling

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains
in-flight requests within HTTP_SHUTDOWN_TIMEOUT, then NATS, Redis and the
rating store are closed in that order.

# Example Usage

	export SEED_SAMPLE_DATA=true
	export DUCKDB_PATH=:memory:
	export RECOMMEND_MODEL_PATH=
	./marquee

	curl localhost:8080/api/v1/users/1/recommendations?limit=5
*/
package main
