// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

/*
Package config loads and validates the server configuration.

# Configuration Sources

Load layers three sources with koanf, later layers winning:
  - built-in defaults (defaultConfig)
  - an optional YAML file: CONFIG_PATH, or the first of DefaultConfigPaths
  - environment variables listed in envMappings

# Sections

  - server: listen address, timeouts, CORS origins and rate limiting
  - logging: level, format, caller
  - database: duckdb or postgres rating store, sample data seeding
  - cache: in-process LRU and optional Redis result cache
  - recommend: model hyperparameters, limits, training schedule, persistence
  - nats: rating-change subscriber that triggers retraining

# Example

	recommend:
	  factors: 32
	  hybrid_weight: 0.7
	  train_interval: 2h
	database:
	  driver: postgres
	  url: postgres://marquee@db/marquee

RecommendEngineConfig converts the recommend section into the
recommend.Config consumed by the service and trainer.
*/
package config
