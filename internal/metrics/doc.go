// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

/*
Package metrics provides Prometheus metrics for the recommendation server.

All collectors are registered with the default registry through promauto and
exposed at /metrics:

	curl http://localhost:8080/metrics

# Available Metrics

HTTP:
  - api_requests_total{method, endpoint, status_code}
  - api_request_duration_seconds{method, endpoint}
  - api_active_requests
  - api_rate_limit_hits_total{endpoint}

Rating store:
  - db_query_duration_seconds{driver, operation}
  - db_query_errors_total{driver, operation}

Recommendations and training:
  - recommend_requests_total{algorithm, outcome}
  - recommend_duration_seconds{algorithm}
  - recommend_training_duration_seconds
  - recommend_training_runs_total{result}
  - recommend_model_failures_total{model, reason}
  - recommend_snapshot_version
  - recommend_training_last_success_timestamp
  - recommend_als_objective

Caching and fault isolation:
  - cache_hits_total{cache_type}, cache_misses_total{cache_type}, cache_entries{cache_type}
  - circuit_breaker_state{name}, circuit_breaker_requests_total{name, result}
  - circuit_breaker_state_transitions_total{name, from_state, to_state}

Events:
  - nats_messages_consumed_total
  - nats_retrains_triggered_total
  - nats_messages_published_total
  - nats_messages_invalid_total

# Usage

	start := time.Now()
	result, err := svc.Recommend(ctx, userID, limit, algo)
	metrics.RecordRecommendation(string(algo), result.Degraded, time.Since(start), err)
*/
package metrics
