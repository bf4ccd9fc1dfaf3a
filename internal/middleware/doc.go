// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

/*
Package middleware provides the HTTP middleware shared by the API router.

Every middleware has the chi signature func(http.Handler) http.Handler:

  - RequestID: reuses a sane upstream X-Request-ID or generates a UUID, and
    stores it in the context for structured logging
  - PrometheusMetrics: request count, latency and in-flight gauge, labelled
    by chi route pattern so path parameters do not multiply series
  - Compression: pooled gzip for clients that accept it

Typical stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Compression)
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(middleware.PrometheusMetrics)
	    ...
	})
*/
package middleware
