// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

/*
Package api serves the recommendation engine over HTTP using the Chi router.

Routes:

	GET  /health                                          store, model and cache state
	GET  /health/live                                     liveness
	GET  /health/ready                                    503 until a model is published
	GET  /metrics                                         Prometheus exposition

	GET  /api/v1/users/{userID}/recommendations           ?algorithm=&limit=
	GET  /api/v1/users/{userID}/similar                   ?k=
	GET  /api/v1/users/{userID}/movies/{movieID}/prediction
	GET  /api/v1/movies                                   catalogue
	POST /api/v1/movies                                   add a movie
	GET  /api/v1/movies/trending                          ?limit=
	GET  /api/v1/movies/{movieID}/similar                 ?limit=
	POST /api/v1/ratings                                  add or replace a rating
	GET  /api/v1/stats                                    catalogue counts
	GET  /api/v1/model/status                             training status
	POST /api/v1/model/train                              202 started, 409 already running

Every response uses the models.APIResponse envelope. Engine errors map to
status codes as follows:

	recommend.ErrUnknownEntity          404 UNKNOWN_ENTITY
	recommend.ErrEmptyProfile           422 EMPTY_PROFILE
	recommend.ErrInsufficientData       422 INSUFFICIENT_DATA
	*recommend.HybridUnavailableError   422 HYBRID_UNAVAILABLE
	recommend.ErrInvalidConfiguration   400 VALIDATION_ERROR
	recommend.ErrNoSnapshot             503 MODEL_NOT_READY

Query results are cached under keys that embed the snapshot version, so
publishing a new model invalidates every entry at once.
*/
package api
