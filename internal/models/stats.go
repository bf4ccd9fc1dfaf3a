// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package models

import "github.com/marquee-rec/marquee/internal/recommend"

// Health states.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// HealthStatus is returned by GET /health.
//
// Status is "healthy" when the store answers and a model is being served,
// "degraded" when the store answers but no model is published yet or the
// shared cache is unreachable, and "unhealthy" when the store is down.
type HealthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	DatabaseDriver    string  `json:"database_driver"`
	DatabaseConnected bool    `json:"database_connected"`
	ModelReady        bool    `json:"model_ready"`
	SnapshotVersion   int64   `json:"snapshot_version"`
	Training          bool    `json:"training"`
	CacheState        string  `json:"cache_state,omitempty"`
	Uptime            float64 `json:"uptime_seconds"`
}

// CatalogStats summarises the rating store.
type CatalogStats struct {
	Movies  int `json:"movies"`
	Ratings int `json:"ratings"`
}

// MovieList is returned by GET /api/v1/movies.
type MovieList struct {
	Movies []recommend.MovieRecord `json:"movies"`
	Total  int     `json:"total"`
}

// Prediction is returned by the prediction endpoint.
type Prediction struct {
	UserID          int     `json:"user_id"`
	MovieID         int     `json:"movie_id"`
	PredictedRating float64 `json:"predicted_rating"`
}

// TrainingAccepted is returned when a retrain is started.
type TrainingAccepted struct {
	Message         string `json:"message"`
	SnapshotVersion int64  `json:"snapshot_version"`
}
