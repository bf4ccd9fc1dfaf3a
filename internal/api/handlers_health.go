// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/marquee-rec/marquee/internal/models"
)

const healthTimeout = 2 * time.Second

// Health handles GET /health. It answers 200 while the store is reachable,
// reporting "degraded" until a model is published or when the shared cache
// breaker is open, and 503 when the store is down.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := models.HealthStatus{
		Version:           h.version,
		DatabaseDriver:    h.store.Driver(),
		DatabaseConnected: h.store.Ping(ctx) == nil,
		SnapshotVersion:   h.service.Version(),
		Training:          h.trainer.IsTraining(),
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	status.ModelReady = status.SnapshotVersion > 0
	if h.breaker != nil {
		status.CacheState = h.breaker.State()
	}

	code := http.StatusOK
	switch {
	case !status.DatabaseConnected:
		status.Status = models.HealthUnhealthy
		code = http.StatusServiceUnavailable
	case !status.ModelReady, status.CacheState == "open":
		status.Status = models.HealthDegraded
	default:
		status.Status = models.HealthHealthy
	}

	respondSuccess(w, r, code, status, models.Metadata{SnapshotVersion: status.SnapshotVersion})
}

// HealthLive handles GET /health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]string{"status": "alive"}, models.Metadata{})
}

// HealthReady handles GET /health/ready: ready once a model is served.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.service.Version() == 0 {
		respondError(w, r, http.StatusServiceUnavailable, CodeModelNotReady, "No model has been trained yet", nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]string{"status": "ready"}, models.Metadata{
		SnapshotVersion: h.service.Version(),
	})
}

// Stats handles GET /api/v1/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	movies, ratings, err := h.store.Counts(ctx)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "Failed to count catalogue", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, models.CatalogStats{Movies: movies, Ratings: ratings}, models.Metadata{
		QueryTimeMS: elapsedMS(start),
	})
}
