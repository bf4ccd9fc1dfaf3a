// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/marquee-rec/marquee/internal/middleware"
	"github.com/marquee-rec/marquee/internal/models"
	"github.com/marquee-rec/marquee/internal/recommend"
	"github.com/marquee-rec/marquee/internal/validation"
)

func requestIDOf(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}

// ListMovies handles GET /api/v1/movies.
func (h *Handler) ListMovies(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	movies, err := h.store.Movies(ctx)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "Failed to list movies", err)
		return
	}
	if movies == nil {
		movies = []recommend.MovieRecord{}
	}

	respondSuccess(w, r, http.StatusOK, models.MovieList{Movies: movies, Total: len(movies)}, models.Metadata{
		QueryTimeMS: elapsedMS(start),
	})
}

// CreateMovie handles POST /api/v1/movies. New movies reach the content
// model at the next training cycle.
func (h *Handler) CreateMovie(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req validation.CreateMovieRequest
	if apiErr := decodeJSONBody(r, &req); apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	movie := recommend.MovieRecord{
		Title:           req.Title,
		Description:     req.Description,
		Genre:           req.Genre,
		Director:        req.Director,
		Year:            req.Year,
		DurationMinutes: req.DurationMinutes,
	}
	id, err := h.store.AddMovie(ctx, movie)
	if err != nil {
		h.respondStoreError(w, r, "Failed to add movie", err)
		return
	}
	movie.ID = id
	h.trainer.MarkStale()

	h.logger.Info().Int("movie_id", id).Str("request_id", requestIDOf(r)).Msg("movie added")
	respondSuccess(w, r, http.StatusCreated, movie, models.Metadata{QueryTimeMS: elapsedMS(start)})
}

// RateMovie handles POST /api/v1/ratings. A user's later rating of the same
// movie replaces the earlier one.
func (h *Handler) RateMovie(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req validation.RateMovieRequest
	if apiErr := decodeJSONBody(r, &req); apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rating := recommend.RatingEntry{
		UserID:  req.UserID,
		MovieID: req.MovieID,
		Value:   req.Rating,
		RatedAt: time.Now().UTC(),
	}
	if err := h.store.UpsertRating(ctx, rating); err != nil {
		h.respondStoreError(w, r, "Failed to store rating", err)
		return
	}
	h.announce(ctx, rating)

	respondSuccess(w, r, http.StatusCreated, rating, models.Metadata{QueryTimeMS: elapsedMS(start)})
}

// announce publishes the rating change, falling back to marking the local
// model stale when no notifier is configured or publishing fails.
func (h *Handler) announce(ctx context.Context, rating recommend.RatingEntry) {
	if h.notifier != nil {
		err := h.notifier.NotifyRatingChanged(ctx, rating)
		if err == nil {
			return
		}
		h.logger.Warn().Err(err).Int("user_id", rating.UserID).Msg("failed to publish rating change")
	}
	h.trainer.MarkStale()
}

// respondStoreError maps store failures: invalid records and unknown movies
// are client errors, everything else is a database error.
func (h *Handler) respondStoreError(w http.ResponseWriter, r *http.Request, message string, err error) {
	if status, _ := classifyError(err); status == http.StatusInternalServerError {
		respondError(w, r, status, CodeDatabase, message, err)
		return
	}
	respondServiceError(w, r, err)
}
