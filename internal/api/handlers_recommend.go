// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marquee-rec/marquee/internal/cache"
	"github.com/marquee-rec/marquee/internal/models"
	"github.com/marquee-rec/marquee/internal/recommend"
	"github.com/marquee-rec/marquee/internal/validation"
)

// queryFunc computes an uncached result.
type queryFunc func(ctx context.Context) (interface{}, error)

// serveCached answers from the result cache when the current snapshot has
// already produced key, and otherwise runs query and caches its result.
// The snapshot is pinned in the query context, so the cache key, the
// reported version and the result all come from one generation. dst must
// be a pointer to the type query returns.
func (h *Handler) serveCached(w http.ResponseWriter, r *http.Request, kind string, parts []interface{}, dst interface{}, query queryFunc) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var (
		version int64
		key     string
	)
	if snap := h.service.Current(); snap != nil {
		version = snap.Version
		key = cache.Key(snap.Epoch, snap.Version, kind, parts...)
		ctx = recommend.WithSnapshot(ctx, snap)

		if h.cached(ctx, key, dst) {
			respondSuccess(w, r, http.StatusOK, dst, models.Metadata{
				QueryTimeMS:     elapsedMS(start),
				Cached:          true,
				SnapshotVersion: version,
			})
			return
		}
	}

	data, err := query(ctx)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if key != "" {
		h.remember(ctx, key, data)
	}

	respondSuccess(w, r, http.StatusOK, data, models.Metadata{
		QueryTimeMS:     elapsedMS(start),
		SnapshotVersion: version,
	})
}

// Recommendations handles GET /api/v1/users/{userID}/recommendations.
// Query parameters: algorithm (hybrid, collaborative, content, popularity)
// and limit (0 means the configured default).
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := parsePathInt(chi.URLParam(r, "userID"), "user_id")
	if apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}
	limit, apiErr := parseQueryInt(r, "limit")
	if apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}

	req := validation.RecommendationsRequest{
		UserID:    userID,
		Algorithm: r.URL.Query().Get("algorithm"),
		Limit:     limit,
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}
	algo, err := recommend.ParseAlgorithm(req.Algorithm)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	var result recommend.RecommendationResult
	h.serveCached(w, r, "recs", []interface{}{req.UserID, algo, req.Limit}, &result,
		func(ctx context.Context) (interface{}, error) {
			return h.service.Recommend(ctx, req.UserID, req.Limit, algo)
		})
}

// SimilarUsers handles GET /api/v1/users/{userID}/similar?k=.
func (h *Handler) SimilarUsers(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := parsePathInt(chi.URLParam(r, "userID"), "user_id")
	if apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}
	k, apiErr := parseQueryInt(r, "k")
	if apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}

	req := validation.SimilarUsersRequest{UserID: userID, K: k}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}

	var neighbours []recommend.UserSimilarity
	h.serveCached(w, r, "similar-users", []interface{}{req.UserID, req.K}, &neighbours,
		func(ctx context.Context) (interface{}, error) {
			return h.service.SimilarUsers(ctx, req.UserID, req.K)
		})
}

// Prediction handles GET /api/v1/users/{userID}/movies/{movieID}/prediction.
func (h *Handler) Prediction(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := parsePathInt(chi.URLParam(r, "userID"), "user_id")
	if apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}
	movieID, apiErr := parsePathInt(chi.URLParam(r, "movieID"), "movie_id")
	if apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}

	req := validation.PredictionRequest{UserID: userID, MovieID: movieID}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}

	var prediction models.Prediction
	h.serveCached(w, r, "predict", []interface{}{req.UserID, req.MovieID}, &prediction,
		func(ctx context.Context) (interface{}, error) {
			v, err := h.service.Predict(ctx, req.UserID, req.MovieID)
			if err != nil {
				return nil, err
			}
			return &models.Prediction{UserID: req.UserID, MovieID: req.MovieID, PredictedRating: v}, nil
		})
}

// SimilarMovies handles GET /api/v1/movies/{movieID}/similar?limit=&source=.
// source is content (default) or collaborative.
func (h *Handler) SimilarMovies(w http.ResponseWriter, r *http.Request) {
	movieID, apiErr := parsePathInt(chi.URLParam(r, "movieID"), "movie_id")
	if apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}
	limit, apiErr := parseQueryInt(r, "limit")
	if apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}

	req := validation.SimilarMoviesRequest{MovieID: movieID, Limit: limit, Source: r.URL.Query().Get("source")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}
	source := recommend.AlgorithmContent
	if req.Source != "" {
		var err error
		if source, err = recommend.ParseAlgorithm(req.Source); err != nil {
			respondServiceError(w, r, err)
			return
		}
	}

	var similar []recommend.Recommendation
	h.serveCached(w, r, "similar-movies", []interface{}{req.MovieID, source, req.Limit}, &similar,
		func(ctx context.Context) (interface{}, error) {
			return h.service.SimilarMovies(ctx, req.MovieID, req.Limit, source)
		})
}

// Trending handles GET /api/v1/movies/trending?limit=.
func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	limit, apiErr := parseQueryInt(r, "limit")
	if apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}

	req := validation.TrendingRequest{Limit: limit}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}

	var trending []recommend.Recommendation
	h.serveCached(w, r, "trending", []interface{}{req.Limit}, &trending,
		func(ctx context.Context) (interface{}, error) {
			return h.service.Trending(ctx, req.Limit)
		})
}
