// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marquee-rec/marquee/internal/config"
	"github.com/marquee-rec/marquee/internal/middleware"
)

// Router sets up HTTP routes using Chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router for handler using the server settings.
func NewRouter(handler *Handler, cfg *config.ServerConfig) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(ChiMiddlewareConfigFrom(cfg)),
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Applied to all routes in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.PrometheusMetrics)
		r.Use(middleware.Compression) // not global: promhttp compresses /metrics itself

		r.Get("/stats", router.handler.Stats)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/recommendations", router.handler.Recommendations)
			r.Get("/similar", router.handler.SimilarUsers)
			r.Get("/movies/{movieID}/prediction", router.handler.Prediction)
		})

		r.Route("/movies", func(r chi.Router) {
			r.Get("/", router.handler.ListMovies)
			r.Post("/", router.handler.CreateMovie)
			r.Get("/trending", router.handler.Trending)
			r.Get("/{movieID}/similar", router.handler.SimilarMovies)
		})

		r.Post("/ratings", router.handler.RateMovie)

		r.Route("/model", func(r chi.Router) {
			r.Get("/status", router.handler.ModelStatus)
			r.Post("/train", router.handler.TrainModel)
		})
	})

	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusNotFound, CodeNotFound, "Route not found", nil)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed", nil)
}
