// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/marquee-rec/marquee/internal/recommend"
	"github.com/marquee-rec/marquee/internal/recommend/trainer"
)

const (
	// requestTimeout bounds a single recommendation query.
	requestTimeout = 10 * time.Second

	// maxBodyBytes bounds JSON request bodies.
	maxBodyBytes = 1 << 20
)

// CatalogStore is the part of the rating store the API reads and writes.
type CatalogStore interface {
	Movies(ctx context.Context) ([]recommend.MovieRecord, error)
	AddMovie(ctx context.Context, m recommend.MovieRecord) (int, error)
	UpsertRating(ctx context.Context, r recommend.RatingEntry) error
	Counts(ctx context.Context) (movies, ratings int, err error)
	Ping(ctx context.Context) error
	Driver() string
}

// ModelTrainer runs and reports on model training.
type ModelTrainer interface {
	Train(ctx context.Context) error
	Status() trainer.Status
	IsTraining() bool
	MarkStale()
}

// ResultCache caches query results by key.
type ResultCache interface {
	Get(ctx context.Context, key string, dst interface{}) bool
	Set(ctx context.Context, key string, v interface{})
}

// RatingNotifier announces stored ratings to other replicas.
type RatingNotifier interface {
	NotifyRatingChanged(ctx context.Context, r recommend.RatingEntry) error
}

// BreakerReporter exposes the shared cache's circuit breaker state.
type BreakerReporter interface {
	State() string
}

// Dependencies wires a Handler. Service, Trainer and Store are required.
type Dependencies struct {
	Service  *recommend.Service
	Trainer  ModelTrainer
	Store    CatalogStore
	Cache    ResultCache     // optional
	Notifier RatingNotifier  // optional; without it ratings mark the model stale locally
	Breaker  BreakerReporter // optional
	Version  string
	Logger   zerolog.Logger
}

// Handler serves the HTTP API.
type Handler struct {
	service  *recommend.Service
	trainer  ModelTrainer
	store    CatalogStore
	cache    ResultCache
	notifier RatingNotifier
	breaker  BreakerReporter
	version  string
	logger   zerolog.Logger

	startTime time.Time

	// trainCtx parents background training started over HTTP; trainWG
	// tracks those runs so shutdown can wait for them.
	trainCtx    context.Context
	trainCancel context.CancelFunc
	trainWG     sync.WaitGroup
}

// NewHandler creates a Handler.
//
//nolint:gocritic // deps passed by value is acceptable at construction
func NewHandler(deps Dependencies) (*Handler, error) {
	switch {
	case deps.Service == nil:
		return nil, fmt.Errorf("recommendation service is required")
	case deps.Trainer == nil:
		return nil, fmt.Errorf("trainer is required")
	case deps.Store == nil:
		return nil, fmt.Errorf("catalog store is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		service:     deps.Service,
		trainer:     deps.Trainer,
		store:       deps.Store,
		cache:       deps.Cache,
		notifier:    deps.Notifier,
		breaker:     deps.Breaker,
		version:     deps.Version,
		logger:      deps.Logger.With().Str("component", "api").Logger(),
		startTime:   time.Now(),
		trainCtx:    ctx,
		trainCancel: cancel,
	}, nil
}

// Close cancels training runs started over HTTP and waits for them.
func (h *Handler) Close() {
	h.trainCancel()
	h.trainWG.Wait()
}

// cached looks key up in the result cache.
func (h *Handler) cached(ctx context.Context, key string, dst interface{}) bool {
	if h.cache == nil {
		return false
	}
	return h.cache.Get(ctx, key, dst)
}

func (h *Handler) remember(ctx context.Context, key string, v interface{}) {
	if h.cache != nil {
		h.cache.Set(ctx, key, v)
	}
}
