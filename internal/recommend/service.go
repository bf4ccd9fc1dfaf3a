// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Note: This package has no dependencies on other internal packages. Models
// are reached through the interfaces in snapshot.go so the algorithms and
// trainer packages can import this one without cycles.

// Service is the single entry point for recommendation queries. It serves
// from the most recently published Snapshot and is safe for concurrent use.
// Readers never lock; Publish swaps the snapshot pointer atomically.
type Service struct {
	config *Config
	logger zerolog.Logger

	// epoch distinguishes this process's snapshot versions from those of
	// earlier runs and other replicas sharing a result cache.
	epoch   string
	current atomic.Pointer[Snapshot]
	version atomic.Int64
}

// NewService creates a service with no published snapshot.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewService(cfg *Config, logger zerolog.Logger) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		config: cfg,
		logger: logger.With().Str("component", "recommend").Logger(),
		epoch:  uuid.NewString()[:8],
	}, nil
}

// Config returns a copy of the service configuration.
func (s *Service) Config() *Config {
	return s.config.Clone()
}

// Publish assigns the next version to snap and makes it current.
// Requests already in flight finish against the previous snapshot.
func (s *Service) Publish(snap *Snapshot) int64 {
	v := s.version.Add(1)
	snap.Version = v
	snap.Epoch = s.epoch
	s.current.Store(snap)

	s.logger.Info().
		Int64("version", v).
		Str("epoch", s.epoch).
		Bool("collaborative", snap.Collaborative != nil).
		Bool("content", snap.Content != nil).
		Int("users", snap.Stats.Users).
		Int("movies", snap.Stats.Movies).
		Msg("published model snapshot")

	return v
}

// Current returns the published snapshot, or nil before the first Publish.
func (s *Service) Current() *Snapshot {
	return s.current.Load()
}

// Version returns the current snapshot version, zero if none.
func (s *Service) Version() int64 {
	if snap := s.current.Load(); snap != nil {
		return snap.Version
	}
	return 0
}

// Epoch returns the identifier shared by every snapshot this service
// publishes. It differs between processes.
func (s *Service) Epoch() string {
	return s.epoch
}

type pinnedKey struct{}

// WithSnapshot pins snap for every Service call made with the returned
// context, so several calls in one request see the same generation even if
// a newer snapshot is published meanwhile.
func WithSnapshot(ctx context.Context, snap *Snapshot) context.Context {
	return context.WithValue(ctx, pinnedKey{}, snap)
}

func (s *Service) snapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, _ := ctx.Value(pinnedKey{}).(*Snapshot)
	if snap == nil {
		snap = s.current.Load()
	}
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// resolveLimit applies DefaultLimit to zero and caps at MaxLimit.
func (s *Service) resolveLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, &InvalidConfigurationError{Field: "limit", Reason: fmt.Sprintf("must be non-negative, got %d", limit)}
	case limit == 0:
		return s.config.Limits.DefaultLimit, nil
	case limit > s.config.Limits.MaxLimit:
		return s.config.Limits.MaxLimit, nil
	default:
		return limit, nil
	}
}

// Recommend returns up to limit movies the user has not rated.
//
// Collaborative and content requests surface their model's typed error.
// Hybrid requests degrade to whichever side succeeded and set Degraded;
// when both fail the result is a *HybridUnavailableError.
func (s *Service) Recommend(ctx context.Context, userID, limit int, algo Algorithm) (*RecommendationResult, error) {
	start := time.Now()

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	limit, err = s.resolveLimit(limit)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With().
		Int("user_id", userID).
		Str("algorithm", algo.String()).
		Int64("snapshot", snap.Version).
		Logger()

	rated := snap.ratedSet(userID)
	result := &RecommendationResult{
		UserID:          userID,
		Requested:       algo,
		SnapshotVersion: snap.Version,
	}

	switch algo {
	case AlgorithmCollaborative:
		c, err := s.collaborative(snap, userID, limit, rated)
		if err != nil {
			return nil, err
		}
		result.Items = ToRecommendations(c, AlgorithmCollaborative)

	case AlgorithmContent:
		c, err := s.content(snap, userID, limit, rated)
		if err != nil {
			return nil, err
		}
		result.Items = ToRecommendations(c, AlgorithmContent)

	case AlgorithmHybrid:
		if err := s.hybrid(snap, userID, limit, rated, result, logger); err != nil {
			return nil, err
		}

	case AlgorithmPopularity:
		c, err := s.popular(snap, limit, rated)
		if err != nil {
			return nil, err
		}
		result.Items = ToRecommendations(c, AlgorithmPopularity)

	default:
		return nil, &InvalidConfigurationError{Field: "algorithm", Reason: fmt.Sprintf("unsupported %q", algo)}
	}

	logger.Debug().
		Int("returned", len(result.Items)).
		Bool("degraded", result.Degraded).
		Dur("latency", time.Since(start)).
		Msg("recommendation complete")

	return result, nil
}

func (s *Service) hybrid(snap *Snapshot, userID, limit int, rated map[int]struct{}, result *RecommendationResult, logger zerolog.Logger) error {
	pool := limit * s.config.Hybrid.CandidateMultiplier

	collab, cErr := s.collaborative(snap, userID, pool, rated)
	content, tErr := s.content(snap, userID, pool, rated)

	switch {
	case cErr != nil && tErr != nil:
		return &HybridUnavailableError{UserID: userID, Collaborative: cErr, Content: tErr}
	case cErr != nil:
		if !IsRecoverable(cErr) {
			return fmt.Errorf("collaborative: %w", cErr)
		}
		logger.Debug().Err(cErr).Msg("hybrid degraded to content")
		result.Degraded = true
		collab = nil
	case tErr != nil:
		if !IsRecoverable(tErr) {
			return fmt.Errorf("content: %w", tErr)
		}
		logger.Debug().Err(tErr).Msg("hybrid degraded to collaborative")
		result.Degraded = true
		content = nil
	}

	combined := Combine(collab, content, s.config.Hybrid.Weight, limit)
	result.Items = combined.Items
	return nil
}

func (s *Service) collaborative(snap *Snapshot, userID, limit int, rated map[int]struct{}) ([]ScoredCandidate, error) {
	if snap.Collaborative == nil {
		return nil, modelUnavailable("collaborative", snap.CollaborativeErr)
	}

	// Over-fetch so that filtering the full rating history still leaves limit items.
	c, err := snap.Collaborative.RecommendFor(userID, limit+len(rated))
	if err != nil {
		return nil, err
	}
	return excludeRated(c, rated, limit), nil
}

func (s *Service) content(snap *Snapshot, userID, limit int, rated map[int]struct{}) ([]ScoredCandidate, error) {
	if snap.Content == nil {
		return nil, modelUnavailable("content", snap.ContentErr)
	}
	return snap.Content.RecommendFor(userID, snap.RatingsFor(userID), snap.candidates(rated), limit)
}

func (s *Service) popular(snap *Snapshot, limit int, exclude map[int]struct{}) ([]ScoredCandidate, error) {
	if snap.Popularity == nil {
		return nil, &InsufficientDataError{Component: "popularity", Reason: "no rated movies"}
	}
	return snap.Popularity.Top(limit, exclude), nil
}

// modelUnavailable reports why a model is missing from a snapshot.
func modelUnavailable(component string, cause error) error {
	if cause != nil {
		return cause
	}
	return &InsufficientDataError{Component: component, Reason: "model not trained"}
}

func excludeRated(c []ScoredCandidate, rated map[int]struct{}, limit int) []ScoredCandidate {
	out := make([]ScoredCandidate, 0, min(len(c), limit))
	for _, s := range c {
		if _, skip := rated[s.MovieID]; skip {
			continue
		}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Predict returns the collaborative rating prediction.
func (s *Service) Predict(ctx context.Context, userID, movieID int) (float64, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	if snap.Collaborative == nil {
		return 0, modelUnavailable("collaborative", snap.CollaborativeErr)
	}
	return snap.Collaborative.Predict(userID, movieID)
}

// SimilarUsers returns up to k users nearest to userID.
func (s *Service) SimilarUsers(ctx context.Context, userID, k int) ([]UserSimilarity, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if k, err = s.resolveLimit(k); err != nil {
		return nil, err
	}
	if snap.Collaborative == nil {
		return nil, modelUnavailable("collaborative", snap.CollaborativeErr)
	}
	return snap.Collaborative.SimilarUsers(userID, k)
}

// SimilarMovies returns up to limit movies nearest to movieID. The content
// source compares metadata vectors; the collaborative source compares
// latent item factors. An empty source means content.
func (s *Service) SimilarMovies(ctx context.Context, movieID, limit int, source Algorithm) ([]Recommendation, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if limit, err = s.resolveLimit(limit); err != nil {
		return nil, err
	}

	var c []ScoredCandidate
	switch source {
	case "", AlgorithmContent:
		if snap.Content == nil {
			return nil, modelUnavailable("content", snap.ContentErr)
		}
		c, err = snap.Content.SimilarMovies(movieID, limit)
		source = AlgorithmContent
	case AlgorithmCollaborative:
		if snap.Collaborative == nil {
			return nil, modelUnavailable("collaborative", snap.CollaborativeErr)
		}
		c, err = snap.Collaborative.SimilarItems(movieID, limit)
	default:
		return nil, &InvalidConfigurationError{Field: "source", Reason: fmt.Sprintf("similar movies not supported for %q", source)}
	}
	if err != nil {
		return nil, err
	}
	return ToRecommendations(c, source), nil
}

// Trending returns the highest average-rated movies.
func (s *Service) Trending(ctx context.Context, limit int) ([]Recommendation, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if limit, err = s.resolveLimit(limit); err != nil {
		return nil, err
	}
	c, err := s.popular(snap, limit, nil)
	if err != nil {
		return nil, err
	}
	return ToRecommendations(c, AlgorithmPopularity), nil
}

// IsUnavailable reports whether err means the service cannot answer yet.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrNoSnapshot)
}
