// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package algorithms

import (
	"context"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/marquee-rec/marquee/internal/recommend"
)

// State is the lifecycle of a trainable model.
type State int

// Model states. A retrain trigger moves Trained to Stale; the next
// successful fit moves it back to Trained.
const (
	StateUntrained State = iota
	StateTrained
	StateStale
)

func (s State) String() string {
	switch s {
	case StateTrained:
		return "trained"
	case StateStale:
		return "stale"
	default:
		return "untrained"
	}
}

// BaseAlgorithm provides lifecycle bookkeeping shared by all models.
type BaseAlgorithm struct {
	name          string
	state         State
	version       int
	lastTrainedAt time.Time
	mu            sync.RWMutex
}

// NewBaseAlgorithm creates a new base algorithm with the given name.
func NewBaseAlgorithm(name string) BaseAlgorithm {
	return BaseAlgorithm{
		name: name,
	}
}

// Name returns the algorithm identifier.
func (b *BaseAlgorithm) Name() string {
	return b.name
}

// State returns the current lifecycle state.
func (b *BaseAlgorithm) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// IsTrained returns whether at least one fit has completed.
func (b *BaseAlgorithm) IsTrained() bool {
	return b.State() != StateUntrained
}

// Version returns the number of completed fits.
func (b *BaseAlgorithm) Version() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// LastTrainedAt returns when the model was last fitted.
func (b *BaseAlgorithm) LastTrainedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastTrainedAt
}

// MarkStale flags a trained model for retraining. It has no effect on an
// untrained model.
func (b *BaseAlgorithm) MarkStale() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateTrained {
		b.state = StateStale
	}
}

// markTrained updates the trained state.
// Must be called while holding the training lock (acquireTrainLock).
func (b *BaseAlgorithm) markTrained() {
	b.state = StateTrained
	b.version++
	b.lastTrainedAt = time.Now()
}

// acquireTrainLock acquires the exclusive training lock.
func (b *BaseAlgorithm) acquireTrainLock() {
	b.mu.Lock()
}

// releaseTrainLock releases the exclusive training lock.
func (b *BaseAlgorithm) releaseTrainLock() {
	b.mu.Unlock()
}

// acquirePredictLock acquires the shared prediction lock.
func (b *BaseAlgorithm) acquirePredictLock() {
	b.mu.RLock()
}

// releasePredictLock releases the shared prediction lock.
func (b *BaseAlgorithm) releasePredictLock() {
	b.mu.RUnlock()
}

// cosineSimilarity computes cosine similarity between two dense vectors.
// It returns 0 when either vector is all zeros or the lengths differ.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}

	return floats.Dot(a, b) / (na * nb)
}

// clampRating limits a prediction to the valid rating range.
func clampRating(v float64) float64 {
	switch {
	case v < recommend.MinRating:
		return recommend.MinRating
	case v > recommend.MaxRating:
		return recommend.MaxRating
	default:
		return v
	}
}

// ContextCancelled checks if the context has been canceled.
func ContextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Ensure models implement the serving interfaces.
var (
	_ recommend.CollaborativeModel = (*LatentFactors)(nil)
	_ recommend.ContentModel       = (*ContentBased)(nil)
	_ recommend.PopularityModel    = (*Popularity)(nil)
)
