// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package recommend

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProfileWeighting selects how a rating contributes to a content profile.
type ProfileWeighting string

const (
	// WeightMeanCentered weights each rated movie by rating minus the user's
	// mean rating, so disliked movies push the profile away.
	WeightMeanCentered ProfileWeighting = "mean_centered"

	// WeightRaw weights each rated movie by its raw rating value.
	WeightRaw ProfileWeighting = "raw"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Collaborative contains latent-factor model parameters.
	Collaborative CollaborativeConfig `json:"collaborative"`

	// Matrix contains minimum-support thresholds for the rating matrix.
	Matrix MatrixConfig `json:"matrix"`

	// Content contains content index and profile parameters.
	Content ContentConfig `json:"content"`

	// Hybrid contains blending parameters.
	Hybrid HybridConfig `json:"hybrid"`

	// Limits contains request size limits.
	Limits LimitsConfig `json:"limits"`

	// Training contains training schedule parameters.
	Training TrainingConfig `json:"training"`
}

// CollaborativeConfig contains parameters for the biased ALS model.
type CollaborativeConfig struct {
	// Factors is the latent dimension k.
	// Default: 20.
	Factors int `json:"factors"`

	// Regularization is the L2 penalty on factors and biases.
	// Default: 0.1.
	Regularization float64 `json:"regularization"`

	// Iterations caps the number of alternating sweeps.
	// Default: 15.
	Iterations int `json:"iterations"`

	// Tolerance stops fitting early once the objective improves by less than this.
	// Zero disables early stopping.
	Tolerance float64 `json:"tolerance"`

	// NumWorkers is the number of goroutines solving rows in parallel.
	// Default: 4.
	NumWorkers int `json:"num_workers"`
}

// MatrixConfig holds the minimum-support filters.
type MatrixConfig struct {
	MinRatingsPerUser  int `json:"min_ratings_per_user"`
	MinRatingsPerMovie int `json:"min_ratings_per_movie"`
}

// ContentConfig contains content-based parameters.
type ContentConfig struct {
	// MaxFeatures caps the vocabulary size.
	// Default: 1000.
	MaxFeatures int `json:"max_features"`

	// Weighting selects the profile contribution policy.
	// Default: mean_centered.
	Weighting ProfileWeighting `json:"weighting"`
}

// HybridConfig contains parameters for blending.
type HybridConfig struct {
	// Weight is the collaborative share of the blended score, in [0, 1].
	// Default: 0.6.
	Weight float64 `json:"weight"`

	// CandidateMultiplier scales how many candidates each side contributes
	// relative to the requested limit.
	// Default: 2.
	CandidateMultiplier int `json:"candidate_multiplier"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// DefaultLimit applies when a request asks for zero items.
	DefaultLimit int `json:"default_limit"`

	// MaxLimit caps any request.
	MaxLimit int `json:"max_limit"`
}

// TrainingConfig contains training schedule parameters.
type TrainingConfig struct {
	// Interval between scheduled retrains.
	// Default: 6h.
	Interval time.Duration `json:"interval"`

	// OnStartup trains as soon as the service starts.
	OnStartup bool `json:"on_startup"`

	// Timeout bounds one training cycle.
	// Default: 10m.
	Timeout time.Duration `json:"timeout"`

	// RetainVersions is how many persisted model versions to keep.
	// Default: 3.
	RetainVersions int `json:"retain_versions"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Collaborative: CollaborativeConfig{
			Factors:        20,
			Regularization: 0.1,
			Iterations:     15,
			Tolerance:      1e-6,
			NumWorkers:     4,
		},
		Matrix: MatrixConfig{
			MinRatingsPerUser:  5,
			MinRatingsPerMovie: 3,
		},
		Content: ContentConfig{
			MaxFeatures: 1000,
			Weighting:   WeightMeanCentered,
		},
		Hybrid: HybridConfig{
			Weight:              0.6,
			CandidateMultiplier: 2,
		},
		Limits: LimitsConfig{
			DefaultLimit: 10,
			MaxLimit:     100,
		},
		Training: TrainingConfig{
			Interval:       6 * time.Hour,
			OnStartup:      true,
			Timeout:        10 * time.Minute,
			RetainVersions: 3,
		},
	}
}

// Validate checks the configuration. Failures are *InvalidConfigurationError.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if c.Collaborative.Factors < 1 {
		return invalid("collaborative.factors", "must be positive, got %d", c.Collaborative.Factors)
	}
	if c.Collaborative.Regularization < 0 {
		return invalid("collaborative.regularization", "must be non-negative, got %f", c.Collaborative.Regularization)
	}
	if c.Collaborative.Iterations < 1 {
		return invalid("collaborative.iterations", "must be positive, got %d", c.Collaborative.Iterations)
	}
	if c.Collaborative.Tolerance < 0 {
		return invalid("collaborative.tolerance", "must be non-negative, got %g", c.Collaborative.Tolerance)
	}
	if c.Collaborative.NumWorkers < 0 {
		return invalid("collaborative.num_workers", "must be non-negative, got %d", c.Collaborative.NumWorkers)
	}

	if c.Matrix.MinRatingsPerUser < 1 {
		return invalid("matrix.min_ratings_per_user", "must be positive, got %d", c.Matrix.MinRatingsPerUser)
	}
	if c.Matrix.MinRatingsPerMovie < 1 {
		return invalid("matrix.min_ratings_per_movie", "must be positive, got %d", c.Matrix.MinRatingsPerMovie)
	}

	if c.Content.MaxFeatures < 1 {
		return invalid("content.max_features", "must be positive, got %d", c.Content.MaxFeatures)
	}
	switch c.Content.Weighting {
	case WeightMeanCentered, WeightRaw:
	default:
		return invalid("content.weighting", "must be mean_centered or raw, got %q", c.Content.Weighting)
	}

	if err := ValidateWeight(c.Hybrid.Weight); err != nil {
		return err
	}
	if c.Hybrid.CandidateMultiplier < 1 {
		return invalid("hybrid.candidate_multiplier", "must be positive, got %d", c.Hybrid.CandidateMultiplier)
	}

	if c.Limits.DefaultLimit < 1 {
		return invalid("limits.default_limit", "must be positive, got %d", c.Limits.DefaultLimit)
	}
	if c.Limits.MaxLimit < c.Limits.DefaultLimit {
		return invalid("limits.max_limit", "must be >= limits.default_limit, got %d < %d", c.Limits.MaxLimit, c.Limits.DefaultLimit)
	}

	if c.Training.Timeout <= 0 {
		return invalid("training.timeout", "must be positive, got %v", c.Training.Timeout)
	}
	if c.Training.RetainVersions < 1 {
		return invalid("training.retain_versions", "must be positive, got %d", c.Training.RetainVersions)
	}

	return nil
}

// ValidateWeight checks a hybrid blend weight.
func ValidateWeight(w float64) error {
	if !(w >= 0 && w <= 1) {
		return invalid("hybrid.weight", "must be in [0, 1], got %f", w)
	}
	return nil
}

func invalid(field, format string, args ...interface{}) error {
	return &InvalidConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// MarshalJSON renders durations as strings.
func (c *Config) MarshalJSON() ([]byte, error) {
	type Alias Config
	type training struct {
		Interval       string `json:"interval"`
		OnStartup      bool   `json:"on_startup"`
		Timeout        string `json:"timeout"`
		RetainVersions int    `json:"retain_versions"`
	}
	return json.Marshal(&struct {
		*Alias
		Training training `json:"training"`
	}{
		Alias: (*Alias)(c),
		Training: training{
			Interval:       c.Training.Interval.String(),
			OnStartup:      c.Training.OnStartup,
			Timeout:        c.Training.Timeout.String(),
			RetainVersions: c.Training.RetainVersions,
		},
	})
}
