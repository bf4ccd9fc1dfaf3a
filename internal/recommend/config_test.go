// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package recommend

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v, want nil", err)
	}

	t.Run("collaborative defaults", func(t *testing.T) {
		if cfg.Collaborative.Factors != 20 {
			t.Errorf("Factors = %d, want 20", cfg.Collaborative.Factors)
		}
		if cfg.Collaborative.Iterations <= 0 {
			t.Errorf("Iterations = %d, want > 0", cfg.Collaborative.Iterations)
		}
	})

	t.Run("matrix thresholds", func(t *testing.T) {
		if cfg.Matrix.MinRatingsPerUser != 5 || cfg.Matrix.MinRatingsPerMovie != 3 {
			t.Errorf("thresholds = %d/%d, want 5/3", cfg.Matrix.MinRatingsPerUser, cfg.Matrix.MinRatingsPerMovie)
		}
	})

	t.Run("hybrid weight", func(t *testing.T) {
		if cfg.Hybrid.Weight != 0.6 {
			t.Errorf("Hybrid.Weight = %f, want 0.6", cfg.Hybrid.Weight)
		}
	})

	t.Run("content weighting", func(t *testing.T) {
		if cfg.Content.Weighting != WeightMeanCentered {
			t.Errorf("Weighting = %q, want %q", cfg.Content.Weighting, WeightMeanCentered)
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{"valid default", func(*Config) {}, ""},
		{"zero factors", func(c *Config) { c.Collaborative.Factors = 0 }, "collaborative.factors"},
		{"negative regularization", func(c *Config) { c.Collaborative.Regularization = -1 }, "collaborative.regularization"},
		{"zero iterations", func(c *Config) { c.Collaborative.Iterations = 0 }, "collaborative.iterations"},
		{"zero min per user", func(c *Config) { c.Matrix.MinRatingsPerUser = 0 }, "matrix.min_ratings_per_user"},
		{"zero min per movie", func(c *Config) { c.Matrix.MinRatingsPerMovie = 0 }, "matrix.min_ratings_per_movie"},
		{"weight above one", func(c *Config) { c.Hybrid.Weight = 1.5 }, "hybrid.weight"},
		{"weight negative", func(c *Config) { c.Hybrid.Weight = -0.1 }, "hybrid.weight"},
		{"weight NaN", func(c *Config) { c.Hybrid.Weight = math.NaN() }, "hybrid.weight"},
		{"weight zero ok", func(c *Config) { c.Hybrid.Weight = 0 }, ""},
		{"weight one ok", func(c *Config) { c.Hybrid.Weight = 1 }, ""},
		{"unknown weighting", func(c *Config) { c.Content.Weighting = "log" }, "content.weighting"},
		{"max below default", func(c *Config) { c.Limits.MaxLimit = 5; c.Limits.DefaultLimit = 10 }, "limits.max_limit"},
		{"zero timeout", func(c *Config) { c.Training.Timeout = 0 }, "training.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}

			var cfgErr *InvalidConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() = %v, want *InvalidConfigurationError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestConfig_Clone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Hybrid.Weight = 0.1

	if cfg.Hybrid.Weight == 0.1 {
		t.Error("modifying clone changed the original")
	}
}

func TestConfig_MarshalJSON(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Training.Interval = 90 * time.Minute

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"interval":"1h30m0s"`) {
		t.Errorf("expected human-readable interval in %s", data)
	}
}
