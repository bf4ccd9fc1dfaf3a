// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package algorithms

import (
	"context"
	"math"
	"testing"

	"github.com/marquee-rec/marquee/internal/recommend"
)

func popularityRatings() []recommend.RatingEntry {
	return []recommend.RatingEntry{
		rating(1, 10, 5), rating(2, 10, 4), rating(3, 10, 5),
		rating(1, 20, 3), rating(2, 20, 3),
		rating(1, 30, 5),
		rating(4, 40, 2), rating(5, 40, 1),
		rating(6, 50, 0), // invalid
	}
}

func TestPopularity_Train(t *testing.T) {
	p := NewPopularity(PopularityConfig{})
	if p.IsTrained() {
		t.Fatal("new model should be untrained")
	}

	if err := p.Train(context.Background(), popularityRatings()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if p.State() != StateTrained || p.Version() != 1 {
		t.Errorf("state = %s v%d, want trained v1", p.State(), p.Version())
	}
	if p.Len() != 4 {
		t.Errorf("Len() = %d, want 4", p.Len())
	}

	got := p.Top(10, nil)
	wantIDs := []int{30, 10, 20, 40}
	wantScores := []float64{5, 14.0 / 3, 3, 1.5}
	if len(got) != len(wantIDs) {
		t.Fatalf("Top() = %+v", got)
	}
	for i := range wantIDs {
		if got[i].MovieID != wantIDs[i] || math.Abs(got[i].RawScore-wantScores[i]) > 1e-9 {
			t.Errorf("Top()[%d] = %+v, want movie %d score %v", i, got[i], wantIDs[i], wantScores[i])
		}
		if got[i].Source != recommend.AlgorithmPopularity {
			t.Errorf("Source = %q", got[i].Source)
		}
	}
}

func TestPopularity_PriorDampsSmallCounts(t *testing.T) {
	p := NewPopularity(PopularityConfig{Prior: 2})
	if err := p.Train(context.Background(), popularityRatings()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	got := p.Top(1, nil)
	if len(got) != 1 || got[0].MovieID != 10 {
		t.Errorf("Top(1) with prior = %+v, want movie 10", got)
	}
}

func TestPopularity_TopFilters(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PopularityConfig
		limit   int
		exclude map[int]struct{}
		want    []int
	}{
		{"limit", PopularityConfig{}, 2, nil, []int{30, 10}},
		{"exclude", PopularityConfig{}, 2, map[int]struct{}{30: {}}, []int{10, 20}},
		{"min ratings", PopularityConfig{MinRatings: 2}, 10, nil, []int{10, 20, 40}},
		{"zero limit", PopularityConfig{}, 0, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPopularity(tt.cfg)
			if err := p.Train(context.Background(), popularityRatings()); err != nil {
				t.Fatalf("Train() error = %v", err)
			}
			got := p.Top(tt.limit, tt.exclude)
			if len(got) != len(tt.want) {
				t.Fatalf("Top() = %+v, want %v", got, tt.want)
			}
			for i, id := range tt.want {
				if got[i].MovieID != id {
					t.Errorf("Top()[%d] = %d, want %d", i, got[i].MovieID, id)
				}
			}
		})
	}
}

func TestPopularity_Empty(t *testing.T) {
	p := NewPopularity(PopularityConfig{})
	if err := p.Train(context.Background(), nil); err != nil {
		t.Fatalf("Train(nil) error = %v", err)
	}
	if !p.IsTrained() || p.Len() != 0 {
		t.Errorf("empty train: trained=%v len=%d", p.IsTrained(), p.Len())
	}
	if got := p.Top(5, nil); len(got) != 0 {
		t.Errorf("Top() = %+v, want empty", got)
	}
}

func TestPopularity_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPopularity(PopularityConfig{})
	if err := p.Train(ctx, popularityRatings()); err == nil {
		t.Fatal("Train() with canceled context should fail")
	}
	if p.IsTrained() {
		t.Error("canceled train must not mark the model trained")
	}
}

func TestPopularity_MarkStale(t *testing.T) {
	p := NewPopularity(PopularityConfig{})
	p.MarkStale()
	if p.State() != StateUntrained {
		t.Errorf("MarkStale on untrained = %s, want untrained", p.State())
	}

	if err := p.Train(context.Background(), popularityRatings()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	p.MarkStale()
	if p.State() != StateStale {
		t.Errorf("State() = %s, want stale", p.State())
	}
	if err := p.Train(context.Background(), popularityRatings()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if p.State() != StateTrained || p.Version() != 2 {
		t.Errorf("after retrain = %s v%d, want trained v2", p.State(), p.Version())
	}
}
