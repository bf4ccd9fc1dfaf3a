// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package eventprocessor

import (
	"errors"
	"testing"
	"time"

	"github.com/marquee-rec/marquee/internal/config"
)

func TestRatingChanged_Validate(t *testing.T) {
	valid := func() *RatingChanged { return NewRatingChanged(rating(1, 2, 4), "test") }

	tests := []struct {
		name   string
		mutate func(*RatingChanged)
		ok     bool
	}{
		{"valid", func(*RatingChanged) {}, true},
		{"lowest rating", func(e *RatingChanged) { e.Rating = 0.5 }, true},
		{"missing id", func(e *RatingChanged) { e.EventID = "" }, false},
		{"zero user", func(e *RatingChanged) { e.UserID = 0 }, false},
		{"negative movie", func(e *RatingChanged) { e.MovieID = -1 }, false},
		{"rating too low", func(e *RatingChanged) { e.Rating = 0.4 }, false},
		{"rating too high", func(e *RatingChanged) { e.Rating = 5.5 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid()
			tt.mutate(e)
			err := e.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("Validate() error = %v, want ErrInvalidEvent", err)
			}
		})
	}
}

func TestRatingChanged_Entry(t *testing.T) {
	in := rating(4, 9, 2.5)
	got := NewRatingChanged(in, "test").Entry()
	if got.UserID != 4 || got.MovieID != 9 || got.Value != 2.5 || !got.RatedAt.Equal(in.RatedAt) {
		t.Errorf("Entry() = %+v, want %+v", got, in)
	}
}

func TestUnmarshal_Rejects(t *testing.T) {
	for _, payload := range []string{"", "{", `{"event_id":"a","user_id":1,"movie_id":0,"rating":3}`} {
		if _, err := Unmarshal([]byte(payload)); !errors.Is(err, ErrInvalidEvent) {
			t.Errorf("Unmarshal(%q) error = %v, want ErrInvalidEvent", payload, err)
		}
	}
}

func TestConfigFrom(t *testing.T) {
	app := &config.Config{
		NATS:      config.NATSConfig{URL: "nats://events:4222", Subject: "movies.rated", Debounce: time.Minute},
		Recommend: config.RecommendConfig{TrainTimeout: 3 * time.Minute},
	}
	got := ConfigFrom(app)
	if got.URL != "nats://events:4222" || got.Subject != "movies.rated" || got.Debounce != time.Minute || got.TrainTimeout != 3*time.Minute {
		t.Errorf("ConfigFrom() = %+v", got)
	}

	def := ConfigFrom(nil)
	if err := def.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	def.Debounce = -time.Second
	if err := def.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("negative debounce: error = %v, want ErrInvalidConfig", err)
	}
}
