// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marquee-rec/marquee/internal/recommend"
)

// RatingChanged announces that a user's rating for a movie was stored.
type RatingChanged struct {
	EventID   string    `json:"event_id"`
	UserID    int       `json:"user_id"`
	MovieID   int       `json:"movie_id"`
	Rating    float64   `json:"rating"`
	RatedAt   time.Time `json:"rated_at"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRatingChanged builds an event for a stored rating.
func NewRatingChanged(r recommend.RatingEntry, source string) *RatingChanged {
	return &RatingChanged{
		EventID:   uuid.NewString(),
		UserID:    r.UserID,
		MovieID:   r.MovieID,
		Rating:    r.Value,
		RatedAt:   r.RatedAt,
		Source:    source,
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks that the event describes a rating the store would accept.
func (e *RatingChanged) Validate() error {
	switch {
	case e.EventID == "":
		return fmt.Errorf("%w: event_id is required", ErrInvalidEvent)
	case e.UserID < 1:
		return fmt.Errorf("%w: user_id must be positive, got %d", ErrInvalidEvent, e.UserID)
	case e.MovieID < 1:
		return fmt.Errorf("%w: movie_id must be positive, got %d", ErrInvalidEvent, e.MovieID)
	case e.Rating < recommend.MinRating || e.Rating > recommend.MaxRating:
		return fmt.Errorf("%w: rating %.1f outside [%.1f, %.1f]",
			ErrInvalidEvent, e.Rating, recommend.MinRating, recommend.MaxRating)
	}
	return nil
}

// Entry converts the event back into a rating.
func (e *RatingChanged) Entry() recommend.RatingEntry {
	return recommend.RatingEntry{
		UserID:  e.UserID,
		MovieID: e.MovieID,
		Value:   e.Rating,
		RatedAt: e.RatedAt,
	}
}
