// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package validation

// Limits are bounded here at 1000 before the service applies its own
// configured cap.

// RecommendationsRequest is GET /users/{userID}/recommendations.
type RecommendationsRequest struct {
	UserID    int    `json:"user_id" validate:"min=1"`
	Algorithm string `json:"algorithm" validate:"omitempty,algorithm"`
	Limit     int    `json:"limit" validate:"min=0,max=1000"`
}

// SimilarUsersRequest is GET /users/{userID}/similar.
type SimilarUsersRequest struct {
	UserID int `json:"user_id" validate:"min=1"`
	K      int `json:"k" validate:"min=0,max=1000"`
}

// PredictionRequest is GET /users/{userID}/movies/{movieID}/prediction.
type PredictionRequest struct {
	UserID  int `json:"user_id" validate:"min=1"`
	MovieID int `json:"movie_id" validate:"min=1"`
}

// SimilarMoviesRequest is GET /movies/{movieID}/similar.
type SimilarMoviesRequest struct {
	MovieID int    `json:"movie_id" validate:"min=1"`
	Limit   int    `json:"limit" validate:"min=0,max=1000"`
	Source  string `json:"source" validate:"omitempty,oneof=content content_based collaborative"`
}

// TrendingRequest is GET /movies/trending.
type TrendingRequest struct {
	Limit int `json:"limit" validate:"min=0,max=1000"`
}

// CreateMovieRequest is the body of POST /movies.
type CreateMovieRequest struct {
	Title           string `json:"title" validate:"required,max=300"`
	Description     string `json:"description" validate:"max=5000"`
	Genre           string `json:"genre" validate:"max=100"`
	Director        string `json:"director" validate:"max=200"`
	Year            int    `json:"year" validate:"omitempty,gte=1870,lte=2200"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,gte=1,lte=1440"`
}

// RateMovieRequest is the body of POST /ratings.
type RateMovieRequest struct {
	UserID  int     `json:"user_id" validate:"min=1"`
	MovieID int     `json:"movie_id" validate:"min=1"`
	Rating  float64 `json:"rating" validate:"gte=0.5,lte=5"`
}
