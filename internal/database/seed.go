// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package database

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/marquee-rec/marquee/internal/recommend"
)

// Sample data shape. Every sample user rates enough movies to clear the
// default matrix thresholds.
const (
	sampleUsers         = 12
	sampleMinPerUser    = 5
	sampleMaxPerUser    = 8
	sampleSeed          = 42
	sampleMinRating     = 2.0
	sampleMaxRating     = 5.0
	sampleRatingDecimal = 10
)

// SampleMovies is the catalogue loaded by SeedSample.
var SampleMovies = []recommend.MovieRecord{
	{
		Title:           "The Shawshank Redemption",
		Description:     "Two imprisoned men bond over a number of years, finding solace and eventual redemption through acts of common decency.",
		Genre:           "Drama",
		Director:        "Frank Darabont",
		Year:            1994,
		DurationMinutes: 142,
	},
	{
		Title:           "The Godfather",
		Description:     "The aging patriarch of an organized crime dynasty transfers control of his clandestine empire to his reluctant son.",
		Genre:           "Crime",
		Director:        "Francis Ford Coppola",
		Year:            1972,
		DurationMinutes: 175,
	},
	{
		Title:           "The Dark Knight",
		Description:     "When the menace known as the Joker wreaks havoc and chaos on the people of Gotham, Batman must accept one of the greatest psychological and physical tests of his ability to fight injustice.",
		Genre:           "Action",
		Director:        "Christopher Nolan",
		Year:            2008,
		DurationMinutes: 152,
	},
	{
		Title:           "Pulp Fiction",
		Description:     "The lives of two mob hitmen, a boxer, a gangster and his wife, and a pair of diner bandits intertwine in four tales of violence and redemption.",
		Genre:           "Crime",
		Director:        "Quentin Tarantino",
		Year:            1994,
		DurationMinutes: 154,
	},
	{
		Title:           "Forrest Gump",
		Description:     "The presidencies of Kennedy and Johnson, the Vietnam War, the Watergate scandal and other historical events unfold from the perspective of an Alabama man with an IQ of 75.",
		Genre:           "Drama",
		Director:        "Robert Zemeckis",
		Year:            1994,
		DurationMinutes: 142,
	},
	{
		Title:           "Inception",
		Description:     "A thief who steals corporate secrets through the use of dream-sharing technology is given the inverse task of planting an idea into the mind of a C.E.O.",
		Genre:           "Sci-Fi",
		Director:        "Christopher Nolan",
		Year:            2010,
		DurationMinutes: 148,
	},
	{
		Title:           "The Matrix",
		Description:     "A computer hacker learns from mysterious rebels about the true nature of his reality and his role in the war against its controllers.",
		Genre:           "Sci-Fi",
		Director:        "Lana Wachowski",
		Year:            1999,
		DurationMinutes: 136,
	},
	{
		Title:           "Goodfellas",
		Description:     "The story of Henry Hill and his life in the mob, covering his relationship with his wife Karen Hill and his mob partners Jimmy Conway and Tommy DeVito.",
		Genre:           "Crime",
		Director:        "Martin Scorsese",
		Year:            1990,
		DurationMinutes: 146,
	},
	{
		Title:           "The Lord of the Rings: The Fellowship of the Ring",
		Description:     "A meek Hobbit from the Shire and eight companions set out on a journey to destroy the powerful One Ring and save Middle-earth from the Dark Lord Sauron.",
		Genre:           "Fantasy",
		Director:        "Peter Jackson",
		Year:            2001,
		DurationMinutes: 178,
	},
	{
		Title:           "Fight Club",
		Description:     "An insomniac office worker and a devil-may-care soap maker form an underground fight club that evolves into much more.",
		Genre:           "Drama",
		Director:        "David Fincher",
		Year:            1999,
		DurationMinutes: 139,
	},
}

// SeedResult reports what SeedSample inserted.
type SeedResult struct {
	Movies  int
	Ratings int
	Skipped bool
}

// SeedSample loads SampleMovies and a deterministic set of ratings into an
// empty store. A store that already holds movies is left untouched.
func SeedSample(ctx context.Context, store Store, logger zerolog.Logger) (SeedResult, error) {
	movies, _, err := store.Counts(ctx)
	if err != nil {
		return SeedResult{}, fmt.Errorf("check existing data: %w", err)
	}
	if movies > 0 {
		logger.Info().Int("movies", movies).Msg("Store already populated, skipping sample data")
		return SeedResult{Skipped: true}, nil
	}

	ids := make([]int, 0, len(SampleMovies))
	for _, m := range SampleMovies {
		id, err := store.AddMovie(ctx, m)
		if err != nil {
			return SeedResult{}, fmt.Errorf("seed movie: %w", err)
		}
		ids = append(ids, id)
	}

	ratings := sampleRatings(ids, time.Now().UTC())
	for _, r := range ratings {
		if err := store.UpsertRating(ctx, r); err != nil {
			return SeedResult{}, fmt.Errorf("seed rating: %w", err)
		}
	}

	res := SeedResult{Movies: len(ids), Ratings: len(ratings)}
	logger.Info().Int("movies", res.Movies).Int("ratings", res.Ratings).Msg("Sample data loaded")
	return res, nil
}

// sampleRatings has each sample user rate a random subset of movieIDs. The
// generator is seeded, so the output depends only on movieIDs and now.
func sampleRatings(movieIDs []int, now time.Time) []recommend.RatingEntry {
	rng := rand.New(rand.NewSource(sampleSeed)) //nolint:gosec // sample data, not security sensitive

	var out []recommend.RatingEntry
	for user := 1; user <= sampleUsers; user++ {
		n := sampleMinPerUser + rng.Intn(sampleMaxPerUser-sampleMinPerUser+1)
		if n > len(movieIDs) {
			n = len(movieIDs)
		}
		for _, idx := range rng.Perm(len(movieIDs))[:n] {
			v := sampleMinRating + rng.Float64()*(sampleMaxRating-sampleMinRating)
			out = append(out, recommend.RatingEntry{
				UserID:  user,
				MovieID: movieIDs[idx],
				Value:   math.Round(v*sampleRatingDecimal) / sampleRatingDecimal,
				RatedAt: now.Add(-time.Duration(rng.Intn(365*24)) * time.Hour),
			})
		}
	}
	return out
}
