// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/marquee-rec/marquee/internal/testinfra"
)

func TestRedisCache_Integration(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rc, err := testinfra.NewRedisContainer(ctx, t)
	if err != nil {
		t.Fatalf("NewRedisContainer() error = %v", err)
	}

	r := NewRedisCache(RedisOptions{Addr: rc.Addr, TTL: time.Minute}, zerolog.Nop())
	defer func() { _ = r.Close() }()

	if err := r.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	if _, ok, err := r.Get(ctx, "marquee:it:v1:missing"); ok || err != nil {
		t.Fatalf("Get(missing) = %v, %v, want miss without error", ok, err)
	}

	results := NewResults(10, time.Minute, r, zerolog.Nop())
	results.Set(ctx, Key("it", 1, "trending", 5), []int{3, 1, 2})
	results.Set(ctx, Key("it", 1, "trending", 10), []int{3, 1, 2, 4})

	// A fresh local tier must be filled from Redis.
	other := NewResults(10, time.Minute, r, zerolog.Nop())
	var got []int
	if !other.Get(ctx, Key("it", 1, "trending", 5), &got) || len(got) != 3 {
		t.Fatalf("Get() via Redis = %v", got)
	}

	removed, err := r.DeletePrefix(ctx, KeyPrefix+"v1:")
	if err != nil {
		t.Fatalf("DeletePrefix() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("DeletePrefix() removed %d, want 2", removed)
	}
	if r.State() != "closed" {
		t.Errorf("breaker state = %s, want closed", r.State())
	}
}
