// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const defaultJanitorInterval = 30 * time.Second

// SnapshotVersioner reports the epoch and version of the published snapshot.
type SnapshotVersioner interface {
	Epoch() string
	Version() int64
}

// CachePurger drops cached results. Purge removes expired entries and Evict
// removes every result computed from one snapshot.
type CachePurger interface {
	Purge() int
	Evict(ctx context.Context, epoch string, version int64) int
}

// CacheJanitorService evicts the results of a superseded snapshot once a
// newer one is published and drops expired entries on every tick. Cache keys
// carry the snapshot version, so entries from an older version can never be
// read again and only hold memory.
type CacheJanitorService struct {
	source   SnapshotVersioner
	cache    CachePurger
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewCacheJanitorService creates the janitor. A non-positive interval
// uses 30s.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCacheJanitorService(source SnapshotVersioner, cache CachePurger, interval time.Duration, logger zerolog.Logger) *CacheJanitorService {
	if interval <= 0 {
		interval = defaultJanitorInterval
	}
	return &CacheJanitorService{
		source:   source,
		cache:    cache,
		interval: interval,
		logger:   logger.With().Str("service", "cache-janitor").Logger(),
		name:     "cache-janitor",
	}
}

// Serve implements suture.Service.
func (j *CacheJanitorService) Serve(ctx context.Context) error {
	seen := j.source.Version()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if expired := j.cache.Purge(); expired > 0 {
				j.logger.Debug().Int("removed", expired).Msg("Dropped expired results")
			}

			current := j.source.Version()
			if current > seen {
				j.evictBetween(ctx, seen, current)
			}
			seen = current
		}
	}
}

// evictBetween drops the results of every snapshot from seen up to, but
// not including, current. Several publishes can land within one tick.
func (j *CacheJanitorService) evictBetween(ctx context.Context, seen, current int64) {
	from := max(seen, 1)
	if from >= current {
		return
	}
	epoch := j.source.Epoch()
	removed := 0
	for v := from; v < current; v++ {
		removed += j.cache.Evict(ctx, epoch, v)
	}
	j.logger.Debug().
		Int64("from_version", seen).
		Int64("to_version", current).
		Int("removed", removed).
		Msg("Evicted results of superseded snapshots")
}

// String implements fmt.Stringer for supervisor logging.
func (j *CacheJanitorService) String() string {
	return j.name
}
