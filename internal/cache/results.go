// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/marquee-rec/marquee/internal/metrics"
)

// KeyPrefix starts every result key.
const KeyPrefix = "marquee:"

// Remote is a shared byte cache such as RedisCache.
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
}

// Results caches JSON-encoded query results in a local LRU backed by an
// optional Remote. Keys embed the snapshot epoch and version, so a retrain
// or a restart makes every earlier entry unreachable without a flush.
type Results struct {
	local  *LRU[[]byte]
	remote Remote
	logger zerolog.Logger
}

// NewResults creates a two-tier cache. remote may be nil.
func NewResults(size int, ttl time.Duration, remote Remote, logger zerolog.Logger) *Results {
	return &Results{
		local:  NewLRU[[]byte](size, ttl),
		remote: remote,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

// Key builds a cache key for a result computed from one snapshot. epoch
// tells apart the version counters of different processes.
//
//	Key("9f2c01ab", 3, "recs", 42, "hybrid", 10) == "marquee:9f2c01ab:v3:recs:42:hybrid:10"
func Key(epoch string, version int64, kind string, parts ...interface{}) string {
	var b strings.Builder
	b.WriteString(GenerationPrefix(epoch, version))
	b.WriteString(kind)
	for _, p := range parts {
		fmt.Fprintf(&b, ":%v", p)
	}
	return b.String()
}

// Get decodes the cached value for key into dst and reports whether it was
// found. A remote hit is copied into the local tier. Remote failures count
// as misses.
func (r *Results) Get(ctx context.Context, key string, dst interface{}) bool {
	if data, ok := r.local.Get(key); ok {
		if err := json.Unmarshal(data, dst); err == nil {
			metrics.RecordCacheLookup("lru", true)
			return true
		}
		r.local.Remove(key)
	}
	metrics.RecordCacheLookup("lru", false)

	if r.remote == nil {
		return false
	}

	data, ok, err := r.remote.Get(ctx, key)
	if err != nil {
		r.logger.Debug().Err(err).Str("key", key).Msg("Remote cache read failed")
	}
	if !ok || err != nil {
		metrics.RecordCacheLookup("redis", false)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("Discarding undecodable remote cache entry")
		metrics.RecordCacheLookup("redis", false)
		return false
	}

	metrics.RecordCacheLookup("redis", true)
	r.local.Set(key, data)
	r.updateSize()
	return true
}

// Set encodes v and stores it in both tiers. Remote failures are logged and
// otherwise ignored.
func (r *Results) Set(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("Result not cacheable")
		return
	}

	r.local.Set(key, data)
	r.updateSize()

	if r.remote != nil {
		if err := r.remote.Set(ctx, key, data); err != nil {
			r.logger.Debug().Err(err).Str("key", key).Msg("Remote cache write failed")
		}
	}
}

// PrefixDeleter is a Remote that can drop keys by prefix.
type PrefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// GenerationPrefix is the key prefix of every result computed from the
// snapshot identified by epoch and version.
func GenerationPrefix(epoch string, version int64) string {
	return fmt.Sprintf("%s%s:v%d:", KeyPrefix, epoch, version)
}

// Evict drops every result of one snapshot from both tiers and returns how
// many local entries were removed.
func (r *Results) Evict(ctx context.Context, epoch string, version int64) int {
	prefix := GenerationPrefix(epoch, version)
	removed := r.local.RemovePrefix(prefix)
	r.updateSize()

	if pd, ok := r.remote.(PrefixDeleter); ok {
		n, err := pd.DeletePrefix(ctx, prefix)
		if err != nil {
			r.logger.Debug().Err(err).Str("prefix", prefix).Msg("Remote cache eviction failed")
		} else {
			r.logger.Debug().Int("removed", n).Str("prefix", prefix).Msg("Evicted remote results")
		}
	}
	return removed
}

// Purge drops expired local entries. The supervisor calls it periodically.
func (r *Results) Purge() int {
	removed := r.local.CleanupExpired()
	r.updateSize()
	return removed
}

// Stats returns local hit and miss counts and size.
func (r *Results) Stats() (hits, misses int64, size int) {
	return r.local.Stats()
}

func (r *Results) updateSize() {
	metrics.CacheSize.WithLabelValues("lru").Set(float64(r.local.Len()))
}
