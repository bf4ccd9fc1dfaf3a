// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/marquee-rec/marquee/internal/metrics"
)

const redisBreakerName = "redis-cache"

// RedisCache stores encoded results in Redis. Calls go through a circuit
// breaker so an unreachable Redis costs one fast rejection per request
// instead of a network timeout.
type RedisCache struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker[[]byte]
	ttl    time.Duration
	logger zerolog.Logger
}

// RedisOptions configures NewRedisCache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisCache creates a client for opts.Addr. It does not connect until
// first use; call Ping to check connectivity.
func NewRedisCache(opts RedisOptions, logger zerolog.Logger) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return newRedisCache(client, opts.TTL, logger)
}

func newRedisCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	logger = logger.With().Str("component", "cache").Str("cache_type", "redis").Logger()

	metrics.CircuitBreakerState.WithLabelValues(redisBreakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        redisBreakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,

		// Opens at a 60% failure rate over at least 10 requests.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= 0.6
		},

		// A miss is a successful call.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("Redis circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &RedisCache{client: client, cb: cb, ttl: ttl, logger: logger}
}

// Get returns the stored bytes. A missing key is (nil, false, nil).
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.execute(func() ([]byte, error) {
		return r.client.Get(ctx, key).Bytes()
	})
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores val under key with the cache TTL.
func (r *RedisCache) Set(ctx context.Context, key string, val []byte) error {
	_, err := r.execute(func() ([]byte, error) {
		return nil, r.client.Set(ctx, key, val, r.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix.
func (r *RedisCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	removed := 0
	_, err := r.execute(func() ([]byte, error) {
		iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
				return nil, err
			}
			removed++
		}
		return nil, iter.Err()
	})
	if err != nil {
		return removed, fmt.Errorf("redis delete %s*: %w", prefix, err)
	}
	return removed, nil
}

// Ping checks connectivity, bypassing the breaker.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// State returns the breaker state: closed, half-open or open.
func (r *RedisCache) State() string {
	return r.cb.State().String()
}

// Close closes the client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) execute(fn func() ([]byte, error)) ([]byte, error) {
	val, err := r.cb.Execute(fn)
	switch {
	case err == nil, errors.Is(err, redis.Nil):
		metrics.CircuitBreakerRequests.WithLabelValues(redisBreakerName, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(redisBreakerName, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(redisBreakerName, "failure").Inc()
	}
	return val, err
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
