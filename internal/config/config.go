// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package config

import (
	"time"

	"github.com/marquee-rec/marquee/internal/recommend"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	Recommend RecommendConfig `koanf:"recommend"`
	NATS      NATSConfig      `koanf:"nats"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`

	// RateLimitReqs requests are allowed per client per RateLimitWindow.
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// Database drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// DatabaseConfig selects and configures the rating store.
type DatabaseConfig struct {
	Driver string `koanf:"driver"`

	// Path is the DuckDB file; ":memory:" or "" keeps the store in memory.
	Path string `koanf:"path"`

	// URL is the Postgres connection string.
	URL string `koanf:"url"`

	// MaxConns bounds the Postgres pool.
	MaxConns int32 `koanf:"max_conns"`

	// SeedSampleData loads the sample catalogue and ratings into an empty
	// store on startup.
	SeedSampleData bool `koanf:"seed_sample_data"`
}

// CacheConfig holds recommendation result caching settings.
type CacheConfig struct {
	Enabled bool `koanf:"enabled"`

	// LRUSize is the capacity of the in-process cache.
	LRUSize int           `koanf:"lru_size"`
	TTL     time.Duration `koanf:"ttl"`

	// RedisAddr enables the shared Redis cache when set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
}

// RecommendConfig holds recommendation engine settings in file form.
type RecommendConfig struct {
	Factors        int     `koanf:"factors"`
	Regularization float64 `koanf:"regularization"`
	Iterations     int     `koanf:"iterations"`
	Tolerance      float64 `koanf:"tolerance"`
	NumWorkers     int     `koanf:"num_workers"` // 0 = engine default

	MinRatingsPerUser  int `koanf:"min_ratings_per_user"`
	MinRatingsPerMovie int `koanf:"min_ratings_per_movie"`

	MaxFeatures      int    `koanf:"max_features"`
	ProfileWeighting string `koanf:"profile_weighting"`

	HybridWeight        float64 `koanf:"hybrid_weight"`
	CandidateMultiplier int     `koanf:"candidate_multiplier"`

	DefaultLimit int `koanf:"default_limit"`
	MaxLimit     int `koanf:"max_limit"`

	TrainInterval  time.Duration `koanf:"train_interval"`
	TrainOnStartup bool          `koanf:"train_on_startup"`
	TrainTimeout   time.Duration `koanf:"train_timeout"`

	// ModelPath is where fitted models are persisted; "" disables it.
	ModelPath      string `koanf:"model_path"`
	RetainVersions int    `koanf:"retain_versions"`
}

// NATSConfig holds the rating-change subscriber settings.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Subject string `koanf:"subject"`

	// Embedded runs an in-process NATS server and ignores URL.
	Embedded bool `koanf:"embedded"`

	// Debounce is the minimum gap between retrains triggered by messages.
	Debounce time.Duration `koanf:"debounce"`
}

// RecommendEngineConfig converts the file settings into the engine
// configuration. The result still needs recommend.Config.Validate.
func (c *Config) RecommendEngineConfig() *recommend.Config {
	r := c.Recommend
	cfg := recommend.DefaultConfig()

	cfg.Collaborative.Factors = r.Factors
	cfg.Collaborative.Regularization = r.Regularization
	cfg.Collaborative.Iterations = r.Iterations
	cfg.Collaborative.Tolerance = r.Tolerance
	cfg.Collaborative.NumWorkers = r.NumWorkers

	cfg.Matrix.MinRatingsPerUser = r.MinRatingsPerUser
	cfg.Matrix.MinRatingsPerMovie = r.MinRatingsPerMovie

	cfg.Content.MaxFeatures = r.MaxFeatures
	cfg.Content.Weighting = recommend.ProfileWeighting(r.ProfileWeighting)

	cfg.Hybrid.Weight = r.HybridWeight
	cfg.Hybrid.CandidateMultiplier = r.CandidateMultiplier

	cfg.Limits.DefaultLimit = r.DefaultLimit
	cfg.Limits.MaxLimit = r.MaxLimit

	cfg.Training.Interval = r.TrainInterval
	cfg.Training.OnStartup = r.TrainOnStartup
	cfg.Training.Timeout = r.TrainTimeout
	cfg.Training.RetainVersions = r.RetainVersions

	return cfg
}
