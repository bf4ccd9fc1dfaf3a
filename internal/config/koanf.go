// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/marquee/config.yaml",
	"/etc/marquee/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. They are loaded first and
// overridden by the config file and then the environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Driver:         DriverDuckDB,
			Path:           "/data/marquee.duckdb",
			MaxConns:       10,
			SeedSampleData: false,
		},
		Cache: CacheConfig{
			Enabled: true,
			LRUSize: 1000,
			TTL:     5 * time.Minute,
		},
		Recommend: RecommendConfig{
			Factors:             20,
			Regularization:      0.1,
			Iterations:          15,
			Tolerance:           1e-6,
			NumWorkers:          4,
			MinRatingsPerUser:   5,
			MinRatingsPerMovie:  3,
			MaxFeatures:         1000,
			ProfileWeighting:    "mean_centered",
			HybridWeight:        0.6,
			CandidateMultiplier: 2,
			DefaultLimit:        10,
			MaxLimit:            100,
			TrainInterval:       6 * time.Hour,
			TrainOnStartup:      true,
			TrainTimeout:        10 * time.Minute,
			ModelPath:           "/data/models",
			RetainVersions:      3,
		},
		NATS: NATSConfig{
			Enabled:  false,
			URL:      "nats://127.0.0.1:4222",
			Subject:  "ratings.changed",
			Debounce: 30 * time.Second,
		},
	}
}

// Load reads configuration in three layers:
//  1. Defaults: built-in values
//  2. Config File: optional YAML file
//  3. Environment Variables: explicit mapping table, highest priority
func Load() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// DUCKDB_PATH -> database.path
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns CONFIG_PATH if it exists, else the first default
// path that exists, else "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated environment values.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated strings for known slice fields.
// Values that are already slices (from YAML) are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to config paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Database
	"db_driver":        "database.driver",
	"duckdb_path":      "database.path",
	"database_url":     "database.url",
	"db_max_conns":     "database.max_conns",
	"seed_sample_data": "database.seed_sample_data",

	// Cache
	"cache_enabled":  "cache.enabled",
	"cache_lru_size": "cache.lru_size",
	"cache_ttl":      "cache.ttl",
	"redis_addr":     "cache.redis_addr",
	"redis_password": "cache.redis_password",
	"redis_db":       "cache.redis_db",

	// Recommendation engine
	"recommend_factors":               "recommend.factors",
	"recommend_regularization":        "recommend.regularization",
	"recommend_iterations":            "recommend.iterations",
	"recommend_tolerance":             "recommend.tolerance",
	"recommend_workers":               "recommend.num_workers",
	"recommend_min_ratings_per_user":  "recommend.min_ratings_per_user",
	"recommend_min_ratings_per_movie": "recommend.min_ratings_per_movie",
	"recommend_max_features":          "recommend.max_features",
	"recommend_profile_weighting":     "recommend.profile_weighting",
	"recommend_hybrid_weight":         "recommend.hybrid_weight",
	"recommend_candidate_multiplier":  "recommend.candidate_multiplier",
	"recommend_default_limit":         "recommend.default_limit",
	"recommend_max_limit":             "recommend.max_limit",
	"recommend_train_interval":        "recommend.train_interval",
	"recommend_train_on_startup":      "recommend.train_on_startup",
	"recommend_train_timeout":         "recommend.train_timeout",
	"recommend_model_path":            "recommend.model_path",
	"recommend_retain_versions":       "recommend.retain_versions",

	// NATS
	"nats_enabled":  "nats.enabled",
	"nats_url":      "nats.url",
	"nats_subject":  "nats.subject",
	"nats_embedded": "nats.embedded",
	"nats_debounce": "nats.debounce",
}

// envTransformFunc maps an environment variable name to its config path,
// or "" to skip it.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
