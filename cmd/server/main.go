// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/marquee-rec/marquee/internal/api"
	"github.com/marquee-rec/marquee/internal/cache"
	"github.com/marquee-rec/marquee/internal/config"
	"github.com/marquee-rec/marquee/internal/database"
	"github.com/marquee-rec/marquee/internal/logging"
	"github.com/marquee-rec/marquee/internal/metrics"
	"github.com/marquee-rec/marquee/internal/recommend"
	"github.com/marquee-rec/marquee/internal/recommend/storage"
	"github.com/marquee-rec/marquee/internal/recommend/trainer"
	"github.com/marquee-rec/marquee/internal/supervisor"
	"github.com/marquee-rec/marquee/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Caller:  cfg.Logging.Caller,
		Service: "marquee",
		Version: version,
	})
	metrics.SetAppInfo(version)

	logging.Info().
		Str("db_driver", cfg.Database.Driver).
		Bool("nats", cfg.NATS.Enabled).
		Bool("cache", cfg.Cache.Enabled).
		Msg("Starting Marquee with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rating store
	store, err := database.Open(ctx, &cfg.Database, logging.WithComponent("database"))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open rating store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing rating store")
		}
	}()

	if cfg.Database.SeedSampleData {
		res, err := database.SeedSample(ctx, store, logging.WithComponent("seed"))
		if err != nil {
			logging.Error().Err(err).Msg("Failed to seed sample data")
			return
		}
		logging.Info().
			Int("movies", res.Movies).
			Int("ratings", res.Ratings).
			Bool("skipped", res.Skipped).
			Msg("Sample data seeding finished")
	}

	// Engine
	engineCfg := cfg.RecommendEngineConfig()
	if err := engineCfg.Validate(); err != nil {
		logging.Error().Err(err).Msg("Invalid recommendation engine configuration")
		return
	}
	service, err := recommend.NewService(engineCfg, logging.WithComponent("recommend"))
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create recommendation service")
		return
	}

	var modelStore trainer.ModelStore
	if cfg.Recommend.ModelPath != "" {
		s, err := storage.NewStore(cfg.Recommend.ModelPath)
		if err != nil {
			logging.Error().Err(err).Str("path", cfg.Recommend.ModelPath).Msg("Failed to open model store")
			return
		}
		modelStore = s
		logging.Info().Str("path", s.Dir()).Msg("Model persistence enabled")
	}

	tr, err := trainer.New(service, store, modelStore, logging.WithComponent("trainer"))
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create trainer")
		return
	}

	// Result cache
	var (
		resultCache *cache.Results
		redisCache  *cache.RedisCache
		breaker     api.BreakerReporter
	)
	if cfg.Cache.Enabled {
		var remote cache.Remote
		if cfg.Cache.RedisAddr != "" {
			redisCache = cache.NewRedisCache(cache.RedisOptions{
				Addr:     cfg.Cache.RedisAddr,
				Password: cfg.Cache.RedisPassword,
				DB:       cfg.Cache.RedisDB,
				TTL:      cfg.Cache.TTL,
			}, logging.WithComponent("redis"))
			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			if err := redisCache.Ping(pingCtx); err != nil {
				logging.Warn().Err(err).Msg("Redis unreachable at startup (local cache only until it recovers)")
			}
			pingCancel()
			remote = redisCache
			breaker = redisCache
		}
		resultCache = cache.NewResults(cfg.Cache.LRUSize, cfg.Cache.TTL, remote, logging.WithComponent("cache"))
		logging.Info().
			Int("lru_size", cfg.Cache.LRUSize).
			Dur("ttl", cfg.Cache.TTL).
			Bool("redis", redisCache != nil).
			Msg("Result cache enabled")
	}
	defer func() {
		if redisCache == nil {
			return
		}
		if err := redisCache.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing Redis client")
		}
	}()

	// Rating events
	natsComponents, err := InitNATS(cfg, tr)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize NATS")
		return
	}
	defer natsComponents.Close(context.Background(), logging.WithComponent("nats"))

	deps := api.Dependencies{
		Service: service,
		Trainer: tr,
		Store:   store,
		Version: version,
		Logger:  logging.WithComponent("api"),
	}
	if resultCache != nil {
		deps.Cache = resultCache
	}
	if natsComponents != nil {
		deps.Notifier = natsComponents.Publisher()
		if breaker == nil {
			breaker = natsComponents.Publisher()
		}
	}
	deps.Breaker = breaker

	handler, err := api.NewHandler(deps)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create API handler")
		return
	}
	defer handler.Close()

	if cfg.HasWildcardCORS() {
		logging.Warn().Msg("CORS is configured with wildcard origin (CORS_ORIGINS=*)")
	}
	if cfg.Server.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           api.NewRouter(handler, &cfg.Server).Setup(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	// Supervisor tree
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout + 5*time.Second,
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create supervisor tree")
		return
	}

	tree.AddModelService(services.NewTrainingService(tr, services.TrainingConfig{
		RestoreOnStartup: modelStore != nil,
		TrainOnStartup:   cfg.Recommend.TrainOnStartup,
		Interval:         cfg.Recommend.TrainInterval,
		Timeout:          cfg.Recommend.TrainTimeout,
	}, logging.WithComponent("training")))
	if resultCache != nil {
		tree.AddModelService(services.NewCacheJanitorService(service, resultCache, 0, logging.WithComponent("cache-janitor")))
	}
	if natsComponents != nil {
		tree.AddEventService(natsComponents.Subscriber())
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logging.WithComponent("http")))

	logging.Info().Str("addr", server.Addr).Msg("Supervisor tree configured")

	errCh := tree.ServeBackground(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	stopped := false
	select {
	case sig := <-sigChan:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		stopped = true
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree stopped unexpectedly")
		}
	}

	cancel()

	if !stopped {
		waitForTree(errCh, cfg.Server.ShutdownTimeout+10*time.Second)
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop cleanly")
		}
	}

	logging.Info().Msg("Server stopped")
}

// waitForTree waits for the supervisor tree to return after cancellation.
func waitForTree(errCh <-chan error, timeout time.Duration) {
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Warn().Err(err).Msg("Supervisor tree returned error during shutdown")
		}
	case <-time.After(timeout):
		logging.Warn().Msg("Timed out waiting for supervisor tree to stop")
	}
}
