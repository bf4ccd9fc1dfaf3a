// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/marquee-rec/marquee/internal/recommend/storage"
	"github.com/marquee-rec/marquee/internal/recommend/trainer"
)

// ModelTrainer is the part of the training pipeline the schedule drives.
type ModelTrainer interface {
	Train(ctx context.Context) error
	Restore(ctx context.Context) error
}

// TrainingConfig holds the training schedule.
type TrainingConfig struct {
	// RestoreOnStartup publishes the newest persisted model before the
	// first training run.
	RestoreOnStartup bool

	// TrainOnStartup trains once when the service first starts.
	TrainOnStartup bool

	// Interval between scheduled retrains; zero disables the schedule.
	Interval time.Duration

	// Timeout bounds each run; zero means no bound.
	Timeout time.Duration
}

// TrainingService restores and trains the model at startup and retrains it
// on a fixed schedule. Failed runs are logged and retried on the next tick;
// they never stop the service.
type TrainingService struct {
	trainer ModelTrainer
	config  TrainingConfig
	logger  zerolog.Logger
	name    string

	// started keeps startup work from repeating when suture restarts the
	// service.
	started atomic.Bool
}

// NewTrainingService creates the training schedule.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTrainingService(t ModelTrainer, cfg TrainingConfig, logger zerolog.Logger) *TrainingService {
	return &TrainingService{
		trainer: t,
		config:  cfg,
		logger:  logger.With().Str("service", "training").Logger(),
		name:    "training-service",
	}
}

// Serve implements suture.Service.
func (s *TrainingService) Serve(ctx context.Context) error {
	if s.started.CompareAndSwap(false, true) {
		s.startup(ctx)
	}

	if s.config.Interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.train(ctx, "scheduled")
		}
	}
}

func (s *TrainingService) startup(ctx context.Context) {
	if s.config.RestoreOnStartup {
		err := s.trainer.Restore(ctx)
		switch {
		case err == nil:
			s.logger.Info().Msg("Restored persisted model")
		case errors.Is(err, storage.ErrNotFound):
			s.logger.Info().Msg("No persisted model to restore")
		default:
			s.logger.Warn().Err(err).Msg("Restoring persisted model failed")
		}
	}
	if s.config.TrainOnStartup {
		s.train(ctx, "startup")
	}
}

func (s *TrainingService) train(ctx context.Context, reason string) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := s.trainer.Train(ctx)
	switch {
	case err == nil:
		s.logger.Info().Str("reason", reason).Dur("duration", time.Since(start)).Msg("Training complete")
	case errors.Is(err, trainer.ErrTrainingInProgress):
		s.logger.Debug().Str("reason", reason).Msg("Training skipped, another run in progress")
	case errors.Is(err, context.Canceled):
	default:
		s.logger.Warn().Err(err).Str("reason", reason).Msg("Training failed")
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *TrainingService) String() string {
	return s.name
}
