// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/marquee-rec/marquee/internal/metrics"
	"github.com/marquee-rec/marquee/internal/recommend/trainer"
)

const (
	// subscriberBuffer is the channel depth between the NATS client and
	// the handling loop.
	subscriberBuffer = 256

	// busyRetryDelay spaces retries while another training run holds the
	// trainer.
	busyRetryDelay = time.Second
)

// Retrainer is the part of the training pipeline driven by rating events.
type Retrainer interface {
	MarkStale()
	Train(ctx context.Context) error
}

// Subscriber marks the model stale for every received RatingChanged event
// and schedules a retrain. At most one retrain is pending at any time.
type Subscriber struct {
	conn         *nats.Conn
	subject      string
	trainer      Retrainer
	limiter      *rate.Limiter
	trainTimeout time.Duration
	logger       zerolog.Logger

	kick chan struct{}

	// ready is closed once the subscription is registered with the server.
	ready     chan struct{}
	readyOnce sync.Once
}

// NewSubscriber creates a Subscriber on an open connection.
func NewSubscriber(conn *nats.Conn, cfg *Config, t Retrainer, logger zerolog.Logger) (*Subscriber, error) {
	if conn == nil {
		return nil, ErrNilConnection
	}
	if t == nil {
		return nil, fmt.Errorf("%w: retrainer is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	limit := rate.Inf
	if cfg.Debounce > 0 {
		limit = rate.Every(cfg.Debounce)
	}

	return &Subscriber{
		conn:         conn,
		subject:      cfg.Subject,
		trainer:      t,
		limiter:      rate.NewLimiter(limit, 1),
		trainTimeout: cfg.TrainTimeout,
		logger:       logger,
		kick:         make(chan struct{}, 1),
		ready:        make(chan struct{}),
	}, nil
}

// Ready is closed once Serve has registered its subscription.
func (s *Subscriber) Ready() <-chan struct{} {
	return s.ready
}

// Serve consumes events until ctx is canceled.
func (s *Subscriber) Serve(ctx context.Context) error {
	msgs := make(chan *nats.Msg, subscriberBuffer)
	sub, err := s.conn.ChanSubscribe(s.subject, msgs)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }() //nolint:errcheck // connection may already be closed
	if err := s.conn.Flush(); err != nil {
		return fmt.Errorf("register subscription on %s: %w", s.subject, err)
	}
	s.readyOnce.Do(func() { close(s.ready) })

	s.logger.Info().Str("subject", s.subject).Msg("Listening for rating changes")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.retrainLoop(ctx)
	}()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-msgs:
			s.handle(msg)
		}
	}
}

func (s *Subscriber) handle(msg *nats.Msg) {
	metrics.NATSMessagesConsumed.Inc()

	event, err := Unmarshal(msg.Data)
	if err != nil {
		metrics.NATSMessagesInvalid.Inc()
		s.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("Dropping invalid rating event")
		return
	}

	s.logger.Debug().
		Str("event_id", event.EventID).
		Int("user_id", event.UserID).
		Int("movie_id", event.MovieID).
		Msg("Rating changed")

	s.trainer.MarkStale()
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// retrainLoop runs one retrain per kick, spaced by the limiter.
func (s *Subscriber) retrainLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		metrics.NATSRetrainsTriggered.Inc()
		if s.retrain(ctx) {
			continue
		}

		// The running pass may predate the event; try again.
		select {
		case <-ctx.Done():
			return
		case <-time.After(busyRetryDelay):
		}
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
}

// retrain reports false when another run held the trainer.
func (s *Subscriber) retrain(ctx context.Context) bool {
	if s.trainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.trainTimeout)
		defer cancel()
	}

	err := s.trainer.Train(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, trainer.ErrTrainingInProgress):
		s.logger.Debug().Msg("Retrain deferred, training already in progress")
		return false
	default:
		s.logger.Error().Err(err).Msg("Event-triggered retrain failed")
	}
	return true
}

// String implements fmt.Stringer for supervisor logging.
func (s *Subscriber) String() string {
	return "nats-subscriber:" + s.subject
}
