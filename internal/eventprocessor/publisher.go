// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package eventprocessor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/marquee-rec/marquee/internal/metrics"
	"github.com/marquee-rec/marquee/internal/recommend"
)

const publisherBreakerName = "nats-publisher"

// Publisher announces stored ratings. Publishes go through a circuit
// breaker so a lost NATS connection fails fast and the caller can fall back
// to local staleness tracking.
type Publisher struct {
	conn    *nats.Conn
	subject string
	source  string
	cb      *gobreaker.CircuitBreaker[struct{}]
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPublisher creates a Publisher on an open connection. The connection
// stays owned by the caller.
func NewPublisher(conn *nats.Conn, cfg *Config, logger zerolog.Logger) (*Publisher, error) {
	if conn == nil {
		return nil, ErrNilConnection
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        publisherBreakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("NATS publisher circuit breaker state change")
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &Publisher{
		conn:    conn,
		subject: cfg.Subject,
		source:  cfg.Source,
		cb:      cb,
		logger:  logger,
	}, nil
}

// NotifyRatingChanged publishes a RatingChanged event for r.
func (p *Publisher) NotifyRatingChanged(ctx context.Context, r recommend.RatingEntry) error {
	return p.Publish(ctx, NewRatingChanged(r, p.source))
}

// Publish sends event on the configured subject with the event ID as the
// Nats-Msg-Id header.
func (p *Publisher) Publish(ctx context.Context, event *RatingChanged) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrPublisherClosed
	}

	data, err := Marshal(event)
	if err != nil {
		return err
	}

	msg := nats.NewMsg(p.subject)
	msg.Header.Set(nats.MsgIdHdr, event.EventID)
	msg.Data = data

	_, err = p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.conn.PublishMsg(msg)
	})

	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(publisherBreakerName, "success").Inc()
		metrics.NATSMessagesPublished.Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(publisherBreakerName, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(publisherBreakerName, "failure").Inc()
	}
	return err
}

// State returns the circuit breaker state ("closed", "open", "half-open").
func (p *Publisher) State() string {
	return p.cb.State().String()
}

// Close stops further publishes and flushes what is buffered.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.conn.IsClosed() {
		return nil
	}
	return p.conn.FlushTimeout(5 * time.Second)
}
