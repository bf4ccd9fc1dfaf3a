// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/marquee-rec/marquee/internal/config"
)

// Config holds the NATS client settings shared by Publisher and Subscriber.
type Config struct {
	URL     string
	Subject string

	// Source is stamped on published events.
	Source string

	// Debounce is the minimum gap between retrains started by the
	// Subscriber. Zero retrains on every burst.
	Debounce time.Duration

	// TrainTimeout bounds each triggered retrain; zero means no bound.
	TrainTimeout time.Duration

	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		URL:             nats.DefaultURL,
		Subject:         "ratings.changed",
		Source:          "marquee",
		Debounce:        30 * time.Second,
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		ReconnectBuffer: 8 * 1024 * 1024,
	}
}

// ConfigFrom builds the client settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	if cfg.NATS.URL != "" {
		c.URL = cfg.NATS.URL
	}
	if cfg.NATS.Subject != "" {
		c.Subject = cfg.NATS.Subject
	}
	c.Debounce = cfg.NATS.Debounce
	c.TrainTimeout = cfg.Recommend.TrainTimeout
	return c
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.URL == "":
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	case c.Subject == "":
		return fmt.Errorf("%w: subject is required", ErrInvalidConfig)
	case c.Debounce < 0:
		return fmt.Errorf("%w: debounce must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Connect opens a NATS connection that keeps reconnecting in the background.
func Connect(cfg *Config, name string, logger zerolog.Logger) (*nats.Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []nats.Option{
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectBufSize(cfg.ReconnectBuffer),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			event := logger.Error().Err(err)
			if sub != nil {
				event = event.Str("subject", sub.Subject)
			}
			event.Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.URL, err)
	}
	return nc, nil
}
