// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package main

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/marquee-rec/marquee/internal/config"
	"github.com/marquee-rec/marquee/internal/eventprocessor"
	"github.com/marquee-rec/marquee/internal/logging"
)

// NATSComponents holds the rating event plumbing.
type NATSComponents struct {
	server     *eventprocessor.EmbeddedServer
	conn       *nats.Conn
	publisher  *eventprocessor.Publisher
	subscriber *eventprocessor.Subscriber
}

// InitNATS connects to NATS and builds the rating publisher and subscriber.
// It returns nil when NATS is disabled.
func InitNATS(cfg *config.Config, retrainer eventprocessor.Retrainer) (*NATSComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS disabled (NATS_ENABLED=false)")
		return nil, nil
	}

	logger := logging.WithComponent("nats")
	evConfig := eventprocessor.ConfigFrom(cfg)
	evCfg := &evConfig
	c := &NATSComponents{}

	if cfg.NATS.Embedded {
		srv, err := eventprocessor.NewEmbeddedServer(eventprocessor.EmbeddedOptions{})
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		c.server = srv
		evCfg.URL = srv.ClientURL()
		logger.Info().Str("url", evCfg.URL).Msg("Embedded NATS server started")
	}

	conn, err := eventprocessor.Connect(evCfg, "marquee", logger)
	if err != nil {
		c.Close(context.Background(), logger)
		return nil, err
	}
	c.conn = conn

	if c.publisher, err = eventprocessor.NewPublisher(conn, evCfg, logger); err != nil {
		c.Close(context.Background(), logger)
		return nil, fmt.Errorf("create publisher: %w", err)
	}
	if c.subscriber, err = eventprocessor.NewSubscriber(conn, evCfg, retrainer, logger); err != nil {
		c.Close(context.Background(), logger)
		return nil, fmt.Errorf("create subscriber: %w", err)
	}

	logger.Info().
		Str("subject", evCfg.Subject).
		Dur("debounce", evCfg.Debounce).
		Bool("embedded", cfg.NATS.Embedded).
		Msg("NATS rating events enabled")
	return c, nil
}

// Publisher returns the rating publisher.
func (c *NATSComponents) Publisher() *eventprocessor.Publisher {
	return c.publisher
}

// Subscriber returns the rating subscriber.
func (c *NATSComponents) Subscriber() *eventprocessor.Subscriber {
	return c.subscriber
}

// Close flushes the publisher, closes the connection and stops the embedded
// server. It is safe on partially built components.
func (c *NATSComponents) Close(ctx context.Context, logger zerolog.Logger) {
	if c == nil {
		return
	}
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("Error closing NATS publisher")
		}
	}
	if c.conn != nil {
		c.conn.Close()
	}
	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("Error stopping embedded NATS server")
		}
	}
}
