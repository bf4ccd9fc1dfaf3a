// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package eventprocessor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

func TestPublisher_SetsMessageID(t *testing.T) {
	srv, nc := startServer(t)
	cfg := testConfig(srv.ClientURL(), 0)

	sub, err := nc.SubscribeSync(cfg.Subject)
	if err != nil {
		t.Fatalf("SubscribeSync() error = %v", err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	pub, err := NewPublisher(nc, &cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	if err := pub.NotifyRatingChanged(context.Background(), rating(3, 7, 3.5)); err != nil {
		t.Fatalf("NotifyRatingChanged() error = %v", err)
	}

	msg, err := sub.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("NextMsg() error = %v", err)
	}
	event, err := Unmarshal(msg.Data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got := msg.Header.Get(nats.MsgIdHdr); got != event.EventID {
		t.Errorf("%s = %q, want event id %q", nats.MsgIdHdr, got, event.EventID)
	}
	if event.UserID != 3 || event.MovieID != 7 || event.Rating != 3.5 || event.Source != "marquee" {
		t.Errorf("event = %+v", event)
	}
	if pub.State() != "closed" {
		t.Errorf("State() = %q, want closed", pub.State())
	}
}

func TestPublisher_Errors(t *testing.T) {
	srv, nc := startServer(t)
	cfg := testConfig(srv.ClientURL(), 0)

	pub, err := NewPublisher(nc, &cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	if err := pub.NotifyRatingChanged(context.Background(), rating(1, 1, 9)); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("out-of-range rating: error = %v, want ErrInvalidEvent", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.NotifyRatingChanged(ctx, rating(1, 1, 3)); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled context: error = %v, want context.Canceled", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := pub.NotifyRatingChanged(context.Background(), rating(1, 1, 3)); !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("after Close: error = %v, want ErrPublisherClosed", err)
	}

	if _, err := NewPublisher(nil, &cfg, zerolog.Nop()); !errors.Is(err, ErrNilConnection) {
		t.Errorf("nil conn: error = %v, want ErrNilConnection", err)
	}
}

func TestPublisher_BreakerOpensOnClosedConnection(t *testing.T) {
	srv, nc := startServer(t)
	cfg := testConfig(srv.ClientURL(), 0)

	pub, err := NewPublisher(nc, &cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	nc.Close()

	for i := 0; i < 5; i++ {
		if err := pub.NotifyRatingChanged(context.Background(), rating(1, 1, 3)); err == nil {
			t.Fatalf("publish %d on a closed connection succeeded", i)
		}
	}
	if pub.State() != "open" {
		t.Errorf("State() = %q, want open after repeated failures", pub.State())
	}
}

func TestEmbeddedServer_Shutdown(t *testing.T) {
	srv, err := NewEmbeddedServer(EmbeddedOptions{})
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	if !srv.IsRunning() || srv.ClientURL() == "" {
		t.Fatalf("server not running at %q", srv.ClientURL())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if srv.IsRunning() {
		t.Error("server still running after Shutdown")
	}
}
