// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// scope is what a request or background job carries for its log lines.
// Each With* call copies it so parent contexts are never mutated.
type scope struct {
	requestID     string
	correlationID string
	logger        *zerolog.Logger
}

type scopeKey struct{}

func scopeFrom(ctx context.Context) scope {
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

func withScope(ctx context.Context, edit func(*scope)) context.Context {
	s := scopeFrom(ctx)
	edit(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// GenerateRequestID returns a full UUID for an HTTP request.
func GenerateRequestID() string { return uuid.NewString() }

// GenerateCorrelationID returns a short ID tying together the lines of one
// operation, such as a training run.
func GenerateCorrelationID() string { return uuid.NewString()[:8] }

// ContextWithRequestID records the HTTP request ID in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withScope(ctx, func(s *scope) { s.requestID = id })
}

// ContextWithCorrelationID records a correlation ID in ctx.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return withScope(ctx, func(s *scope) { s.correlationID = id })
}

// ContextWithNewCorrelationID records a freshly generated correlation ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// RequestIDFromContext returns the request ID, or "".
func RequestIDFromContext(ctx context.Context) string { return scopeFrom(ctx).requestID }

// CorrelationIDFromContext returns the correlation ID, or "".
func CorrelationIDFromContext(ctx context.Context) string { return scopeFrom(ctx).correlationID }

// ContextWithLogger makes l the base logger for Ctx.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return withScope(ctx, func(s *scope) { s.logger = &l })
}

// Ctx returns a logger tagged with the IDs found in ctx. Without a logger in
// ctx it derives from the global one.
//
//	logging.Ctx(ctx).Info().Int("user_id", id).Msg("Served recommendations")
func Ctx(ctx context.Context) *zerolog.Logger {
	s := scopeFrom(ctx)
	base := s.logger
	if base == nil {
		base = current()
	}

	lc := base.With()
	if s.correlationID != "" {
		lc = lc.Str("correlation_id", s.correlationID)
	}
	if s.requestID != "" {
		lc = lc.Str("request_id", s.requestID)
	}
	l := lc.Logger()
	return &l
}
