// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

// Package logging provides the zerolog setup shared by every component.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Msg("server starting")
//	logging.Err(err).Msg("training failed")
//	logging.Ctx(ctx).Info().Int("user_id", id).Msg("served recommendations")
//
// Components receive a zerolog.Logger and add a "component" field:
//
//	logger := logging.WithComponent("trainer")
//
// # Request Correlation
//
// The HTTP middleware stores a request ID in the request context; background
// work such as a training run uses a short correlation ID. Ctx adds both to
// every line.
//
// # slog Bridge
//
// SlogHandler implements slog.Handler on top of zerolog so libraries that
// log through slog, such as sutureslog, end up in the same stream.
package logging
