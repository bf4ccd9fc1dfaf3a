// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

// Package eventprocessor connects the rating write path to retraining over
// NATS.
//
// A Publisher announces every stored rating as a RatingChanged event on the
// configured subject. A Subscriber receives those events, marks the current
// model stale and triggers a retrain. Bursts of ratings are coalesced: at
// most one retrain is pending at a time and retrains are spaced at least the
// debounce interval apart.
//
// Deployments without a NATS cluster can run an EmbeddedServer in-process.
//
// # Subjects
//
//	ratings.changed   RatingChanged, JSON encoded
//
// Each message carries a Nats-Msg-Id header set to the event ID so a
// JetStream stream bound to the subject deduplicates redeliveries.
package eventprocessor
