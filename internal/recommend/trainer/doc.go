// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

// Package trainer runs the training pipeline behind the recommendation
// service.
//
// One run loads ratings and movies from a DataSource, builds the rating
// matrix and the content index concurrently, fits the collaborative,
// content and popularity models, and publishes the result as a new
// recommend.Snapshot. The collaborative state is then persisted to the model
// store and old versions are pruned.
//
// A model that fails to build is recorded on the snapshot and the others are
// still published. A run fails only when neither personalized model could be
// built. Only one run executes at a time; a concurrent call returns
// ErrTrainingInProgress.
package trainer
