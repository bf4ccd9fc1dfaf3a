// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

// Package textindex builds the TF-IDF feature space used by the content-based
// model.
//
// An Index is built once per training cycle from the full catalogue and is
// read-only afterwards. Terms that appear in every movie carry the minimum
// idf weight of 1 before normalization; rare terms carry more. The vocabulary
// is capped at Options.MaxFeatures terms by corpus frequency.
//
// # Similarity
//
// Movie vectors are L2-normalized and non-negative, so Similarity lies in
// [0, 1]. Similarity of any non-zero vector with itself is 1 and similarity
// with a zero vector is 0.
package textindex
