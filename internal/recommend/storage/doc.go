// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

// Package storage persists fitted collaborative models so a restarted server
// can serve immediately instead of waiting for the first training cycle.
//
// # Storage Format
//
// Each model version is one file:
//
//	filename: {name}_v{version}.gob.gz
//
//	structure:
//	  - Metadata (ModelMetadata)
//	  - CompressedData (gzip-compressed gob-encoded model state)
//
// The SHA-256 of the uncompressed state is stored in the metadata and checked
// on Load, so a corrupted file fails loudly instead of producing wrong
// predictions. Files are written under a temporary name and renamed.
//
// # Usage Example
//
//	store, err := storage.NewStore("/data/models")
//	if err != nil {
//	    return err
//	}
//
//	version := store.NextVersion("collaborative")
//	err = store.Save(ctx, "collaborative", version, factors.State(), storage.ModelMetadata{
//	    TrainedAt:   factors.FittedAt,
//	    RatingCount: m.Len(),
//	})
//
//	var state storage.CollaborativeState
//	meta, err := store.Load(ctx, "collaborative", 0, &state) // 0 = latest
//
// # Version Management
//
//	version, ok := store.GetLatestVersion("collaborative")
//	removed, err := store.Prune(ctx, "collaborative", 3) // keep the newest 3
//
// # Thread Safety
//
// All store operations are safe for concurrent use. Saves, deletes and
// prunes are exclusive; loads run concurrently.
package storage
