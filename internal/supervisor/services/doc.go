// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

// Package services adapts Marquee's long-running components to
// suture.Service so the supervisor tree can run and restart them.
package services
