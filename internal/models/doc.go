// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

/*
Package models defines the JSON shapes of the HTTP API.

Every endpoint answers with an APIResponse envelope:

	{
	  "status": "success" | "error",
	  "data": ...,
	  "metadata": {"timestamp": ..., "query_time_ms": ..., "cached": ...},
	  "error": {"code": ..., "message": ...}
	}

Recommendation payloads reuse the recommend package types directly
(recommend.RecommendationResult, recommend.Recommendation,
recommend.UserSimilarity); this package only adds the shapes that have no
engine counterpart, such as HealthStatus and Prediction.
*/
package models
