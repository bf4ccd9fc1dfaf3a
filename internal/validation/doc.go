// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

// Package validation checks API requests with go-playground/validator.
//
// Each endpoint binds its path, query or body values into one of the request
// structs in requests.go and calls ValidateStruct:
//
//	req := validation.RecommendationsRequest{UserID: id, Algorithm: algo, Limit: limit}
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
//	    return
//	}
//
// Error messages name fields by their json tag. The custom "algorithm" tag
// accepts the names recommend.ParseAlgorithm understands.
package validation
