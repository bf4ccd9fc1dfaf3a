// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package models

import (
	"time"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIResponse is the envelope every HTTP endpoint returns.
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"user_id": 1, "requested": "hybrid", "items": [...]},
//	  "metadata": {
//	    "timestamp": "2026-05-01T12:00:00Z",
//	    "query_time_ms": 4,
//	    "cached": false
//	  }
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "data": null,
//	  "error": {
//	    "code": "UNKNOWN_ENTITY",
//	    "message": "unknown user 404"
//	  },
//	  "metadata": {"timestamp": "2026-05-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata describes how a response was produced.
//
// Cached responses report Cached true; QueryTimeMS then covers only the
// cache lookup.
type Metadata struct {
	Timestamp       time.Time `json:"timestamp"`
	QueryTimeMS     int64     `json:"query_time_ms"`
	Cached          bool      `json:"cached"`
	SnapshotVersion int64     `json:"snapshot_version,omitempty"`
	RequestID       string    `json:"request_id,omitempty"`
}

// APIError is the machine-readable error body.
//
// Codes in use:
//   - VALIDATION_ERROR: malformed or out-of-range input
//   - UNKNOWN_ENTITY: user or movie not in the model
//   - EMPTY_PROFILE: the user's ratings carry no usable signal
//   - INSUFFICIENT_DATA: too few ratings or movies to build a model
//   - HYBRID_UNAVAILABLE: neither hybrid source could serve the user
//   - MODEL_NOT_READY: no model has been published yet
//   - TRAINING_IN_PROGRESS: a retrain is already running
//   - RATE_LIMIT_EXCEEDED: too many requests
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NewSuccess wraps data in a success envelope stamped with the current time.
func NewSuccess(data interface{}, meta Metadata) *APIResponse {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}
	return &APIResponse{Status: StatusSuccess, Data: data, Metadata: meta}
}

// NewError builds an error envelope.
func NewError(code, message string, details map[string]interface{}) *APIResponse {
	return &APIResponse{
		Status:   StatusError,
		Metadata: Metadata{Timestamp: time.Now().UTC()},
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}
