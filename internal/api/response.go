// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/marquee-rec/marquee/internal/database"
	"github.com/marquee-rec/marquee/internal/logging"
	"github.com/marquee-rec/marquee/internal/middleware"
	"github.com/marquee-rec/marquee/internal/models"
	"github.com/marquee-rec/marquee/internal/recommend"
	"github.com/marquee-rec/marquee/internal/validation"
)

// Error codes returned in the envelope.
const (
	CodeValidation         = validation.ErrorCode
	CodeUnknownEntity      = "UNKNOWN_ENTITY"
	CodeEmptyProfile       = "EMPTY_PROFILE"
	CodeInsufficientData   = "INSUFFICIENT_DATA"
	CodeHybridUnavailable  = "HYBRID_UNAVAILABLE"
	CodeModelNotReady      = "MODEL_NOT_READY"
	CodeTrainingInProgress = "TRAINING_IN_PROGRESS"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeTimeout            = "TIMEOUT"
	CodeDatabase           = "DATABASE_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)

// sanitizeLogValue removes control characters from strings to prevent log injection attacks.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with proper headers
func respondJSON(w http.ResponseWriter, r *http.Request, status int, response *models.APIResponse) {
	if response.Metadata.RequestID == "" {
		response.Metadata.RequestID = middleware.GetRequestID(r.Context())
	}

	data, err := json.Marshal(response)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to write JSON response")
	}
}

// respondSuccess sends data in a success envelope.
func respondSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}, meta models.Metadata) {
	respondJSON(w, r, status, models.NewSuccess(data, meta))
}

// respondError sends an error response. err is logged, never returned to
// the client.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		event := logging.Ctx(r.Context()).Warn()
		if status >= http.StatusInternalServerError {
			event = logging.Ctx(r.Context()).Error()
		}
		event.Str("code", code).
			Int("status", status).
			Str("path", sanitizeLogValue(r.URL.Path)).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API error")
	}

	respondJSON(w, r, status, models.NewError(code, message, nil))
}

// respondValidation sends a validation failure with per-field details.
func respondValidation(w http.ResponseWriter, r *http.Request, apiErr *validation.APIError) {
	respondJSON(w, r, http.StatusBadRequest, models.NewError(apiErr.Code, apiErr.Message, apiErr.Details))
}

// classifyError maps domain errors to an HTTP status and envelope code.
// Hybrid failures are checked first because they wrap the other kinds.
func classifyError(err error) (status int, code string) {
	var hybridErr *recommend.HybridUnavailableError
	switch {
	case recommend.IsUnavailable(err):
		return http.StatusServiceUnavailable, CodeModelNotReady
	case errors.As(err, &hybridErr):
		return http.StatusUnprocessableEntity, CodeHybridUnavailable
	case errors.Is(err, recommend.ErrUnknownEntity), errors.Is(err, database.ErrMovieNotFound):
		return http.StatusNotFound, CodeUnknownEntity
	case errors.Is(err, recommend.ErrEmptyProfile):
		return http.StatusUnprocessableEntity, CodeEmptyProfile
	case errors.Is(err, recommend.ErrInsufficientData):
		return http.StatusUnprocessableEntity, CodeInsufficientData
	case errors.Is(err, recommend.ErrInvalidConfiguration), errors.Is(err, database.ErrInvalidRecord):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// respondServiceError sends the envelope for an error from the engine or
// the store. Typed domain errors carry safe messages; anything else is
// reported generically.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)
	message := err.Error()
	switch status {
	case http.StatusInternalServerError:
		message = "Internal server error"
	case http.StatusGatewayTimeout:
		message = "Request timed out"
	case http.StatusServiceUnavailable:
		message = "No model has been trained yet"
	}
	respondError(w, r, status, code, message, err)
}

// elapsedMS returns the milliseconds since start.
func elapsedMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

// parsePathInt reads a positive integer URL parameter.
func parsePathInt(raw, name string) (int, *validation.APIError) {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, invalidParam(name, raw, "must be a positive integer")
	}
	return v, nil
}

// parseQueryInt reads an optional integer query parameter; absent means 0.
func parseQueryInt(r *http.Request, name string) (int, *validation.APIError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, invalidParam(name, raw, "must be an integer")
	}
	return v, nil
}

func invalidParam(name, value, reason string) *validation.APIError {
	return &validation.APIError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("Invalid %s: %s", name, reason),
		Details: map[string]interface{}{
			"field": name,
			"value": sanitizeLogValue(value),
		},
	}
}

// validateRequest validates a struct using go-playground/validator.
func validateRequest(v interface{}) *validation.APIError {
	if err := validation.ValidateStruct(v); err != nil {
		return err.ToAPIError()
	}
	return nil
}

// decodeJSONBody decodes a bounded JSON request body, rejecting unknown
// fields.
func decodeJSONBody(r *http.Request, dst interface{}) *validation.APIError {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &validation.APIError{
			Code:    CodeValidation,
			Message: "Invalid JSON body: " + sanitizeLogValue(err.Error()),
		}
	}
	return nil
}
