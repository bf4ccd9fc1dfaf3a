// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package recommend

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching. Each typed error below reports
// itself as its sentinel so callers can branch without errors.As when they
// do not need the details.
var (
	ErrInsufficientData     = errors.New("insufficient data")
	ErrUnknownEntity        = errors.New("unknown entity")
	ErrEmptyProfile         = errors.New("empty profile")
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrNoSnapshot is returned by the Service before the first model is published.
	ErrNoSnapshot = errors.New("no model snapshot published")
)

// InsufficientDataError reports that the ratings or corpus were too sparse
// for a component to build a model.
type InsufficientDataError struct {
	Component string
	Reason    string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: %s", e.Component, e.Reason)
}

// Is reports whether target is ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// EntityKind identifies what kind of entity was missing from a snapshot.
type EntityKind string

// Entity kinds.
const (
	EntityUser  EntityKind = "user"
	EntityMovie EntityKind = "movie"
)

// UnknownEntityError reports a user or movie absent from the trained snapshot.
// This is the cold-start signal.
type UnknownEntityError struct {
	Kind EntityKind
	ID   int
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("unknown %s %d", e.Kind, e.ID)
}

// Is reports whether target is ErrUnknownEntity.
func (e *UnknownEntityError) Is(target error) bool {
	return target == ErrUnknownEntity
}

// EmptyProfileError reports that a user has no ratings carrying usable
// content signal.
type EmptyProfileError struct {
	UserID int
	Reason string
}

func (e *EmptyProfileError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("empty content profile for user %d", e.UserID)
	}
	return fmt.Sprintf("empty content profile for user %d: %s", e.UserID, e.Reason)
}

// Is reports whether target is ErrEmptyProfile.
func (e *EmptyProfileError) Is(target error) bool {
	return target == ErrEmptyProfile
}

// InvalidConfigurationError reports an out-of-range option. It is never retried.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidConfiguration.
func (e *InvalidConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// HybridUnavailableError is returned by a hybrid request when neither the
// collaborative nor the content-based side could serve the user.
// Both causes stay reachable through errors.Is and errors.As.
type HybridUnavailableError struct {
	UserID        int
	Collaborative error
	Content       error
}

func (e *HybridUnavailableError) Error() string {
	return fmt.Sprintf("hybrid recommendations unavailable for user %d: collaborative: %v; content: %v",
		e.UserID, e.Collaborative, e.Content)
}

// Unwrap returns both underlying failures.
func (e *HybridUnavailableError) Unwrap() []error {
	return []error{e.Collaborative, e.Content}
}

// IsRecoverable reports whether err is a failure the Service may answer by
// trying another algorithm.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrUnknownEntity) ||
		errors.Is(err, ErrEmptyProfile) ||
		errors.Is(err, ErrInsufficientData)
}
