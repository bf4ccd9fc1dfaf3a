// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	io_prometheus_client "github.com/prometheus/client_model/go"

	"github.com/marquee-rec/marquee/internal/recommend"
)

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	h, ok := o.(prometheus.Histogram)
	if !ok {
		t.Fatalf("observer %T is not a histogram", o)
	}
	var m io_prometheus_client.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("write histogram: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		driver    string
		operation string
		err       error
		wantErrs  float64
	}{
		{"successful ratings load", "duckdb", "load_ratings", nil, 0},
		{"failed movie load", "postgres", "load_movies", errors.New("connection refused"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(DBQueryErrors.WithLabelValues(tt.driver, tt.operation))
			countBefore := histogramCount(t, DBQueryDuration.WithLabelValues(tt.driver, tt.operation))

			RecordDBQuery(tt.driver, tt.operation, 5*time.Millisecond, tt.err)

			if got := testutil.ToFloat64(DBQueryErrors.WithLabelValues(tt.driver, tt.operation)) - before; got != tt.wantErrs {
				t.Errorf("error delta = %v, want %v", got, tt.wantErrs)
			}
			if got := histogramCount(t, DBQueryDuration.WithLabelValues(tt.driver, tt.operation)) - countBefore; got != 1 {
				t.Errorf("histogram delta = %d, want 1", got)
			}
		})
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/movies/trending", "200"))
	RecordAPIRequest("GET", "/api/v1/movies/trending", "200", 3*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/movies/trending", "200"))
	if after-before != 1 {
		t.Errorf("request delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("after inc = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("after dec = %v, want %v", got, before)
	}
}

func TestRecordRecommendation(t *testing.T) {
	tests := []struct {
		name     string
		degraded bool
		err      error
		outcome  string
	}{
		{"ok", false, nil, "ok"},
		{"degraded", true, nil, "degraded"},
		{"error wins over degraded", true, errors.New("boom"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := RecommendRequests.WithLabelValues("hybrid", tt.outcome)
			before := testutil.ToFloat64(c)
			RecordRecommendation("hybrid", tt.degraded, time.Millisecond, tt.err)
			if got := testutil.ToFloat64(c) - before; got != 1 {
				t.Errorf("%s delta = %v, want 1", tt.outcome, got)
			}
		})
	}
}

func TestRecordTraining(t *testing.T) {
	success := TrainingRuns.WithLabelValues("success")
	failure := TrainingRuns.WithLabelValues("failure")

	sBefore, fBefore := testutil.ToFloat64(success), testutil.ToFloat64(failure)

	RecordTraining(2*time.Second, 7, nil)
	if got := testutil.ToFloat64(SnapshotVersion); got != 7 {
		t.Errorf("SnapshotVersion = %v, want 7", got)
	}
	if testutil.ToFloat64(TrainingLastSuccess) == 0 {
		t.Error("last success timestamp should be set")
	}

	RecordTraining(time.Second, 0, errors.New("both models unavailable"))
	if got := testutil.ToFloat64(SnapshotVersion); got != 7 {
		t.Errorf("failed run changed SnapshotVersion to %v", got)
	}

	if got := testutil.ToFloat64(success) - sBefore; got != 1 {
		t.Errorf("success delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(failure) - fBefore; got != 1 {
		t.Errorf("failure delta = %v, want 1", got)
	}

	rejected := TrainingRuns.WithLabelValues("rejected")
	rBefore := testutil.ToFloat64(rejected)
	RecordTrainingRejected()
	if got := testutil.ToFloat64(rejected) - rBefore; got != 1 {
		t.Errorf("rejected delta = %v, want 1", got)
	}
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{&recommend.InsufficientDataError{Component: "matrix", Reason: "empty"}, "insufficient_data"},
		{fmt.Errorf("fit: %w", &recommend.InvalidConfigurationError{Field: "factors"}), "invalid_configuration"},
		{fmt.Errorf("fit: %w", context.DeadlineExceeded), "canceled"},
		{errors.New("disk full"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := failureReason(tt.err); got != tt.want {
				t.Errorf("failureReason(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestRecordModelFailure(t *testing.T) {
	c := ModelFailures.WithLabelValues("content", "insufficient_data")
	before := testutil.ToFloat64(c)
	RecordModelFailure("content", &recommend.InsufficientDataError{Component: "content", Reason: "no terms"})
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("delta = %v, want 1", got)
	}
}

func TestRecordCacheLookup(t *testing.T) {
	hits := CacheHits.WithLabelValues("lru")
	misses := CacheMisses.WithLabelValues("lru")
	hBefore, mBefore := testutil.ToFloat64(hits), testutil.ToFloat64(misses)

	RecordCacheLookup("lru", true)
	RecordCacheLookup("lru", false)
	RecordCacheLookup("lru", false)

	if got := testutil.ToFloat64(hits) - hBefore; got != 1 {
		t.Errorf("hit delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(misses) - mBefore; got != 2 {
		t.Errorf("miss delta = %v, want 2", got)
	}
}

func TestMetricGathering(t *testing.T) {
	SetAppInfo("test")
	RecordAPIRequest("GET", "/health", "200", time.Millisecond)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Fatalf("GatherAndLint() error = %v", err)
	}
	for _, p := range problems {
		t.Logf("Metric lint problem: %s: %s", p.Metric, p.Text)
	}
}

func TestAppUptime(t *testing.T) {
	if got := testutil.ToFloat64(AppUptime); got < 0 {
		t.Errorf("app_uptime_seconds = %v, want >= 0", got)
	}
}
