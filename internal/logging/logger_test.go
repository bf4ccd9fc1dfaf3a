// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// decode parses the last JSON line written to buf.
func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &out); err != nil {
		t.Fatalf("decode log line %q: %v", lines[len(lines)-1], err)
	}
	return out
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != "info" || cfg.Format != "json" || cfg.Caller || cfg.Output == nil {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
}

func TestInit(t *testing.T) {
	defer Init(DefaultConfig())

	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})

	Debug().Str("model", "collaborative").Msg("fitting")
	got := decode(t, &buf)
	if got["level"] != "debug" || got["message"] != "fitting" || got["model"] != "collaborative" {
		t.Errorf("log line = %v", got)
	}
	if _, ok := got["time"]; !ok {
		t.Error("log line should carry a timestamp")
	}

	buf.Reset()
	Init(Config{Level: "warn", Output: &buf})
	Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("info line emitted at warn level: %s", buf.String())
	}
	Err(errors.New("boom")).Msg("failed")
	if got := decode(t, &buf); got["error"] != "boom" {
		t.Errorf("Err() line = %v", got)
	}
}

func TestInit_ServiceFields(t *testing.T) {
	defer Init(DefaultConfig())

	var buf bytes.Buffer
	Init(Config{Level: "info", Service: "marquee", Version: "1.2.3", Output: &buf})
	l := WithComponent("api")
	l.Info().Msg("ready")

	got := decode(t, &buf)
	if got["service"] != "marquee" || got["version"] != "1.2.3" || got["component"] != "api" {
		t.Errorf("log line = %v", got)
	}
}

func TestInit_Console(t *testing.T) {
	defer Init(DefaultConfig())

	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "console", Output: &buf})
	Info().Msg("console line")
	if strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), "console line") {
		t.Errorf("console output = %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
		valid bool
	}{
		{"trace", zerolog.TraceLevel, true},
		{"DEBUG", zerolog.DebugLevel, true},
		{"info", zerolog.InfoLevel, true},
		{"warning", zerolog.WarnLevel, true},
		{"error", zerolog.ErrorLevel, true},
		{"disabled", zerolog.Disabled, true},
		{"verbose", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got := ValidLevel(tt.input); got != tt.valid {
				t.Errorf("ValidLevel(%q) = %v, want %v", tt.input, got, tt.valid)
			}
		})
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	defer SetLogger(prev)

	SetLogger(NewTestLogger(&buf))
	l := WithComponent("trainer")
	l.Info().Msg("hello")

	if got := decode(t, &buf); got["component"] != "trainer" {
		t.Errorf("component = %v, want trainer", got["component"])
	}
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")

	Ctx(ctx).Info().Msg("served")
	got := decode(t, &buf)
	if got["request_id"] != "req-1" || got["correlation_id"] != "corr-1" {
		t.Errorf("log line = %v", got)
	}

	if RequestIDFromContext(context.Background()) != "" || CorrelationIDFromContext(context.Background()) != "" {
		t.Error("empty context should carry no IDs")
	}
}

func TestGenerateIDs(t *testing.T) {
	if got := GenerateCorrelationID(); len(got) != 8 {
		t.Errorf("GenerateCorrelationID() = %q, want 8 chars", got)
	}
	a, b := GenerateRequestID(), GenerateRequestID()
	if len(a) != 36 || a == b {
		t.Errorf("GenerateRequestID() = %q, %q", a, b)
	}
	ctx := ContextWithNewCorrelationID(context.Background())
	if CorrelationIDFromContext(ctx) == "" {
		t.Error("ContextWithNewCorrelationID() set no ID")
	}
}
