// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/marquee-rec/marquee/internal/metrics"
	"github.com/marquee-rec/marquee/internal/recommend"
)

type mockRemote struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setErr  error
	getCall int
}

func newMockRemote() *mockRemote {
	return &mockRemote{data: make(map[string][]byte)}
}

func (m *mockRemote) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCall++
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockRemote) Set(_ context.Context, key string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = val
	return nil
}

type payload struct {
	IDs   []int   `json:"ids"`
	Score float64 `json:"score"`
}

func TestKey(t *testing.T) {
	tests := []struct {
		epoch   string
		version int64
		kind    string
		parts   []interface{}
		want    string
	}{
		{"a1", 3, "recs", []interface{}{42, "hybrid", 10}, "marquee:a1:v3:recs:42:hybrid:10"},
		{"a1", 1, "trending", []interface{}{5}, "marquee:a1:v1:trending:5"},
		{"b2", 7, "status", nil, "marquee:b2:v7:status"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Key(tt.epoch, tt.version, tt.kind, tt.parts...); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

// A restarted process starts its snapshot versions at 1 again. Results a
// previous process left in a shared remote must not be served to it.
func TestResults_SharedRemoteAcrossProcesses(t *testing.T) {
	ctx := context.Background()
	remote := newMockRemote()

	publish := func() *recommend.Snapshot {
		svc, err := recommend.NewService(recommend.DefaultConfig(), zerolog.Nop())
		if err != nil {
			t.Fatalf("NewService() error = %v", err)
		}
		svc.Publish(recommend.NewSnapshot(nil, nil))
		return svc.Current()
	}
	before, after := publish(), publish()
	if before.Version != after.Version {
		t.Fatalf("versions = %d, %d, want equal first versions", before.Version, after.Version)
	}

	old := NewResults(10, time.Minute, remote, zerolog.Nop())
	old.Set(ctx, Key(before.Epoch, before.Version, "recs", 42, "hybrid", 3), payload{IDs: []int{7}})

	restarted := NewResults(10, time.Minute, remote, zerolog.Nop())
	var got payload
	if restarted.Get(ctx, Key(after.Epoch, after.Version, "recs", 42, "hybrid", 3), &got) {
		t.Errorf("restarted process served a previous process's result %+v", got)
	}
	if !restarted.Get(ctx, Key(before.Epoch, before.Version, "recs", 42, "hybrid", 3), &got) {
		t.Error("same generation should still share the remote entry")
	}
}

func TestResults_LocalOnly(t *testing.T) {
	r := NewResults(10, time.Minute, nil, zerolog.Nop())
	ctx := context.Background()

	var got payload
	if r.Get(ctx, "k", &got) {
		t.Fatal("Get() on empty cache should miss")
	}

	before := testutil.ToFloat64(metrics.CacheHits.WithLabelValues("lru"))
	r.Set(ctx, "k", payload{IDs: []int{3, 1}, Score: 0.5})
	if !r.Get(ctx, "k", &got) {
		t.Fatal("Get() after Set should hit")
	}
	if len(got.IDs) != 2 || got.IDs[0] != 3 || got.Score != 0.5 {
		t.Errorf("decoded %+v", got)
	}
	if after := testutil.ToFloat64(metrics.CacheHits.WithLabelValues("lru")); after != before+1 {
		t.Errorf("lru hits = %v, want %v", after, before+1)
	}
}

func TestResults_RemoteFillsLocal(t *testing.T) {
	remote := newMockRemote()
	remote.data["k"] = []byte(`{"ids":[9],"score":1}`)
	r := NewResults(10, time.Minute, remote, zerolog.Nop())
	ctx := context.Background()

	var got payload
	if !r.Get(ctx, "k", &got) || got.IDs[0] != 9 {
		t.Fatalf("remote hit not returned: %+v", got)
	}
	if !r.Get(ctx, "k", &got) {
		t.Fatal("second Get() should hit")
	}
	if remote.getCall != 1 {
		t.Errorf("remote consulted %d times, want 1 (second read served locally)", remote.getCall)
	}
}

func TestResults_SetWritesThrough(t *testing.T) {
	remote := newMockRemote()
	r := NewResults(10, time.Minute, remote, zerolog.Nop())

	r.Set(context.Background(), "k", payload{Score: 2})
	if _, ok := remote.data["k"]; !ok {
		t.Error("Set() should write to the remote tier")
	}
}

func TestResults_RemoteFailuresAreMisses(t *testing.T) {
	remote := newMockRemote()
	remote.getErr = errors.New("connection refused")
	remote.setErr = errors.New("connection refused")
	r := NewResults(10, time.Minute, remote, zerolog.Nop())
	ctx := context.Background()

	var got payload
	if r.Get(ctx, "k", &got) {
		t.Error("remote error should be a miss")
	}

	// A failed remote write still populates the local tier.
	r.Set(ctx, "k", payload{Score: 3})
	if !r.Get(ctx, "k", &got) || got.Score != 3 {
		t.Errorf("local tier should serve after remote write failure, got %+v", got)
	}
}

func TestResults_UndecodableRemoteEntry(t *testing.T) {
	remote := newMockRemote()
	remote.data["k"] = []byte("not json")
	r := NewResults(10, time.Minute, remote, zerolog.Nop())

	var got payload
	if r.Get(context.Background(), "k", &got) {
		t.Error("undecodable entry should be a miss")
	}
	if r.local.Len() != 0 {
		t.Error("undecodable entry should not be copied locally")
	}
}

func TestResults_UnencodableValue(t *testing.T) {
	r := NewResults(10, time.Minute, nil, zerolog.Nop())
	r.Set(context.Background(), "k", make(chan int))
	if r.local.Len() != 0 {
		t.Error("unencodable value should not be cached")
	}
}

// prefixRemote is a mockRemote that also supports prefix deletion.
type prefixRemote struct {
	*mockRemote
	deleted []string
	delErr  error
}

func (p *prefixRemote) DeletePrefix(_ context.Context, prefix string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, prefix)
	if p.delErr != nil {
		return 0, p.delErr
	}
	n := 0
	for k := range p.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(p.data, k)
			n++
		}
	}
	return n, nil
}

func TestResults_Evict(t *testing.T) {
	tests := []struct {
		name       string
		remote     func() Remote
		wantRemote bool
	}{
		{"local only", func() Remote { return nil }, false},
		{"remote without prefix deletion", func() Remote { return newMockRemote() }, false},
		{"remote with prefix deletion", func() Remote { return &prefixRemote{mockRemote: newMockRemote()} }, true},
		{"remote deletion failure", func() Remote {
			return &prefixRemote{mockRemote: newMockRemote(), delErr: errors.New("down")}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := tt.remote()
			r := NewResults(10, time.Minute, remote, zerolog.Nop())
			ctx := context.Background()

			r.Set(ctx, Key("e1", 1, "recs", 1), payload{Score: 1})
			r.Set(ctx, Key("e1", 1, "trending", 5), payload{Score: 2})
			r.Set(ctx, Key("e1", 2, "recs", 1), payload{Score: 3})

			if got := r.Evict(ctx, "e1", 1); got != 2 {
				t.Errorf("Evict(1) = %d, want 2", got)
			}
			if _, _, size := r.Stats(); size != 1 {
				t.Errorf("local size = %d, want 1", size)
			}

			pr, ok := remote.(*prefixRemote)
			if ok != tt.wantRemote {
				t.Fatalf("prefix remote = %v, want %v", ok, tt.wantRemote)
			}
			if !ok {
				return
			}
			if len(pr.deleted) != 1 || pr.deleted[0] != "marquee:e1:v1:" {
				t.Errorf("remote prefixes deleted = %v", pr.deleted)
			}
			if pr.delErr == nil {
				if _, found := pr.data[Key("e1", 2, "recs", 1)]; !found {
					t.Error("remote entries of the current version should survive")
				}
				if _, found := pr.data[Key("e1", 1, "recs", 1)]; found {
					t.Error("remote entries of the evicted version should be gone")
				}
			}
		})
	}
}
