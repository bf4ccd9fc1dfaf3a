// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/marquee-rec/marquee/internal/cache"
	"github.com/marquee-rec/marquee/internal/config"
	"github.com/marquee-rec/marquee/internal/database"
	"github.com/marquee-rec/marquee/internal/recommend"
	"github.com/marquee-rec/marquee/internal/recommend/trainer"
)

// mockStore is an in-memory CatalogStore and trainer.DataSource.
type mockStore struct {
	mu      sync.Mutex
	movies  []recommend.MovieRecord
	ratings map[[2]int]recommend.RatingEntry
	pingErr error
	listErr error
}

func newMockStore() *mockStore {
	s := &mockStore{
		movies: []recommend.MovieRecord{
			{ID: 1, Title: "The Dark Knight", Genre: "Action", Director: "Christopher Nolan"},
			{ID: 2, Title: "Inception", Genre: "Sci-Fi", Director: "Christopher Nolan"},
			{ID: 3, Title: "The Godfather", Genre: "Crime", Director: "Francis Ford Coppola"},
			{ID: 4, Title: "Goodfellas", Genre: "Crime", Director: "Martin Scorsese"},
			{ID: 5, Title: "Interstellar", Genre: "Sci-Fi", Director: "Christopher Nolan"},
		},
		ratings: make(map[[2]int]recommend.RatingEntry),
	}

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	values := map[int][]float64{
		1: {5, 5, 1, 2, 5},
		2: {4, 5, 2, 1, 4},
		3: {1, 2, 5, 5, 1},
		4: {2, 1, 4, 5, 2},
		5: {5, 4, 1, 1, 0}, // user 5 has not rated movie 5
	}
	for user, vs := range values {
		for i, v := range vs {
			if v == 0 {
				continue
			}
			s.ratings[[2]int{user, i + 1}] = recommend.RatingEntry{UserID: user, MovieID: i + 1, Value: v, RatedAt: at}
		}
	}
	return s
}

func (s *mockStore) Ratings(context.Context) ([]recommend.RatingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]recommend.RatingEntry, 0, len(s.ratings))
	for _, r := range s.ratings {
		out = append(out, r)
	}
	return out, nil
}

func (s *mockStore) Movies(context.Context) ([]recommend.MovieRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]recommend.MovieRecord(nil), s.movies...), nil
}

func (s *mockStore) AddMovie(_ context.Context, m recommend.MovieRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = len(s.movies) + 1
	s.movies = append(s.movies, m)
	return m.ID, nil
}

func (s *mockStore) UpsertRating(_ context.Context, r recommend.RatingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.MovieID > len(s.movies) {
		return fmt.Errorf("movie %d: %w", r.MovieID, database.ErrMovieNotFound)
	}
	s.ratings[[2]int{r.UserID, r.MovieID}] = r
	return nil
}

func (s *mockStore) Counts(context.Context) (movies, ratings int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.movies), len(s.ratings), nil
}

func (s *mockStore) Ping(context.Context) error { return s.pingErr }

func (s *mockStore) Driver() string { return "mock" }

// mockTrainer records calls and reports a fixed training flag.
type mockTrainer struct {
	mu       sync.Mutex
	training bool
	trains   int
	stale    int
}

func (m *mockTrainer) Train(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trains++
	return nil
}

func (m *mockTrainer) Status() trainer.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return trainer.Status{State: "untrained", IsTraining: m.training}
}

func (m *mockTrainer) IsTraining() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.training
}

func (m *mockTrainer) MarkStale() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stale++
}

func (m *mockTrainer) staleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stale
}

// mockNotifier collects published ratings.
type mockNotifier struct {
	mu        sync.Mutex
	published []recommend.RatingEntry
	err       error
}

func (m *mockNotifier) NotifyRatingChanged(_ context.Context, r recommend.RatingEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, r)
	return nil
}

func testEngineConfig() *recommend.Config {
	cfg := recommend.DefaultConfig()
	cfg.Collaborative.Factors = 3
	cfg.Collaborative.Iterations = 10
	cfg.Collaborative.NumWorkers = 2
	cfg.Matrix.MinRatingsPerUser = 2
	cfg.Matrix.MinRatingsPerMovie = 2
	return cfg
}

type testEnv struct {
	handler *Handler
	router  http.Handler
	service *recommend.Service
	trainer *trainer.Trainer
	store   *mockStore
}

type envOptions struct {
	untrained bool
	trainer   ModelTrainer
	notifier  RatingNotifier
	server    *config.ServerConfig
}

// newTestEnv wires a Handler over the in-memory store and a real trainer.
// Unless untrained is set, one training run is published first.
func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	svc, err := recommend.NewService(testEngineConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	store := newMockStore()
	tr, err := trainer.New(svc, store, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("trainer.New() error = %v", err)
	}
	if !opts.untrained {
		if err := tr.Train(context.Background()); err != nil {
			t.Fatalf("Train() error = %v", err)
		}
	}

	var modelTrainer ModelTrainer = tr
	if opts.trainer != nil {
		modelTrainer = opts.trainer
	}

	h, err := NewHandler(Dependencies{
		Service:  svc,
		Trainer:  modelTrainer,
		Store:    store,
		Cache:    cache.NewResults(100, time.Minute, nil, zerolog.Nop()),
		Notifier: opts.notifier,
		Version:  "test",
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	t.Cleanup(h.Close)

	server := opts.server
	if server == nil {
		server = &config.ServerConfig{RateLimitDisabled: true}
	}

	return &testEnv{
		handler: h,
		router:  NewRouter(h, server).Setup(),
		service: svc,
		trainer: tr,
		store:   store,
	}
}

// envelope mirrors models.APIResponse with undecoded data.
type envelope struct {
	Status   string          `json:"status"`
	Data     json.RawMessage `json:"data"`
	Metadata struct {
		QueryTimeMS     int64  `json:"query_time_ms"`
		Cached          bool   `json:"cached"`
		SnapshotVersion int64  `json:"snapshot_version"`
		RequestID       string `json:"request_id"`
	} `json:"metadata"`
	Error *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func errorCode(env envelope) string {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

var errBoom = errors.New("boom")
