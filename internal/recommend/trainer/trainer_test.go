// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package trainer

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/marquee-rec/marquee/internal/recommend"
	"github.com/marquee-rec/marquee/internal/recommend/storage"
)

// mockSource is an in-memory DataSource. When gate is set, Ratings blocks
// until it is closed.
type mockSource struct {
	ratings    []recommend.RatingEntry
	movies     []recommend.MovieRecord
	ratingsErr error
	moviesErr  error

	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (m *mockSource) Ratings(ctx context.Context) ([]recommend.RatingEntry, error) {
	if m.gate != nil {
		m.once.Do(func() { close(m.entered) })
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.ratings, m.ratingsErr
}

func (m *mockSource) Movies(context.Context) ([]recommend.MovieRecord, error) {
	return m.movies, m.moviesErr
}

func testMovies() []recommend.MovieRecord {
	return []recommend.MovieRecord{
		{ID: 1, Title: "The Dark Knight", Genre: "Action", Director: "Christopher Nolan"},
		{ID: 2, Title: "Inception", Genre: "Sci-Fi", Director: "Christopher Nolan"},
		{ID: 3, Title: "The Godfather", Genre: "Crime", Director: "Francis Ford Coppola"},
		{ID: 4, Title: "Goodfellas", Genre: "Crime", Director: "Martin Scorsese"},
		{ID: 5, Title: "Interstellar", Genre: "Sci-Fi", Director: "Christopher Nolan"},
	}
}

func testRatings() []recommend.RatingEntry {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	values := map[int][]float64{
		1: {5, 5, 1, 2, 5},
		2: {4, 5, 2, 1, 4},
		3: {1, 2, 5, 5, 1},
		4: {2, 1, 4, 5, 2},
		5: {5, 4, 1, 1, 0}, // 0 marks an unrated movie
	}
	var out []recommend.RatingEntry
	for user, vs := range values {
		for i, v := range vs {
			if v == 0 {
				continue
			}
			out = append(out, recommend.RatingEntry{UserID: user, MovieID: i + 1, Value: v, RatedAt: at})
		}
	}
	return out
}

func testConfig() *recommend.Config {
	cfg := recommend.DefaultConfig()
	cfg.Collaborative.Factors = 3
	cfg.Collaborative.Iterations = 10
	cfg.Collaborative.NumWorkers = 2
	cfg.Matrix.MinRatingsPerUser = 2
	cfg.Matrix.MinRatingsPerMovie = 2
	cfg.Training.RetainVersions = 2
	return cfg
}

func newTrainer(t *testing.T, cfg *recommend.Config, src DataSource, store ModelStore) (*Trainer, *recommend.Service) {
	t.Helper()
	svc, err := recommend.NewService(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	tr, err := New(svc, src, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return tr, svc
}

func TestNew_Validation(t *testing.T) {
	svc, err := recommend.NewService(testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	if _, err := New(nil, &mockSource{}, nil, zerolog.Nop()); err == nil {
		t.Error("New() without service should fail")
	}
	if _, err := New(svc, nil, nil, zerolog.Nop()); err == nil {
		t.Error("New() without data source should fail")
	}
}

func TestTrainer_Train(t *testing.T) {
	src := &mockSource{ratings: testRatings(), movies: testMovies()}
	tr, svc := newTrainer(t, testConfig(), src, nil)

	if got := tr.Status().State; got != "untrained" {
		t.Errorf("initial state = %q, want untrained", got)
	}

	if err := tr.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	snap := svc.Current()
	if snap == nil {
		t.Fatal("Train() published no snapshot")
	}
	if snap.Collaborative == nil || snap.Content == nil || snap.Popularity == nil {
		t.Fatalf("snapshot models: collab=%v content=%v popularity=%v",
			snap.Collaborative != nil, snap.Content != nil, snap.Popularity != nil)
	}
	if snap.Stats.MatrixUsers != 5 || snap.Stats.MatrixMovies != 5 || snap.Stats.Vocabulary == 0 {
		t.Errorf("Stats = %+v", snap.Stats)
	}

	st := tr.Status()
	if st.State != "trained" || st.IsTraining || st.SnapshotVersion != 1 || st.LastError != "" {
		t.Errorf("Status() = %+v", st)
	}
	if !st.Collaborative.Available || !st.Content.Available {
		t.Errorf("model status = %+v / %+v", st.Collaborative, st.Content)
	}

	p, err := snap.Collaborative.Predict(5, 5)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if p < recommend.MinRating || p > recommend.MaxRating {
		t.Errorf("Predict() = %v out of range", p)
	}

	if err := tr.Train(context.Background()); err != nil {
		t.Fatalf("second Train() error = %v", err)
	}
	if svc.Version() != 2 {
		t.Errorf("Version() after retrain = %d, want 2", svc.Version())
	}
}

func TestTrainer_PartialFailure(t *testing.T) {
	tests := []struct {
		name          string
		cfg           func() *recommend.Config
		movies        []recommend.MovieRecord
		wantCollab    bool
		wantContent   bool
		wantErrSource error
	}{
		{
			name: "collaborative below thresholds",
			cfg: func() *recommend.Config {
				c := testConfig()
				c.Matrix.MinRatingsPerUser = 50
				return c
			},
			movies:      testMovies(),
			wantContent: true,
		},
		{
			name:       "empty catalogue",
			cfg:        testConfig,
			movies:     nil,
			wantCollab: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &mockSource{ratings: testRatings(), movies: tt.movies}
			tr, svc := newTrainer(t, tt.cfg(), src, nil)

			if err := tr.Train(context.Background()); err != nil {
				t.Fatalf("Train() error = %v", err)
			}
			snap := svc.Current()
			if (snap.Collaborative != nil) != tt.wantCollab {
				t.Errorf("collaborative available = %v, want %v", snap.Collaborative != nil, tt.wantCollab)
			}
			if (snap.Content != nil) != tt.wantContent {
				t.Errorf("content available = %v, want %v", snap.Content != nil, tt.wantContent)
			}

			failed := snap.CollaborativeErr
			if tt.wantCollab {
				failed = snap.ContentErr
			}
			if !errors.Is(failed, recommend.ErrInsufficientData) {
				t.Errorf("recorded error = %v, want ErrInsufficientData", failed)
			}
		})
	}
}

func TestTrainer_BothModelsFail(t *testing.T) {
	cfg := testConfig()
	cfg.Matrix.MinRatingsPerUser = 50
	src := &mockSource{ratings: testRatings()}
	tr, svc := newTrainer(t, cfg, src, nil)

	err := tr.Train(context.Background())
	if err == nil {
		t.Fatal("Train() should fail when no personalized model builds")
	}
	if !errors.Is(err, recommend.ErrInsufficientData) {
		t.Errorf("error = %v, want to wrap ErrInsufficientData", err)
	}
	if svc.Current() != nil {
		t.Error("nothing should be published")
	}
	if st := tr.Status(); st.LastError == "" || st.State != "untrained" {
		t.Errorf("Status() = %+v", st)
	}
}

func TestTrainer_SourceErrors(t *testing.T) {
	boom := errors.New("database unavailable")
	tests := []struct {
		name string
		src  *mockSource
	}{
		{"ratings", &mockSource{ratingsErr: boom, movies: testMovies()}},
		{"movies", &mockSource{ratings: testRatings(), moviesErr: boom}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, svc := newTrainer(t, testConfig(), tt.src, nil)
			if err := tr.Train(context.Background()); !errors.Is(err, boom) {
				t.Errorf("Train() error = %v, want %v", err, boom)
			}
			if svc.Current() != nil {
				t.Error("nothing should be published")
			}
		})
	}
}

func TestTrainer_RejectsConcurrentRuns(t *testing.T) {
	src := &mockSource{
		ratings: testRatings(),
		movies:  testMovies(),
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
	tr, _ := newTrainer(t, testConfig(), src, nil)

	done := make(chan error, 1)
	go func() { done <- tr.Train(context.Background()) }()

	<-src.entered
	if !tr.IsTraining() {
		t.Error("IsTraining() = false during a run")
	}
	if err := tr.Train(context.Background()); !errors.Is(err, ErrTrainingInProgress) {
		t.Errorf("concurrent Train() error = %v, want ErrTrainingInProgress", err)
	}

	close(src.gate)
	if err := <-done; err != nil {
		t.Fatalf("first Train() error = %v", err)
	}
	if tr.IsTraining() {
		t.Error("IsTraining() = true after the run")
	}
}

func TestTrainer_MarkStale(t *testing.T) {
	src := &mockSource{ratings: testRatings(), movies: testMovies()}
	tr, _ := newTrainer(t, testConfig(), src, nil)

	tr.MarkStale()
	if got := tr.Status().State; got != "untrained" {
		t.Errorf("MarkStale before training = %q, want untrained", got)
	}

	if err := tr.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	tr.MarkStale()
	if got := tr.Status().State; got != "stale" {
		t.Errorf("State = %q, want stale", got)
	}

	if err := tr.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if got := tr.Status().State; got != "trained" {
		t.Errorf("State after retrain = %q, want trained", got)
	}
}

func TestTrainer_MarkStaleDuringRun(t *testing.T) {
	src := &mockSource{
		ratings: testRatings(),
		movies:  testMovies(),
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
	tr, _ := newTrainer(t, testConfig(), src, nil)

	done := make(chan error, 1)
	go func() { done <- tr.Train(context.Background()) }()

	<-src.entered
	tr.MarkStale()
	close(src.gate)
	if err := <-done; err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if got := tr.Status().State; got != "stale" {
		t.Errorf("State after a run that missed a change = %q, want stale", got)
	}

	src.gate = nil
	if err := tr.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if got := tr.Status().State; got != "trained" {
		t.Errorf("State after clean retrain = %q, want trained", got)
	}
}

func TestTrainer_StatusEngineConfig(t *testing.T) {
	tr, _ := newTrainer(t, testConfig(), &mockSource{}, nil)

	var engine struct {
		Collaborative struct {
			Factors int `json:"factors"`
		} `json:"collaborative"`
		Training struct {
			Interval string `json:"interval"`
		} `json:"training"`
	}
	if err := json.Unmarshal(tr.Status().Engine, &engine); err != nil {
		t.Fatalf("decode engine config: %v", err)
	}
	if engine.Collaborative.Factors != 3 || engine.Training.Interval != testConfig().Training.Interval.String() {
		t.Errorf("engine = %+v", engine)
	}
}

// The end-to-end scenario: five users and six movies with minimum support
// 2/2. User 5 has a single rating and drops out of the collaborative model.
func TestTrainer_EndToEndScenario(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := func(user, movie int, v float64) recommend.RatingEntry {
		return recommend.RatingEntry{UserID: user, MovieID: movie, Value: v, RatedAt: at}
	}
	src := &mockSource{
		ratings: []recommend.RatingEntry{
			r(1, 1, 5), r(1, 2, 4), r(1, 3, 1),
			r(2, 1, 4), r(2, 3, 2), r(2, 4, 5),
			r(3, 2, 3), r(3, 4, 4), r(3, 5, 5), r(3, 6, 2),
			r(4, 1, 2), r(4, 5, 4), r(4, 6, 3), r(4, 2, 5),
			r(5, 6, 4),
		},
		movies: append(testMovies(), recommend.MovieRecord{
			ID: 6, Title: "Casino", Genre: "Crime", Director: "Martin Scorsese",
		}),
	}
	tr, svc := newTrainer(t, testConfig(), src, nil)
	ctx := context.Background()
	if err := tr.Train(ctx); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	snap := svc.Current()
	if snap.Stats.MatrixUsers != 4 || snap.Stats.MatrixMovies != 6 {
		t.Errorf("matrix = %d users x %d movies, want 4 x 6", snap.Stats.MatrixUsers, snap.Stats.MatrixMovies)
	}
	if _, err := svc.Predict(ctx, 5, 1); !errors.Is(err, recommend.ErrUnknownEntity) {
		t.Errorf("Predict(dropped user) error = %v, want ErrUnknownEntity", err)
	}

	algos := []recommend.Algorithm{
		recommend.AlgorithmCollaborative,
		recommend.AlgorithmContent,
		recommend.AlgorithmHybrid,
		recommend.AlgorithmPopularity,
	}
	for _, user := range []int{1, 2} {
		rated := map[int]bool{}
		for _, e := range snap.RatingsFor(user) {
			rated[e.MovieID] = true
		}
		for _, algo := range algos {
			res, err := svc.Recommend(ctx, user, 3, algo)
			if err != nil {
				t.Fatalf("Recommend(%d, %s) error = %v", user, algo, err)
			}
			if len(res.Items) != 3 {
				t.Errorf("Recommend(%d, %s) returned %d items, want 3", user, algo, len(res.Items))
			}
			seen := map[int]bool{}
			for _, it := range res.Items {
				if rated[it.MovieID] {
					t.Errorf("Recommend(%d, %s) returned rated movie %d", user, algo, it.MovieID)
				}
				if seen[it.MovieID] {
					t.Errorf("Recommend(%d, %s) returned movie %d twice", user, algo, it.MovieID)
				}
				seen[it.MovieID] = true
			}
		}
	}

	if _, err := svc.Recommend(ctx, 99, 3, recommend.AlgorithmContent); !errors.Is(err, recommend.ErrEmptyProfile) {
		t.Errorf("content for unseen user error = %v, want ErrEmptyProfile", err)
	}
	var hybridErr *recommend.HybridUnavailableError
	if _, err := svc.Recommend(ctx, 99, 3, recommend.AlgorithmHybrid); !errors.As(err, &hybridErr) {
		t.Errorf("hybrid for unseen user error = %v, want HybridUnavailableError", err)
	}
}

func TestTrainer_PersistAndRestore(t *testing.T) {
	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	src := &mockSource{ratings: testRatings(), movies: testMovies()}
	ctx := context.Background()

	tr, svc := newTrainer(t, testConfig(), src, store)
	for i := 0; i < 3; i++ {
		if err := tr.Train(ctx); err != nil {
			t.Fatalf("Train() #%d error = %v", i, err)
		}
	}
	if v, ok := store.GetLatestVersion(CollaborativeModelName); !ok || v != 3 {
		t.Fatalf("latest persisted = %d, %v, want 3", v, ok)
	}
	if st := tr.Status(); st.PersistedVersion != 3 {
		t.Errorf("PersistedVersion = %d, want 3", st.PersistedVersion)
	}
	if _, err := store.Load(ctx, CollaborativeModelName, 1, &storage.CollaborativeState{}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("v1 should be pruned, Load() error = %v", err)
	}

	want, err := svc.Current().Collaborative.Predict(5, 5)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	restored, restoredSvc := newTrainer(t, testConfig(), src, store)
	if err := restored.Restore(ctx); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	snap := restoredSvc.Current()
	if snap == nil || snap.Collaborative == nil || snap.Content == nil {
		t.Fatal("Restore() should publish collaborative and content models")
	}
	got, err := snap.Collaborative.Predict(5, 5)
	if err != nil {
		t.Fatalf("restored Predict() error = %v", err)
	}
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("restored Predict() = %v, want %v", got, want)
	}
	if st := restored.Status(); st.State != "trained" || st.PersistedVersion != 3 {
		t.Errorf("Status() after restore = %+v", st)
	}
}

func TestTrainer_RestoreWithoutModel(t *testing.T) {
	src := &mockSource{ratings: testRatings(), movies: testMovies()}

	tr, _ := newTrainer(t, testConfig(), src, nil)
	if err := tr.Restore(context.Background()); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Restore() without store error = %v, want ErrNotFound", err)
	}

	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	tr, svc := newTrainer(t, testConfig(), src, store)
	if err := tr.Restore(context.Background()); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Restore() on empty store error = %v, want ErrNotFound", err)
	}
	if svc.Current() != nil {
		t.Error("failed restore should publish nothing")
	}
}
