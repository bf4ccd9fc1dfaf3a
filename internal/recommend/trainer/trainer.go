// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package trainer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/marquee-rec/marquee/internal/metrics"
	"github.com/marquee-rec/marquee/internal/recommend"
	"github.com/marquee-rec/marquee/internal/recommend/algorithms"
	"github.com/marquee-rec/marquee/internal/recommend/matrix"
	"github.com/marquee-rec/marquee/internal/recommend/storage"
	"github.com/marquee-rec/marquee/internal/recommend/textindex"
)

// CollaborativeModelName is the name persisted collaborative models are
// stored under.
const CollaborativeModelName = "collaborative"

// ErrTrainingInProgress is returned when Train is called while another run
// holds the training lock.
var ErrTrainingInProgress = errors.New("training already in progress")

// DataSource supplies the rating history and catalogue to train on.
type DataSource interface {
	Ratings(ctx context.Context) ([]recommend.RatingEntry, error)
	Movies(ctx context.Context) ([]recommend.MovieRecord, error)
}

// ModelStore persists fitted collaborative models between restarts.
type ModelStore interface {
	NextVersion(name string) int
	Save(ctx context.Context, name string, version int, data interface{}, meta storage.ModelMetadata) error
	Load(ctx context.Context, name string, version int, target interface{}) (*storage.ModelMetadata, error)
	Prune(ctx context.Context, name string, keepVersions int) (int, error)
}

// ModelStatus reports whether one model made it into the served snapshot.
type ModelStatus struct {
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// Status is a point-in-time view of the training pipeline.
type Status struct {
	State                  string                  `json:"state"`
	IsTraining             bool                    `json:"is_training"`
	SnapshotVersion        int64                   `json:"snapshot_version"`
	PersistedVersion       int                     `json:"persisted_version,omitempty"`
	LastTrainedAt          time.Time               `json:"last_trained_at"`
	LastTrainingDurationMS int64                   `json:"last_training_duration_ms"`
	LastError              string                  `json:"last_error,omitempty"`
	Collaborative          ModelStatus             `json:"collaborative"`
	Content                ModelStatus             `json:"content"`
	Stats                  recommend.SnapshotStats `json:"stats"`

	// Engine is the engine configuration the models are trained with.
	Engine json.RawMessage `json:"engine,omitempty"`
}

// Trainer runs the training pipeline and publishes each result to the
// recommendation Service.
type Trainer struct {
	config  *recommend.Config
	source  DataSource
	service *recommend.Service
	store   ModelStore // optional
	logger  zerolog.Logger

	als *algorithms.ALS

	trainMu sync.Mutex

	statusMu sync.RWMutex
	status   Status
	// staleDuringRun records a MarkStale that arrived while a run was in
	// progress; that run may have loaded its data before the change.
	staleDuringRun bool
}

// New creates a Trainer. store may be nil to disable persistence.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(service *recommend.Service, source DataSource, store ModelStore, logger zerolog.Logger) (*Trainer, error) {
	if service == nil {
		return nil, fmt.Errorf("recommendation service is required")
	}
	if source == nil {
		return nil, fmt.Errorf("data source is required")
	}

	cfg := service.Config()
	engine, err := cfg.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode engine config: %w", err)
	}
	return &Trainer{
		config:  cfg,
		source:  source,
		service: service,
		store:   store,
		logger:  logger.With().Str("component", "trainer").Logger(),
		als:     algorithms.NewALS(algorithms.ALSConfigFrom(cfg.Collaborative)),
		status:  Status{State: algorithms.StateUntrained.String(), Engine: engine},
	}, nil
}

// built collects the outcome of one pipeline run.
type built struct {
	ratings []recommend.RatingEntry
	movies  []recommend.MovieRecord

	matrix     *matrix.RatingMatrix
	factors    *algorithms.LatentFactors
	collabErr  error
	index      *textindex.Index
	content    *algorithms.ContentBased
	contentErr error
	popularity *algorithms.Popularity
}

// Train loads the data, fits every model and publishes a new snapshot.
// A model that fails is recorded on the snapshot; Train itself fails only
// when neither the collaborative nor the content model could be built, in
// which case nothing is published.
func (t *Trainer) Train(ctx context.Context) error {
	if !t.trainMu.TryLock() {
		metrics.RecordTrainingRejected()
		return ErrTrainingInProgress
	}
	defer t.trainMu.Unlock()

	start := time.Now()
	t.setTraining(true)
	t.logger.Info().Msg("starting model training")

	trainCtx := ctx
	if t.config.Training.Timeout > 0 {
		var cancel context.CancelFunc
		trainCtx, cancel = context.WithTimeout(ctx, t.config.Training.Timeout)
		defer cancel()
	}

	version, err := t.run(trainCtx)
	duration := time.Since(start)
	metrics.RecordTraining(duration, version, err)
	t.finishTraining(duration, err)

	if err != nil {
		t.logger.Error().Err(err).Dur("duration", duration).Msg("model training failed")
		return err
	}

	t.logger.Info().
		Int64("version", version).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("model training complete")
	return nil
}

func (t *Trainer) run(ctx context.Context) (int64, error) {
	b, err := t.load(ctx)
	if err != nil {
		return 0, err
	}

	t.build(ctx, b)
	if b.factors == nil && b.content == nil {
		return 0, fmt.Errorf("no personalized model could be trained: %w", errors.Join(b.collabErr, b.contentErr))
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	snap := t.assemble(b)
	version := t.service.Publish(snap)
	t.recordSnapshot(snap, b)

	if b.factors != nil {
		t.persist(ctx, b)
	}
	return version, nil
}

// load fetches ratings and movies concurrently.
func (t *Trainer) load(ctx context.Context) (*built, error) {
	b := &built{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ratings, err := t.source.Ratings(gctx)
		if err != nil {
			return fmt.Errorf("load ratings: %w", err)
		}
		b.ratings = ratings
		return nil
	})
	g.Go(func() error {
		movies, err := t.source.Movies(gctx)
		if err != nil {
			return fmt.Errorf("load movies: %w", err)
		}
		b.movies = movies
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t.logger.Info().
		Int("ratings", len(b.ratings)).
		Int("movies", len(b.movies)).
		Msg("loaded training data")
	return b, nil
}

// build fits the three models concurrently. Failures are recorded on b and
// never cancel the sibling builds.
func (t *Trainer) build(ctx context.Context, b *built) {
	var g errgroup.Group

	g.Go(func() error {
		m, err := matrix.Build(b.ratings, t.config.Matrix.MinRatingsPerUser, t.config.Matrix.MinRatingsPerMovie)
		if err != nil {
			b.collabErr = fmt.Errorf("build rating matrix: %w", err)
			return nil
		}
		b.matrix = m
		f, err := t.als.Fit(ctx, m)
		if err != nil {
			b.collabErr = fmt.Errorf("fit collaborative model: %w", err)
			return nil
		}
		b.factors = f
		return nil
	})

	g.Go(func() error {
		ix, err := textindex.Build(b.movies, textindex.Options{MaxFeatures: t.config.Content.MaxFeatures})
		if err != nil {
			b.contentErr = fmt.Errorf("build content index: %w", err)
			return nil
		}
		b.index = ix
		b.content = algorithms.NewContentBased(ix, algorithms.ContentBasedConfig{Weighting: t.config.Content.Weighting})
		return nil
	})

	g.Go(func() error {
		p := algorithms.NewPopularity(algorithms.PopularityConfig{})
		if err := p.Train(ctx, b.ratings); err != nil {
			t.logger.Warn().Err(err).Msg("popularity model failed")
			return nil
		}
		b.popularity = p
		return nil
	})

	_ = g.Wait() //nolint:errcheck // goroutines record their own errors

	if b.collabErr != nil {
		metrics.RecordModelFailure("collaborative", b.collabErr)
		t.logger.Warn().Err(b.collabErr).Msg("collaborative model unavailable")
	}
	if b.contentErr != nil {
		metrics.RecordModelFailure("content", b.contentErr)
		t.logger.Warn().Err(b.contentErr).Msg("content model unavailable")
	}
}

func (t *Trainer) assemble(b *built) *recommend.Snapshot {
	snap := recommend.NewSnapshot(b.ratings, b.movies)
	snap.CollaborativeErr = b.collabErr
	snap.ContentErr = b.contentErr

	// Nil models must stay untyped nil behind the interfaces.
	if b.factors != nil {
		snap.Collaborative = b.factors
		snap.Stats.MatrixUsers = b.matrix.NumUsers()
		snap.Stats.MatrixMovies = b.matrix.NumMovies()
		snap.Stats.MatrixCells = b.matrix.Len()
		snap.Stats.Objective = b.factors.Objective
		snap.Stats.Iterations = b.factors.Iterations
	}
	if b.content != nil {
		snap.Content = b.content
		snap.Stats.Vocabulary = b.index.Dim()
	}
	if b.popularity != nil {
		snap.Popularity = b.popularity
	}
	return snap
}

// persist saves the collaborative state and prunes old versions. Failures
// are logged; the published snapshot keeps serving.
func (t *Trainer) persist(ctx context.Context, b *built) {
	if t.store == nil {
		return
	}

	version := t.store.NextVersion(CollaborativeModelName)
	meta := storage.ModelMetadata{
		TrainedAt:   b.factors.FittedAt,
		RatingCount: b.matrix.Len(),
		UserCount:   b.matrix.NumUsers(),
		MovieCount:  b.matrix.NumMovies(),
	}
	if err := t.store.Save(ctx, CollaborativeModelName, version, b.factors.State(), meta); err != nil {
		t.logger.Warn().Err(err).Msg("failed to persist collaborative model")
		return
	}

	removed, err := t.store.Prune(ctx, CollaborativeModelName, t.config.Training.RetainVersions)
	if err != nil {
		t.logger.Warn().Err(err).Msg("failed to prune old models")
	}

	t.statusMu.Lock()
	t.status.PersistedVersion = version
	t.statusMu.Unlock()

	t.logger.Debug().
		Int("version", version).
		Int("pruned", removed).
		Msg("persisted collaborative model")
}

// Restore publishes a snapshot built from the newest persisted collaborative
// model, so a restarted server can answer before its first training run.
// The content and popularity models are rebuilt from the data source.
func (t *Trainer) Restore(ctx context.Context) error {
	if t.store == nil {
		return storage.ErrNotFound
	}
	if !t.trainMu.TryLock() {
		return ErrTrainingInProgress
	}
	defer t.trainMu.Unlock()

	var state storage.CollaborativeState
	meta, err := t.store.Load(ctx, CollaborativeModelName, 0, &state)
	if err != nil {
		return fmt.Errorf("load persisted model: %w", err)
	}
	factors, err := algorithms.RestoreFactors(state)
	if err != nil {
		return fmt.Errorf("restore persisted model: %w", err)
	}

	b, err := t.load(ctx)
	if err != nil {
		return err
	}
	b.factors = factors

	ix, err := textindex.Build(b.movies, textindex.Options{MaxFeatures: t.config.Content.MaxFeatures})
	if err != nil {
		b.contentErr = fmt.Errorf("build content index: %w", err)
	} else {
		b.index = ix
		b.content = algorithms.NewContentBased(ix, algorithms.ContentBasedConfig{Weighting: t.config.Content.Weighting})
	}
	p := algorithms.NewPopularity(algorithms.PopularityConfig{})
	if err := p.Train(ctx, b.ratings); err == nil {
		b.popularity = p
	}

	snap := recommend.NewSnapshot(b.ratings, b.movies)
	snap.Collaborative = factors
	snap.Stats.MatrixUsers = factors.NumUsers()
	snap.Stats.MatrixMovies = factors.NumMovies()
	snap.Stats.MatrixCells = meta.RatingCount
	snap.Stats.Objective = factors.Objective
	snap.Stats.Iterations = factors.Iterations
	snap.TrainedAt = factors.FittedAt
	snap.ContentErr = b.contentErr
	if b.content != nil {
		snap.Content = b.content
		snap.Stats.Vocabulary = b.index.Dim()
	}
	if b.popularity != nil {
		snap.Popularity = b.popularity
	}

	version := t.service.Publish(snap)
	metrics.SnapshotVersion.Set(float64(version))
	t.recordSnapshot(snap, b)

	t.statusMu.Lock()
	t.status.State = algorithms.StateTrained.String()
	t.status.PersistedVersion = meta.Version
	t.status.LastTrainedAt = factors.FittedAt
	t.statusMu.Unlock()

	t.logger.Info().
		Int("persisted_version", meta.Version).
		Int64("snapshot_version", version).
		Msg("restored collaborative model from disk")
	return nil
}

// MarkStale flags the served models for retraining. They keep serving until
// the next successful run replaces them. A call during a run keeps the
// models stale after that run finishes.
func (t *Trainer) MarkStale() {
	t.als.MarkStale()

	t.statusMu.Lock()
	defer t.statusMu.Unlock()
	if t.status.IsTraining {
		t.staleDuringRun = true
	}
	if t.status.State == algorithms.StateTrained.String() {
		t.status.State = algorithms.StateStale.String()
	}
}

// Status returns a copy of the current training status.
func (t *Trainer) Status() Status {
	t.statusMu.RLock()
	defer t.statusMu.RUnlock()
	return t.status
}

// IsTraining reports whether a run is in progress.
func (t *Trainer) IsTraining() bool {
	return t.Status().IsTraining
}

func (t *Trainer) setTraining(on bool) {
	t.statusMu.Lock()
	defer t.statusMu.Unlock()
	t.status.IsTraining = on
	if on {
		t.status.LastError = ""
		t.staleDuringRun = false
	}
}

func (t *Trainer) finishTraining(duration time.Duration, err error) {
	t.statusMu.Lock()
	defer t.statusMu.Unlock()

	t.status.IsTraining = false
	t.status.LastTrainingDurationMS = duration.Milliseconds()
	if err != nil {
		t.status.LastError = err.Error()
		return
	}
	t.status.LastTrainedAt = time.Now().UTC()
	if t.staleDuringRun {
		t.status.State = algorithms.StateStale.String()
		t.als.MarkStale()
		return
	}
	t.status.State = algorithms.StateTrained.String()
}

func (t *Trainer) recordSnapshot(snap *recommend.Snapshot, b *built) {
	t.statusMu.Lock()
	defer t.statusMu.Unlock()

	t.status.SnapshotVersion = snap.Version
	t.status.Stats = snap.Stats
	t.status.Collaborative = modelStatus(snap.Collaborative != nil, b.collabErr)
	t.status.Content = modelStatus(snap.Content != nil, b.contentErr)
	if snap.Collaborative != nil {
		metrics.ALSObjective.Set(snap.Stats.Objective)
	}
}

func modelStatus(available bool, err error) ModelStatus {
	s := ModelStatus{Available: available}
	if err != nil {
		s.Error = err.Error()
	}
	return s
}
