// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned by Load when no model with the name exists.
var ErrNotFound = errors.New("model not found")

// ModelMetadata describes one stored model version. Checksum is the SHA-256
// of the gob payload before compression; SizeBytes is the compressed size.
type ModelMetadata struct {
	Name               string    `json:"name"`
	Version            int       `json:"version"`
	TrainedAt          time.Time `json:"trained_at"`
	SavedAt            time.Time `json:"saved_at"`
	RatingCount        int       `json:"rating_count"`
	MovieCount         int       `json:"movie_count"`
	UserCount          int       `json:"user_count"`
	Checksum           string    `json:"checksum"`
	SizeBytes          int64     `json:"size_bytes"`
	TrainingDurationMS int64     `json:"training_duration_ms"`
}

// Store manages model persistence.
type Store struct {
	baseDir string
	mu      sync.RWMutex

	// Keep track of latest version per model
	versions map[string]int
}

// NewStore creates a new model store at the given directory.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	s := &Store{
		baseDir:  baseDir,
		versions: make(map[string]int),
	}

	if err := s.scanModels(); err != nil {
		return nil, fmt.Errorf("scan existing models: %w", err)
	}

	return s, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.baseDir
}

// scanModels scans the storage directory for existing model files.
func (s *Store) scanModels() error {
	found, err := s.listVersions()
	if err != nil {
		return err
	}
	for name, versions := range found {
		s.versions[name] = versions[0]
	}
	return nil
}

// listVersions returns every stored version per model, newest first.
func (s *Store) listVersions() (map[string][]int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}

	found := make(map[string][]int)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, version, ok := parseModelFilename(entry.Name())
		if !ok {
			continue
		}
		found[name] = append(found[name], version)
	}
	for _, vs := range found {
		sort.Sort(sort.Reverse(sort.IntSlice(vs)))
	}
	return found, nil
}

// parseModelFilename extracts the model name and version from a filename
// like "collaborative_v3.gob.gz".
func parseModelFilename(filename string) (name string, version int, ok bool) {
	base, found := strings.CutSuffix(filename, ".gob.gz")
	if !found {
		return "", 0, false
	}

	idx := strings.LastIndex(base, "_v")
	if idx < 1 {
		return "", 0, false
	}

	if _, err := fmt.Sscanf(base[idx+2:], "%d", &version); err != nil || version < 1 {
		return "", 0, false
	}
	return base[:idx], version, true
}

// storedFile is the on-disk format for model files.
type storedFile struct {
	Metadata       ModelMetadata
	CompressedData []byte
}

// NextVersion returns the version a new save of name should use.
func (s *Store) NextVersion(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[name] + 1
}

// Save stores a model with the given name and data. The file is written to a
// temporary name and renamed so a crash never leaves a truncated model.
//
//nolint:gocritic // meta passed by value is acceptable for this write operation
func (s *Store) Save(ctx context.Context, name string, version int, data interface{}, meta ModelMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if version < 1 {
		return fmt.Errorf("invalid model version %d", version)
	}

	payload, checksum, err := encodePayload(data)
	if err != nil {
		return err
	}
	meta.Name, meta.Version = name, version
	meta.Checksum = checksum
	meta.SizeBytes = int64(len(payload))
	meta.SavedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(s.modelPath(name, version), storedFile{Metadata: meta, CompressedData: payload}); err != nil {
		return err
	}
	if current, ok := s.versions[name]; !ok || version > current {
		s.versions[name] = version
	}

	return nil
}

// Load loads a model by name and version.
// If version is 0, loads the latest version.
func (s *Store) Load(ctx context.Context, name string, version int, target interface{}) (*ModelMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		var ok bool
		version, ok = s.versions[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
	}

	sf, err := s.readFile(s.modelPath(name, version))
	if err != nil {
		return nil, err
	}

	if err := decodePayload(sf.CompressedData, sf.Metadata.Checksum, target); err != nil {
		return nil, err
	}
	return &sf.Metadata, nil
}

func (s *Store) readFile(filename string) (*storedFile, error) {
	f, err := os.Open(filename) //nolint:gosec // filename is constructed from trusted name parameter
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", filepath.Base(filename), ErrNotFound)
		}
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	return &sf, nil
}

// encodePayload gob-encodes data and gzips it, returning the compressed
// bytes and the checksum of the uncompressed encoding.
func encodePayload(data interface{}) ([]byte, string, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(data); err != nil {
		return nil, "", fmt.Errorf("encode model: %w", err)
	}
	sum := sha256.Sum256(raw.Bytes())

	var out bytes.Buffer
	zw := gzip.NewWriter(&out)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		return nil, "", fmt.Errorf("compress model: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("compress model: %w", err)
	}
	return out.Bytes(), hex.EncodeToString(sum[:]), nil
}

// decodePayload reverses encodePayload into target after checking the
// checksum.
func decodePayload(payload []byte, checksum string, target interface{}) error {
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("decompress model: %w", err)
	}
	raw, err := io.ReadAll(zr)
	_ = zr.Close() //nolint:errcheck // fully read
	if err != nil {
		return fmt.Errorf("decompress model: %w", err)
	}

	sum := sha256.Sum256(raw)
	if got := hex.EncodeToString(sum[:]); got != checksum {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", checksum, got)
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return fmt.Errorf("decode model: %w", err)
	}
	return nil
}

// writeAtomic writes sf next to path and renames it into place, so readers
// never see a truncated file.
func writeAtomic(path string, sf storedFile) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp) //nolint:gosec // path is built from a trusted model name
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	err = gob.NewEncoder(f).Encode(sf)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("write model file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish model file: %w", err)
	}
	return nil
}

// GetLatestVersion returns the latest version number for a model.
func (s *Store) GetLatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version, ok := s.versions[name]
	return version, ok
}

// ListModels returns metadata for the latest version of every stored model,
// ordered by name.
func (s *Store) ListModels(ctx context.Context) ([]ModelMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	models := make([]ModelMetadata, 0, len(s.versions))
	for name, version := range s.versions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sf, err := s.readFile(s.modelPath(name, version))
		if err != nil {
			continue
		}
		models = append(models, sf.Metadata)
	}

	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}

// Delete removes a specific model version.
func (s *Store) Delete(ctx context.Context, name string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.modelPath(name, version)); err != nil {
		return fmt.Errorf("delete model: %w", err)
	}

	if s.versions[name] != version {
		return nil
	}

	found, err := s.listVersions()
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}
	if vs := found[name]; len(vs) > 0 {
		s.versions[name] = vs[0]
	} else {
		delete(s.versions, name)
	}

	return nil
}

// Prune removes old model versions, keeping only the latest N versions.
func (s *Store) Prune(ctx context.Context, name string, keepVersions int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keepVersions < 1 {
		keepVersions = 1
	}

	found, err := s.listVersions()
	if err != nil {
		return 0, fmt.Errorf("read directory: %w", err)
	}

	removed := 0
	versions := found[name]
	for i := keepVersions; i < len(versions); i++ {
		if err := os.Remove(s.modelPath(name, versions[i])); err == nil {
			removed++
		}
	}

	return removed, nil
}

// modelPath returns the file path for a model.
func (s *Store) modelPath(name string, version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d.gob.gz", name, version))
}

// CollaborativeState is the serializable state of a fitted latent-factor model.
type CollaborativeState struct {
	GlobalMean float64

	// UserIDs and MovieIDs give the row order of the factor and bias arrays.
	UserIDs  []int
	MovieIDs []int

	UserFactors [][]float64
	ItemFactors [][]float64
	UserBias    []float64
	ItemBias    []float64

	// Rated lists, per user row, the movie columns rated in training.
	Rated [][]int

	Objective  float64
	Iterations int
	FittedAt   time.Time
}

// Register gob types for serialization.
//
//nolint:gochecknoinits // gob.Register must be called in init for type registration
func init() {
	gob.Register(CollaborativeState{})
	gob.Register(ModelMetadata{})
	gob.Register(storedFile{})
}
