// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package textindex

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/marquee-rec/marquee/internal/recommend"
)

// DefaultMaxFeatures caps the vocabulary when Options.MaxFeatures is zero.
const DefaultMaxFeatures = 1000

// Options controls index construction.
type Options struct {
	// MaxFeatures keeps only the most frequent terms across the corpus.
	MaxFeatures int

	// StopWords are dropped during tokenization. Nil uses EnglishStopWords.
	StopWords map[string]struct{}
}

// Vector is a sparse TF-IDF vector. Terms are vocabulary indices in
// ascending order; Weights holds the matching values.
type Vector struct {
	Terms   []int
	Weights []float64
	norm    float64
}

// NewVector builds a sparse vector from a term->weight map, dropping zero entries.
func NewVector(m map[int]float64) Vector {
	terms := make([]int, 0, len(m))
	for t, w := range m {
		if w != 0 {
			terms = append(terms, t)
		}
	}
	sort.Ints(terms)
	v := Vector{Terms: terms, Weights: make([]float64, len(terms))}
	for i, t := range terms {
		v.Weights[i] = m[t]
	}
	v.norm = floats.Norm(v.Weights, 2)
	return v
}

// Norm returns the L2 norm.
func (v Vector) Norm() float64 {
	if v.norm == 0 && len(v.Weights) > 0 {
		return floats.Norm(v.Weights, 2)
	}
	return v.norm
}

// IsZero reports whether every weight is zero.
func (v Vector) IsZero() bool {
	return v.Norm() == 0
}

// Len returns the number of non-zero terms.
func (v Vector) Len() int { return len(v.Terms) }

// AddTo accumulates scale*v into the dense vector dst.
func (v Vector) AddTo(dst []float64, scale float64) {
	for i, t := range v.Terms {
		dst[t] += scale * v.Weights[i]
	}
}

// DotDense returns the dot product of v with a dense vector.
func (v Vector) DotDense(dense []float64) float64 {
	var dot float64
	for i, t := range v.Terms {
		dot += v.Weights[i] * dense[t]
	}
	return dot
}

// Dot returns the dot product of two sparse vectors.
func Dot(a, b Vector) float64 {
	var dot float64
	i, j := 0, 0
	for i < len(a.Terms) && j < len(b.Terms) {
		switch {
		case a.Terms[i] == b.Terms[j]:
			dot += a.Weights[i] * b.Weights[j]
			i++
			j++
		case a.Terms[i] < b.Terms[j]:
			i++
		default:
			j++
		}
	}
	return dot
}

// Similarity returns the cosine similarity of a and b clamped to [0, 1].
// A zero vector on either side yields 0.
func Similarity(a, b Vector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return math.Max(0, math.Min(1, Dot(a, b)/(na*nb)))
}

// Index is an immutable TF-IDF vector space over a movie catalogue.
// The vocabulary is frozen at Build time; rebuilding creates a new Index.
type Index struct {
	vocab   []string
	termIdx map[string]int
	idf     []float64

	ids     []int
	vectors map[int]Vector
}

// Build tokenizes title, description, genre and director of every movie and
// weights terms by tf * idf with idf = ln((1+n)/(1+df)) + 1. Each movie vector
// is L2-normalized. Movies with no indexable terms get a zero vector.
//
// Duplicate movie IDs keep the last record.
func Build(movies []recommend.MovieRecord, opts Options) (*Index, error) {
	if len(movies) == 0 {
		return nil, &recommend.InsufficientDataError{Component: "content index", Reason: "empty movie catalogue"}
	}
	if opts.MaxFeatures < 0 {
		return nil, &recommend.InvalidConfigurationError{
			Field:  "content.max_features",
			Reason: fmt.Sprintf("must be non-negative, got %d", opts.MaxFeatures),
		}
	}
	if opts.MaxFeatures == 0 {
		opts.MaxFeatures = DefaultMaxFeatures
	}
	stop := opts.StopWords
	if stop == nil {
		stop = EnglishStopWords
	}

	byID := make(map[int]recommend.MovieRecord, len(movies))
	for i := range movies {
		byID[movies[i].ID] = movies[i]
	}
	ids := make([]int, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	counts := make(map[int]map[string]int, len(ids))
	corpusFreq := make(map[string]int)
	for _, id := range ids {
		tf := make(map[string]int)
		for _, tok := range Tokenize(byID[id].Text(), stop) {
			tf[tok]++
			corpusFreq[tok]++
		}
		counts[id] = tf
	}
	if len(corpusFreq) == 0 {
		return nil, &recommend.InsufficientDataError{Component: "content index", Reason: "no indexable terms in catalogue"}
	}

	ix := &Index{ids: ids, vectors: make(map[int]Vector, len(ids))}
	ix.vocab = selectVocabulary(corpusFreq, opts.MaxFeatures)
	ix.termIdx = make(map[string]int, len(ix.vocab))
	for i, term := range ix.vocab {
		ix.termIdx[term] = i
	}

	df := make([]int, len(ix.vocab))
	for _, tf := range counts {
		for term := range tf {
			if t, ok := ix.termIdx[term]; ok {
				df[t]++
			}
		}
	}
	n := float64(len(ids))
	ix.idf = make([]float64, len(ix.vocab))
	for t := range ix.idf {
		ix.idf[t] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	for _, id := range ids {
		weights := make(map[int]float64, len(counts[id]))
		for term, c := range counts[id] {
			if t, ok := ix.termIdx[term]; ok {
				weights[t] = float64(c) * ix.idf[t]
			}
		}
		v := NewVector(weights)
		if v.norm > 0 {
			floats.Scale(1/v.norm, v.Weights)
			v.norm = 1
		}
		ix.vectors[id] = v
	}

	return ix, nil
}

// selectVocabulary keeps the limit most frequent terms, ties broken
// alphabetically, and returns them in alphabetical order.
func selectVocabulary(freq map[string]int, limit int) []string {
	terms := make([]string, 0, len(freq))
	for term := range freq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > limit {
		terms = terms[:limit]
	}
	sort.Strings(terms)
	return terms
}

// VectorOf returns the feature vector of a movie.
func (ix *Index) VectorOf(movieID int) (Vector, error) {
	v, ok := ix.vectors[movieID]
	if !ok {
		return Vector{}, &recommend.UnknownEntityError{Kind: recommend.EntityMovie, ID: movieID}
	}
	return v, nil
}

// Similarity returns the cosine similarity of two vectors from this index.
func (ix *Index) Similarity(a, b Vector) float64 {
	return Similarity(a, b)
}

// Nearest returns up to limit other movies ordered by descending similarity
// to movieID, ties broken by ascending ID. Movies with zero similarity are
// kept so that the result length depends only on the catalogue size.
func (ix *Index) Nearest(movieID, limit int) ([]recommend.ScoredCandidate, error) {
	src, err := ix.VectorOf(movieID)
	if err != nil {
		return nil, err
	}

	out := make([]recommend.ScoredCandidate, 0, len(ix.ids)-1)
	for _, id := range ix.ids {
		if id == movieID {
			continue
		}
		out = append(out, recommend.ScoredCandidate{
			MovieID:  id,
			RawScore: Similarity(src, ix.vectors[id]),
			Source:   recommend.AlgorithmContent,
		})
	}
	return recommend.TopCandidates(out, limit), nil
}

// Vocabulary returns the frozen terms in index order. The slice must not be modified.
func (ix *Index) Vocabulary() []string { return ix.vocab }

// Dim returns the vocabulary size.
func (ix *Index) Dim() int { return len(ix.vocab) }

// MovieIDs returns indexed movies in ascending order. The slice must not be modified.
func (ix *Index) MovieIDs() []int { return ix.ids }

// Len returns the number of indexed movies.
func (ix *Index) Len() int { return len(ix.ids) }
