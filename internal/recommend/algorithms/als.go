// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package algorithms

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/marquee-rec/marquee/internal/recommend"
	"github.com/marquee-rec/marquee/internal/recommend/matrix"
)

// ALSConfig contains configuration for the ALS algorithm.
type ALSConfig struct {
	// NumFactors is the dimension of the latent factor vectors.
	NumFactors int

	// NumIterations caps the number of alternating sweeps.
	NumIterations int

	// Regularization is the L2 penalty on factors and biases.
	Regularization float64

	// Tolerance stops fitting once a sweep improves the objective by less
	// than this fraction of its previous value. Zero runs every iteration.
	Tolerance float64

	// NumWorkers is the number of parallel workers for training.
	// If <= 0, defaults to 4.
	NumWorkers int

	// Seed drives factor initialization. Fits with equal seeds and inputs
	// produce identical factors.
	Seed int64
}

// DefaultALSConfig returns default ALS configuration.
func DefaultALSConfig() ALSConfig {
	return ALSConfig{
		NumFactors:     20,
		NumIterations:  15,
		Regularization: 0.1,
		Tolerance:      1e-6,
		NumWorkers:     4,
		Seed:           42,
	}
}

// ALSConfigFrom converts the engine configuration.
func ALSConfigFrom(cfg recommend.CollaborativeConfig) ALSConfig {
	out := DefaultALSConfig()
	out.NumFactors = cfg.Factors
	out.NumIterations = cfg.Iterations
	out.Regularization = cfg.Regularization
	out.Tolerance = cfg.Tolerance
	if cfg.NumWorkers > 0 {
		out.NumWorkers = cfg.NumWorkers
	}
	return out
}

// ALS fits a biased matrix factorization model to explicit ratings by
// alternating least squares.
//
// The objective minimized over observed cells (u, i) is:
//
//	sum (r_ui - mu - b_u - b_i - p_u'q_i)^2 + lambda * (||p_u||^2 + b_u^2 + ||q_i||^2 + b_i^2)
//
// With item parameters fixed, each user's [p_u; b_u] is the solution of a
// (k+1)x(k+1) ridge regression, and vice versa. Every sweep therefore cannot
// increase the objective.
//
// ALS tracks the lifecycle of the model it produces. The factors themselves
// are returned as an immutable *LatentFactors snapshot.
type ALS struct {
	BaseAlgorithm
	config ALSConfig
}

// NewALS creates a new ALS algorithm with the given configuration.
func NewALS(cfg ALSConfig) *ALS {
	if cfg.NumFactors <= 0 {
		cfg.NumFactors = 20
	}
	if cfg.NumIterations <= 0 {
		cfg.NumIterations = 15
	}
	if cfg.Regularization < 0 {
		cfg.Regularization = 0.1
	}
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 4
	}

	return &ALS{
		BaseAlgorithm: NewBaseAlgorithm("als"),
		config:        cfg,
	}
}

// Config returns the algorithm configuration.
func (a *ALS) Config() ALSConfig {
	return a.config
}

// Fit factorizes m. It runs without holding the model lock; only the state
// transition at the end is exclusive, so status reads never wait on a fit.
//
// A nil or empty matrix returns *recommend.InsufficientDataError. A canceled
// context aborts between sweeps and leaves the model state untouched.
//
//nolint:gocyclo // ML training algorithms are inherently complex
func (a *ALS) Fit(ctx context.Context, m *matrix.RatingMatrix) (*LatentFactors, error) {
	if m == nil || m.Len() == 0 {
		return nil, &recommend.InsufficientDataError{Component: "collaborative", Reason: "empty rating matrix"}
	}
	if ContextCancelled(ctx) {
		return nil, ctx.Err()
	}

	numUsers, numItems, k := m.NumUsers(), m.NumMovies(), a.config.NumFactors

	f := &LatentFactors{
		GlobalMean:  m.GlobalMean(),
		UserIDs:     append([]int(nil), m.Users()...),
		MovieIDs:    append([]int(nil), m.Movies()...),
		UserFactors: make([][]float64, numUsers),
		ItemFactors: make([][]float64, numItems),
		UserBias:    make([]float64, numUsers),
		ItemBias:    make([]float64, numItems),
		Rated:       make([][]int, numUsers),
	}

	// Initialize factor matrices with small seeded values
	rng := rand.New(rand.NewSource(a.config.Seed)) //nolint:gosec // deterministic initialization, not security
	for u := 0; u < numUsers; u++ {
		f.UserFactors[u] = make([]float64, k)
		for d := range f.UserFactors[u] {
			f.UserFactors[u][d] = 0.1 * rng.NormFloat64()
		}
		row := m.Row(u)
		f.Rated[u] = make([]int, len(row))
		for n, c := range row {
			f.Rated[u][n] = c.Index
		}
	}
	for i := 0; i < numItems; i++ {
		f.ItemFactors[i] = make([]float64, k)
		for d := range f.ItemFactors[i] {
			f.ItemFactors[i][d] = 0.1 * rng.NormFloat64()
		}
	}

	lambda := a.config.Regularization
	prev := f.objective(m, lambda)

	for iter := 0; iter < a.config.NumIterations; iter++ {
		if ContextCancelled(ctx) {
			return nil, ctx.Err()
		}

		// Fix items, solve users
		a.parallel(numUsers, func(u int) {
			solveRow(m.Row(u), f.ItemFactors, f.ItemBias, f.GlobalMean, lambda, f.UserFactors[u], &f.UserBias[u])
		})

		if ContextCancelled(ctx) {
			return nil, ctx.Err()
		}

		// Fix users, solve items
		a.parallel(numItems, func(i int) {
			solveRow(m.Col(i), f.UserFactors, f.UserBias, f.GlobalMean, lambda, f.ItemFactors[i], &f.ItemBias[i])
		})

		f.Iterations = iter + 1
		f.Objective = f.objective(m, lambda)

		if a.config.Tolerance > 0 && prev-f.Objective <= a.config.Tolerance*prev {
			break
		}
		prev = f.Objective
	}

	f.FittedAt = time.Now().UTC()
	f.index()

	a.acquireTrainLock()
	a.markTrained()
	a.releaseTrainLock()

	return f, nil
}

// parallel runs fn over [0, n) split into one contiguous chunk per worker.
// Each index is written by exactly one goroutine.
func (a *ALS) parallel(n int, fn func(int)) {
	var wg sync.WaitGroup
	chunkSize := (n + a.config.NumWorkers - 1) / a.config.NumWorkers

	for w := 0; w < a.config.NumWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for idx := lo; idx < hi; idx++ {
				fn(idx)
			}
		}(start, end)
	}

	wg.Wait()
}

// solveRow solves the ridge regression for one user (or item) given the
// fixed factors and biases of the other side:
//
//	[x; b] = argmin sum_c (r_c - mu - ob_c - [x; b]'[of_c; 1])^2 + lambda*||[x; b]||^2
//
// On a numerically singular system the previous values are kept.
func solveRow(cells []matrix.Cell, other [][]float64, otherBias []float64, mu, lambda float64, x []float64, bias *float64) {
	k := len(x)
	n := k + 1

	data := make([]float64, n*n)
	rhs := make([]float64, n)
	z := make([]float64, n)
	z[k] = 1

	for d := 0; d < n; d++ {
		data[d*n+d] = lambda
	}
	for _, c := range cells {
		copy(z, other[c.Index])
		y := c.Value - mu - otherBias[c.Index]
		for p := 0; p < n; p++ {
			for q := p; q < n; q++ {
				data[p*n+q] += z[p] * z[q]
			}
			rhs[p] += y * z[p]
		}
	}

	sol, ok := choleskySolve(n, data, rhs)
	if !ok {
		// Add jitter for systems that are singular at lambda = 0
		for d := 0; d < n; d++ {
			data[d*n+d] += 1e-8
		}
		if sol, ok = choleskySolve(n, data, rhs); !ok {
			return
		}
	}

	copy(x, sol[:k])
	*bias = sol[k]
}

// choleskySolve solves A*x = b where data holds the upper triangle of the
// symmetric n x n matrix A in row-major order.
//
//nolint:gocritic // A follows standard linear algebra notation
func choleskySolve(n int, data, b []float64) ([]float64, bool) {
	A := mat.NewSymDense(n, append([]float64(nil), data...))

	var chol mat.Cholesky
	if ok := chol.Factorize(A); !ok {
		return nil, false
	}

	var x mat.VecDense
	if err := chol.SolveVecTo(&x, mat.NewVecDense(n, append([]float64(nil), b...))); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, false
		}
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out, true
}

// objective evaluates the regularized squared reconstruction error.
func (f *LatentFactors) objective(m *matrix.RatingMatrix, lambda float64) float64 {
	var loss float64
	for u := 0; u < m.NumUsers(); u++ {
		for _, c := range m.Row(u) {
			e := c.Value - f.raw(u, c.Index)
			loss += e * e
		}
	}

	var penalty float64
	for u := range f.UserFactors {
		penalty += floats.Dot(f.UserFactors[u], f.UserFactors[u]) + f.UserBias[u]*f.UserBias[u]
	}
	for i := range f.ItemFactors {
		penalty += floats.Dot(f.ItemFactors[i], f.ItemFactors[i]) + f.ItemBias[i]*f.ItemBias[i]
	}

	return loss + lambda*penalty
}
