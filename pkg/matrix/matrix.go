package matrix

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/linkrank/pkg/errors"
	"github.com/matzehuels/linkrank/pkg/graph"
)

// DenseThreshold is the largest node count for which [Auto] picks dense
// storage.
const DenseThreshold = 2048

// MaxDenseNodes caps an explicit Dense request. Dense storage needs n*n
// float64 cells, about 512 MiB at this size.
const MaxDenseNodes = 4 * DenseThreshold

// RowSumTolerance bounds how far a built row may sum away from 1.
const RowSumTolerance = 1e-6

var (
	// ErrEmptyGraph is returned when asked to build a matrix with no nodes.
	ErrEmptyGraph = errors.New(errors.ErrCodeEmptyGraph, "graph has no nodes")

	// ErrIndexOutOfRange is returned for an edge endpoint outside [0, N).
	ErrIndexOutOfRange = errors.New(errors.ErrCodeInvalidInput, "edge index out of range")

	// ErrDenseTooLarge is returned when dense storage is requested for more
	// than MaxDenseNodes nodes.
	ErrDenseTooLarge = errors.New(errors.ErrCodeInvalidArguments, "dense matrix too large")
)

// Matrix is a square transition matrix.
//
// Mutating methods (ScaleRow, SetRowUniform) must not run concurrently with
// any other method. Read methods and MulVecT are safe for concurrent use once
// building has finished.
type Matrix interface {
	// Rows returns N.
	Rows() int
	// At returns T[i][j].
	At(i, j int) float64
	// RowSum returns the sum of row i.
	RowSum(i int) float64
	// ScaleRow multiplies every entry of row i by f.
	ScaleRow(i int, f float64)
	// SetRowUniform replaces row i with 1/N in every column and records it
	// as dangling.
	SetRowUniform(i int)
	// Dangling returns the rows replaced by SetRowUniform in ascending order.
	Dangling() []int
	// NNZ returns the number of explicitly stored non-zero entries.
	NNZ() int
	// MulVecT writes x·T into out: out[j] = Σ_i x[i]·T[i][j].
	// Work is split across at most workers goroutines; workers <= 1 runs
	// sequentially.
	MulVecT(ctx context.Context, x, out []float64, workers int) error
}

// Kind selects the storage layout.
type Kind int

const (
	Auto Kind = iota
	Dense
	Sparse
)

func (k Kind) String() string {
	switch k {
	case Dense:
		return "dense"
	case Sparse:
		return "sparse"
	default:
		return "auto"
	}
}

// ParseKind parses "auto", "dense" or "sparse".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "dense":
		return Dense, nil
	case "sparse", "csr":
		return Sparse, nil
	}
	return Auto, errors.New(errors.ErrCodeInvalidArguments, "unknown matrix kind %q (want auto, dense or sparse)", s)
}

// Resolve maps Auto to a concrete layout for n nodes.
func (k Kind) Resolve(n int) Kind {
	if k != Auto {
		return k
	}
	if n <= DenseThreshold {
		return Dense
	}
	return Sparse
}

// Options configures [Build].
type Options struct {
	Kind   Kind
	Logger *log.Logger
}

// Build constructs the transition matrix for a graph with n nodes.
//
// Every edge adds one to its cell, so multi-edges weigh more. Each row with
// a positive sum is divided by that sum; each all-zero row becomes uniform
// and is recorded as dangling.
func Build(edges []graph.Edge, n int, opts Options) (Matrix, error) {
	if n <= 0 {
		return nil, ErrEmptyGraph
	}
	for _, e := range edges {
		if e.From < 0 || e.From >= n || e.To < 0 || e.To >= n {
			return nil, fmt.Errorf("%w: %d->%d with %d nodes", ErrIndexOutOfRange, e.From, e.To, n)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	kind := opts.Kind.Resolve(n)
	if kind == Dense && n > MaxDenseNodes {
		return nil, fmt.Errorf("%w: %d nodes exceeds %d, use sparse", ErrDenseTooLarge, n, MaxDenseNodes)
	}

	var m Matrix
	switch kind {
	case Dense:
		d := NewDense(n)
		for _, e := range edges {
			d.Add(e.From, e.To, 1)
		}
		m = d
	default:
		m = NewCSR(n, edges)
	}

	normalize(m, logger)
	return m, nil
}

// FromGraph builds the transition matrix of g.
func FromGraph(g *graph.Graph, opts Options) (Matrix, error) {
	return Build(g.Edges, g.N(), opts)
}

const progressEvery = 1000

func normalize(m Matrix, logger *log.Logger) {
	n := m.Rows()
	for i := 0; i < n; i++ {
		if s := m.RowSum(i); s > 0 {
			m.ScaleRow(i, 1/s)
		} else {
			m.SetRowUniform(i)
		}
		if n > progressEvery && (i+1)%progressEvery == 0 {
			logger.Debug("normalizing rows", "done", i+1, "total", n)
		}
	}
}

// Validate checks that every row of m sums to 1 within tol.
func Validate(m Matrix, tol float64) error {
	for i := 0; i < m.Rows(); i++ {
		if s := m.RowSum(i); math.Abs(s-1) > tol {
			return errors.New(errors.ErrCodeInternal, "row %d sums to %g", i, s)
		}
	}
	return nil
}

func checkVec(m Matrix, x, out []float64) error {
	if len(x) != m.Rows() || len(out) != m.Rows() {
		return fmt.Errorf("matrix: vector length %d/%d does not match %d rows", len(x), len(out), m.Rows())
	}
	return nil
}
