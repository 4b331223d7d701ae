package rank

import (
	"context"
	"io"
	"math"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/linkrank/pkg/errors"
	"github.com/matzehuels/linkrank/pkg/matrix"
)

// Default solver parameters.
const (
	DefaultMaxIterations = 1000
	DefaultDamping       = 0.85
	DefaultTolerance     = 1e-9
)

// progressEvery controls how often iterations are logged at debug level.
const progressEvery = 100

// ErrEmptyGraph is returned when the matrix has no rows.
var ErrEmptyGraph = matrix.ErrEmptyGraph

// Options configures [Solve]. Zero values select the defaults.
type Options struct {
	MaxIterations int     `json:"max_iterations,omitempty" toml:"max_iterations"`
	Damping       float64 `json:"damping,omitempty" toml:"damping"`
	Tolerance     float64 `json:"tolerance,omitempty" toml:"tolerance"`
	// Workers bounds the goroutines used per matrix-vector product.
	Workers int `json:"workers,omitempty" toml:"workers"`

	Logger *log.Logger `json:"-" toml:"-"`
}

// SetDefaults fills zero fields.
func (o *Options) SetDefaults() {
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Damping == 0 {
		o.Damping = DefaultDamping
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.Workers == 0 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// Validate checks parameter ranges. Call after SetDefaults.
func (o *Options) Validate() error {
	if err := errors.ValidateMin("max_iterations", o.MaxIterations, 1); err != nil {
		return err
	}
	if err := errors.ValidateOpenUnit("damping", o.Damping); err != nil {
		return err
	}
	if err := errors.ValidatePositive("tolerance", o.Tolerance); err != nil {
		return err
	}
	return errors.ValidateMin("workers", o.Workers, 1)
}

// Result is the outcome of [Solve].
type Result struct {
	// Ranks is the final rank vector, indexed like the matrix rows.
	Ranks []float64
	// Iterations is the number of iterations performed.
	Iterations int
	// Converged reports whether the L1 delta fell below the tolerance.
	Converged bool
	// Delta is the L1 distance between the last two iterates.
	Delta float64
	// DanglingMass is the final rank held by dangling rows.
	DanglingMass float64
}

// Solve runs damped power iteration over m.
//
// The matrix is only read. Two calls with the same matrix and options
// return identical vectors.
func Solve(ctx context.Context, m matrix.Matrix, opts Options) (*Result, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	n := m.Rows()
	if n == 0 {
		return nil, ErrEmptyGraph
	}

	d := opts.Damping
	teleport := (1 - d) / float64(n)

	rank := make([]float64, n)
	next := make([]float64, n)
	for i := range rank {
		rank[i] = 1 / float64(n)
	}

	res := &Result{}
	for it := 1; it <= opts.MaxIterations; it++ {
		if err := m.MulVecT(ctx, rank, next, opts.Workers); err != nil {
			return nil, err
		}
		var delta float64
		for j := range next {
			next[j] = d*next[j] + teleport
			delta += math.Abs(next[j] - rank[j])
		}
		rank, next = next, rank

		res.Iterations, res.Delta = it, delta
		if delta < opts.Tolerance {
			res.Converged = true
			break
		}
		if it%progressEvery == 0 {
			opts.Logger.Debug("power iteration", "iteration", it, "delta", delta)
		}
	}

	res.Ranks = rank
	for _, i := range m.Dangling() {
		res.DanglingMass += rank[i]
	}

	if res.Converged {
		opts.Logger.Info("converged", "iterations", res.Iterations, "delta", res.Delta)
	} else {
		opts.Logger.Warn("did not converge", "iterations", res.Iterations, "delta", res.Delta, "tolerance", opts.Tolerance)
	}
	return res, nil
}

// Sum returns the total of v.
func Sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

// MaxDiff returns the largest absolute elementwise difference between a and
// b, or +Inf if their lengths differ.
func MaxDiff(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var m float64
	for i := range a {
		m = math.Max(m, math.Abs(a[i]-b[i]))
	}
	return m
}
