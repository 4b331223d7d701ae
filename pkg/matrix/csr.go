package matrix

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/matzehuels/linkrank/pkg/graph"
)

// CSRMatrix stores non-zero entries in compressed sparse row form.
//
// Rows set by SetRowUniform are not materialized: uniform[i] holds the
// value shared by every column of row i and the row's stored entries are
// zeroed.
type CSRMatrix struct {
	n       int
	rowPtr  []int
	colIdx  []int
	vals    []float64
	uniform []float64

	dangling []int

	// column view, built on first MulVecT
	once    sync.Once
	colPtr  []int
	cscRow  []int
	cscSlot []int
}

// NewCSR builds a count matrix from edges. Duplicate edges are merged into
// a single entry holding the count. Endpoints must be in [0, n).
func NewCSR(n int, edges []graph.Edge) *CSRMatrix {
	sorted := slices.Clone(edges)
	sort.Slice(sorted, func(a, b int) bool {
		if sorted[a].From != sorted[b].From {
			return sorted[a].From < sorted[b].From
		}
		return sorted[a].To < sorted[b].To
	})

	c := &CSRMatrix{
		n:       n,
		rowPtr:  make([]int, n+1),
		uniform: make([]float64, n),
	}
	for k, e := range sorted {
		if k > 0 && sorted[k-1] == e {
			c.vals[len(c.vals)-1]++
			continue
		}
		c.colIdx = append(c.colIdx, e.To)
		c.vals = append(c.vals, 1)
		c.rowPtr[e.From+1]++
	}
	for i := 0; i < n; i++ {
		c.rowPtr[i+1] += c.rowPtr[i]
	}
	return c
}

func (c *CSRMatrix) Rows() int { return c.n }

func (c *CSRMatrix) At(i, j int) float64 {
	if u := c.uniform[i]; u != 0 {
		return u
	}
	lo, hi := c.rowPtr[i], c.rowPtr[i+1]
	k := lo + sort.SearchInts(c.colIdx[lo:hi], j)
	if k < hi && c.colIdx[k] == j {
		return c.vals[k]
	}
	return 0
}

func (c *CSRMatrix) RowSum(i int) float64 {
	if u := c.uniform[i]; u != 0 {
		return u * float64(c.n)
	}
	var s float64
	for _, v := range c.vals[c.rowPtr[i]:c.rowPtr[i+1]] {
		s += v
	}
	return s
}

func (c *CSRMatrix) ScaleRow(i int, f float64) {
	c.uniform[i] *= f
	for k := c.rowPtr[i]; k < c.rowPtr[i+1]; k++ {
		c.vals[k] *= f
	}
}

func (c *CSRMatrix) SetRowUniform(i int) {
	for k := c.rowPtr[i]; k < c.rowPtr[i+1]; k++ {
		c.vals[k] = 0
	}
	c.uniform[i] = 1 / float64(c.n)
	c.dangling = append(c.dangling, i)
}

func (c *CSRMatrix) Dangling() []int {
	out := make([]int, len(c.dangling))
	copy(out, c.dangling)
	return out
}

func (c *CSRMatrix) NNZ() int {
	nnz := 0
	for _, v := range c.vals {
		if v != 0 {
			nnz++
		}
	}
	return nnz
}

// transpose builds the column view. Entries within a column are in
// ascending row order and refer back to c.vals, so later row scaling stays
// visible.
func (c *CSRMatrix) transpose() {
	c.colPtr = make([]int, c.n+1)
	for _, j := range c.colIdx {
		c.colPtr[j+1]++
	}
	for j := 0; j < c.n; j++ {
		c.colPtr[j+1] += c.colPtr[j]
	}
	next := slices.Clone(c.colPtr[:c.n])
	c.cscRow = make([]int, len(c.colIdx))
	c.cscSlot = make([]int, len(c.colIdx))
	for i := 0; i < c.n; i++ {
		for k := c.rowPtr[i]; k < c.rowPtr[i+1]; k++ {
			j := c.colIdx[k]
			c.cscRow[next[j]] = i
			c.cscSlot[next[j]] = k
			next[j]++
		}
	}
}

func (c *CSRMatrix) MulVecT(ctx context.Context, x, out []float64, workers int) error {
	if err := checkVec(c, x, out); err != nil {
		return err
	}
	c.once.Do(c.transpose)

	var spread float64
	for i, u := range c.uniform {
		spread += x[i] * u
	}
	return forColumnBlocks(ctx, c.n, workers, func(lo, hi int) {
		for j := lo; j < hi; j++ {
			s := spread
			for k := c.colPtr[j]; k < c.colPtr[j+1]; k++ {
				s += x[c.cscRow[k]] * c.vals[c.cscSlot[k]]
			}
			out[j] = s
		}
	})
}
