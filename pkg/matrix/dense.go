package matrix

import "context"

// DenseMatrix stores all N² entries in row-major order.
type DenseMatrix struct {
	n        int
	data     []float64
	dangling []int
}

// NewDense returns an N×N zero matrix.
func NewDense(n int) *DenseMatrix {
	return &DenseMatrix{n: n, data: make([]float64, n*n)}
}

// Add adds v to T[i][j].
func (d *DenseMatrix) Add(i, j int, v float64) {
	d.data[i*d.n+j] += v
}

func (d *DenseMatrix) Rows() int { return d.n }

func (d *DenseMatrix) At(i, j int) float64 { return d.data[i*d.n+j] }

func (d *DenseMatrix) row(i int) []float64 { return d.data[i*d.n : (i+1)*d.n] }

func (d *DenseMatrix) RowSum(i int) float64 {
	var s float64
	for _, v := range d.row(i) {
		s += v
	}
	return s
}

func (d *DenseMatrix) ScaleRow(i int, f float64) {
	r := d.row(i)
	for j := range r {
		r[j] *= f
	}
}

func (d *DenseMatrix) SetRowUniform(i int) {
	u := 1 / float64(d.n)
	r := d.row(i)
	for j := range r {
		r[j] = u
	}
	d.dangling = append(d.dangling, i)
}

func (d *DenseMatrix) Dangling() []int {
	out := make([]int, len(d.dangling))
	copy(out, d.dangling)
	return out
}

func (d *DenseMatrix) NNZ() int {
	c := 0
	for _, v := range d.data {
		if v != 0 {
			c++
		}
	}
	return c
}

func (d *DenseMatrix) MulVecT(ctx context.Context, x, out []float64, workers int) error {
	if err := checkVec(d, x, out); err != nil {
		return err
	}
	return forColumnBlocks(ctx, d.n, workers, func(lo, hi int) {
		acc := out[lo:hi]
		clear(acc)
		for i, xi := range x {
			if xi == 0 {
				continue
			}
			r := d.data[i*d.n+lo : i*d.n+hi]
			for k, v := range r {
				acc[k] += xi * v
			}
		}
	})
}
