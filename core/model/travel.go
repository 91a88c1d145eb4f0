package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// TravelTimes is a square travel-time matrix between stations. Rows and
// columns follow station order, so station id i maps to index i-1.
type TravelTimes struct {
	m *mat.Dense
}

// NewTravelTimes wraps a row-major slice of n*n values.
func NewTravelTimes(n int, data []float64) (TravelTimes, error) {
	if n <= 0 || len(data) != n*n {
		return TravelTimes{}, fmt.Errorf("%w: travel matrix needs %d values, got %d", ErrDataShape, n*n, len(data))
	}
	t := TravelTimes{m: mat.NewDense(n, n, data)}
	if err := t.Validate(); err != nil {
		return TravelTimes{}, err
	}
	return t, nil
}

// Size returns the number of stations covered by the matrix.
func (t TravelTimes) Size() int {
	if t.m == nil {
		return 0
	}
	r, _ := t.m.Dims()
	return r
}

// At returns the travel time from station i to station j (1-based ids).
func (t TravelTimes) At(i, j int) float64 {
	return t.m.At(i-1, j-1)
}

// Validate rejects non-square matrices and negative or NaN entries.
func (t TravelTimes) Validate() error {
	if t.m == nil {
		return fmt.Errorf("%w: empty travel matrix", ErrDataShape)
	}
	r, c := t.m.Dims()
	if r != c {
		return fmt.Errorf("%w: travel matrix is %dx%d, want square", ErrDataShape, r, c)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := t.m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return fmt.Errorf("%w: travel time [%d,%d]=%v", ErrDataShape, i+1, j+1, v)
			}
		}
	}
	return nil
}

// Subset returns the matrix restricted to the given 1-based source ids, in
// that order. The result is indexed by the position in ids.
func (t TravelTimes) Subset(ids []int) (TravelTimes, error) {
	n := t.Size()
	out := mat.NewDense(len(ids), len(ids), nil)
	for a, i := range ids {
		if i < 1 || i > n {
			return TravelTimes{}, fmt.Errorf("%w: station %d outside travel matrix of size %d", ErrDataShape, i, n)
		}
		for b, j := range ids {
			out.Set(a, b, t.m.At(i-1, j-1))
		}
	}
	return TravelTimes{m: out}, nil
}

// ColumnSum returns the sum of column j over all rows (1-based j).
func (t TravelTimes) ColumnSum(j int) float64 {
	return mat.Sum(t.m.ColView(j - 1))
}
