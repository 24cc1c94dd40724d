package material

import (
	"fmt"
	"math"
)

// Sum returns Σv.
func Sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}

	return s
}

// Normalize returns v/Σv. A vector with no positive total yields ErrEmpty.
func Normalize(v []float64) ([]float64, error) {
	s := Sum(v)
	if !(s > 0) {
		return nil, ErrEmpty
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / s
	}

	return out, nil
}

// Clone returns an unshared copy of v (nil stays nil).
func Clone(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)

	return out
}

// Scale returns a·v.
func Scale(a float64, v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = a * x
	}

	return out
}

// AddTo accumulates src into dst in place. Lengths must match.
func AddTo(dst, src []float64) error {
	if len(dst) != len(src) {
		return fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(dst), len(src))
	}
	for i := range dst {
		dst[i] += src[i]
	}

	return nil
}

// MaxAbsDiff returns max|aᵢ − bᵢ|; lengths must match.
func MaxAbsDiff(a, b []float64) float64 {
	var m float64
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > m {
			m = d
		}
	}

	return m
}

// checkFlows enforces non-negative, finite entries.
func checkFlows(v []float64) error {
	for i, x := range v {
		if x < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: %g at index %d", ErrNegativeFlow, x, i)
		}
	}

	return nil
}
