// SPDX-License-Identifier: MIT

package matrix

import (
	"fmt"
	"math"
)

// ZeroSum is the initial accumulator for dot products and back substitution.
const ZeroSum = 0.0

// SingularTol bounds column norms and diagonal entries of R, relative to
// the largest |aᵢⱼ|.
const SingularTol = 1e-12

// Operation name constants for unified error wrapping.
const (
	opLeastSquares = "LeastSquares"
)

// matrixErrorf wraps err with an operation tag, preserving it for errors.Is.
// Call only with a non-nil err.
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// LeastSquares returns x minimizing ‖a·x − b‖₂ for a tall a (rows ≥ cols)
// via Householder QR. A numerically rank-deficient a yields ErrSingular.
func LeastSquares(a *Dense, b []float64) ([]float64, error) {
	m, n := a.r, a.c
	if m < n {
		return nil, matrixErrorf(opLeastSquares, fmt.Errorf("%w: %dx%d is wide", ErrDimensionMismatch, m, n))
	}
	if len(b) != m {
		return nil, matrixErrorf(opLeastSquares, fmt.Errorf("%w: len(b)=%d, rows=%d", ErrDimensionMismatch, len(b), m))
	}
	r := a.Clone()
	qtb := make([]float64, m)
	copy(qtb, b)
	scale := maxAbs(r.data)
	if scale == 0 {
		return nil, matrixErrorf(opLeastSquares, ErrSingular)
	}

	// 1. Reduce r to upper-triangular form, applying each reflector to qtb.
	v := make([]float64, m)
	for k := 0; k < n; k++ {
		norm := ZeroSum
		for i := k; i < m; i++ {
			norm += r.data[i*n+k] * r.data[i*n+k]
		}
		norm = math.Sqrt(norm)
		if norm <= SingularTol*scale {
			return nil, matrixErrorf(opLeastSquares, fmt.Errorf("%w: column %d", ErrSingular, k))
		}
		alpha := -math.Copysign(norm, r.data[k*n+k])
		beta := ZeroSum
		for i := k; i < m; i++ {
			v[i] = r.data[i*n+k]
			if i == k {
				v[i] -= alpha
			}
			beta += v[i] * v[i]
		}
		if beta == 0 {
			continue
		}
		tau := 2 / beta
		for j := k; j < n; j++ {
			s := ZeroSum
			for i := k; i < m; i++ {
				s += v[i] * r.data[i*n+j]
			}
			for i := k; i < m; i++ {
				r.data[i*n+j] -= tau * v[i] * s
			}
		}
		s := ZeroSum
		for i := k; i < m; i++ {
			s += v[i] * qtb[i]
		}
		for i := k; i < m; i++ {
			qtb[i] -= tau * v[i] * s
		}
	}

	// 2. Back-substitute R[0:n,0:n]·x = (Qᵀb)[0:n].
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		d := r.data[i*n+i]
		if math.Abs(d) <= SingularTol*scale {
			return nil, matrixErrorf(opLeastSquares, fmt.Errorf("%w: R[%d,%d]", ErrSingular, i, i))
		}
		s := qtb[i]
		for j := i + 1; j < n; j++ {
			s -= r.data[i*n+j] * x[j]
		}
		x[i] = s / d
	}

	return x, nil
}

func maxAbs(v []float64) float64 {
	var m float64
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}

	return m
}
