// SPDX-License-Identifier: MIT

package matrix_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvflow/matrix"
)

func mustDense(t *testing.T, rows [][]float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDenseFrom(rows)
	require.NoError(t, err)

	return m
}

// TestDense_Bounds verifies At/Set range checks and shape validation.
func TestDense_Bounds(t *testing.T) {
	_, err := matrix.NewDense(0, 2)
	assert.ErrorIs(t, err, matrix.ErrBadShape)

	m, err := matrix.NewDense(2, 3)
	require.NoError(t, err)
	require.NoError(t, m.Set(1, 2, 7))
	v, err := m.At(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	_, err = m.At(2, 0)
	assert.ErrorIs(t, err, matrix.ErrOutOfRange)
	assert.ErrorIs(t, m.SetCol(0, []float64{1}), matrix.ErrDimensionMismatch)

	_, err = matrix.NewDenseFrom([][]float64{{1, 2}, {3}})
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

// TestLeastSquares_LineFit recovers an exact line and flags rank deficiency.
func TestLeastSquares_LineFit(t *testing.T) {
	// y = 2 + 3t at t = 0..3
	a := mustDense(t, [][]float64{{1, 0}, {1, 1}, {1, 2}, {1, 3}})
	x, err := matrix.LeastSquares(a, []float64{2, 5, 8, 11})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2, 3}, x, 1e-12)

	// Constant data fits with zero slope.
	x, err = matrix.LeastSquares(a, []float64{1, 1, 1, 1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 0}, x, 1e-12)

	dup := mustDense(t, [][]float64{{1, 2}, {2, 4}, {3, 6}})
	_, err = matrix.LeastSquares(dup, []float64{1, 2, 3})
	assert.ErrorIs(t, err, matrix.ErrSingular)

	wide := mustDense(t, [][]float64{{1, 1, 1, 1}, {0, 1, 2, 3}})
	_, err = matrix.LeastSquares(wide, []float64{1, 2})
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)
	_, err = matrix.LeastSquares(a, []float64{1, 2})
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}
