// SPDX-License-Identifier: MIT

// Package matrix is the small dense linear-algebra kernel behind the
// recycle accelerators.
//
// What:
//
//   - Dense: row-major float64 matrix with bounds-checked At/Set and column access.
//   - LeastSquares: Householder QR for tall systems, min ‖A·x − b‖₂.
//
// Why:
//
//   - Anderson acceleration solves a tiny, often ill-conditioned least-squares
//     problem every pass; rank deficiency must be reported, not hidden.
//
// Complexity:
//
//   - LeastSquares O(m·n²) for A ∈ ℝ^{m×n}.
//
// Errors:
//
//	ErrBadShape          - non-positive dimensions.
//	ErrOutOfRange        - At/Set index outside the matrix.
//	ErrDimensionMismatch - incompatible operand shapes.
//	ErrSingular          - zero (or numerically negligible) column in QR.
//	ErrNaNInf            - non-finite input.
package matrix
