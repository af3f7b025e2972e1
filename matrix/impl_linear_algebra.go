// SPDX-License-Identifier: MIT
// Package matrix provides the dense linear-algebra kernels used by the solvers:
// element-wise addition/subtraction, matrix products, transpose, scaling,
// matrix-vector products, the Gram product JᵀJ, LU with partial pivoting,
// inversion and the orthogonality test. All functions perform strict
// fail-fast validation and return clear errors on dimension mismatches.
//
// Notes:
//   - Every kernel allocates a fresh result; operands are never mutated.
//   - Loop orders are fixed so identical inputs give bit-identical outputs.

package matrix

import (
	"fmt"
	"math"
)

// ZeroSum is the initial sum value for forward/backward substitution and similar.
const ZeroSum = 0.0

// ZeroPivot is the sentinel for detecting a zero pivot in LU/Inverse routines.
const ZeroPivot = 0.0

// DefaultOrthogonalityTol bounds max|Q·Qᵀ − I| accepted by ValidateOrthogonal.
const DefaultOrthogonalityTol = 1e-10

// Operation name constants for unified error wrapping and reducing magic strings.
const (
	opAdd         = "Add"
	opSub         = "Sub"
	opMul         = "Mul"
	opTranspose   = "Transpose"
	opScale       = "Scale"
	opMatVec      = "MatVec"
	opMatTVec     = "MatTVec"
	opGram        = "Gram"
	opAddDiagonal = "AddDiagonal"
	opInverse     = "Inverse"
	opLU          = "LU"
	opSolve       = "Solve"
	opOrthogonal  = "ValidateOrthogonal"
)

// matrixErrorf wraps err with an operation tag, preserving the original error via %w.
// Use only when err != nil to avoid creating a non-nil wrapper around a nil cause.
//
// Complexity:
//   - Time O(1), Space O(1).
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// addSub computes elementwise out = a + sign*b for sign ∈ {+1, -1}.
// Internal helper for Add/Sub to share validation, allocation and the flat loop.
//
// Complexity:
//   - Time O(r*c), Space O(r*c) for the new result.
func addSub(a, b *Dense, sign float64, opTag string) (*Dense, error) {
	if err := ValidateBinarySameShape(a, b); err != nil {
		return nil, matrixErrorf(opTag, err)
	}
	res, err := NewDense(a.r, a.c)
	if err != nil {
		return nil, matrixErrorf(opTag, err)
	}
	for i := range a.data { // single flat walk 0..r*c-1
		res.data[i] = a.data[i] + sign*b.data[i]
	}

	return res, nil
}

// Add returns a + b element-wise.
// Errors: ErrNilMatrix, ErrDimensionMismatch.
func Add(a, b *Dense) (*Dense, error) { return addSub(a, b, +1, opAdd) }

// Sub returns a − b element-wise.
// Errors: ErrNilMatrix, ErrDimensionMismatch.
func Sub(a, b *Dense) (*Dense, error) { return addSub(a, b, -1, opSub) }

// Mul computes the matrix product a × b.
//
// Implementation:
//   - Stage 1: ValidateMulCompatible(a, b). Allocate Dense(a.Rows, b.Cols).
//   - Stage 2: i→k→j loop over flat buffers; zero entries of a are skipped.
//
// Errors:
//   - ErrNilMatrix (nil input), ErrDimensionMismatch (inner mismatch).
//
// Complexity:
//   - Time O(r*n*c), Space O(r*c).
func Mul(a, b *Dense) (*Dense, error) {
	if err := ValidateMulCompatible(a, b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	aRows, aCols, bCols := a.r, a.c, b.c
	res, err := NewDense(aRows, bCols)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	var (
		i, j, k                            int
		av                                 float64
		rowOffsetA, rowOffsetB, rowOffsetR int
	)
	for i = 0; i < aRows; i++ {
		rowOffsetA = i * aCols
		rowOffsetR = i * bCols
		for k = 0; k < aCols; k++ {
			av = a.data[rowOffsetA+k]
			if av == 0 {
				continue // skip zero for performance
			}
			rowOffsetB = k * bCols
			for j = 0; j < bCols; j++ {
				res.data[rowOffsetR+j] += av * b.data[rowOffsetB+j]
			}
		}
	}

	return res, nil
}

// Transpose returns a new matrix with rows and columns swapped (mᵀ).
// Complexity: O(r*c).
func Transpose(m *Dense) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	res, err := NewDense(m.c, m.r)
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	var i, j int
	for i = 0; i < m.r; i++ {
		for j = 0; j < m.c; j++ {
			res.data[j*m.r+i] = m.data[i*m.c+j]
		}
	}

	return res, nil
}

// Scale returns alpha*m.
// Complexity: O(r*c).
func Scale(m *Dense, alpha float64) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opScale, err)
	}
	res := m.Clone()
	for i := range res.data {
		res.data[i] *= alpha
	}

	return res, nil
}

// MatVec computes y = m·x.
// Errors: ErrNilMatrix, ErrDimensionMismatch (len(x) != Cols).
// Complexity: O(r*c).
func MatVec(m *Dense, x *Vector) (*Vector, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	if x == nil {
		return nil, matrixErrorf(opMatVec, ErrNilMatrix)
	}
	if err := ValidateVecLen(x.data, m.c); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	y := &Vector{data: make([]float64, m.r)}
	var (
		i, j int
		sum  float64
		base int
	)
	for i = 0; i < m.r; i++ {
		sum = ZeroSum
		base = i * m.c
		for j = 0; j < m.c; j++ {
			sum += m.data[base+j] * x.data[j]
		}
		y.data[i] = sum
	}

	return y, nil
}

// MatTVec computes y = mᵀ·x without materializing mᵀ.
// For a Jacobian J and residual R this is the gradient JᵀR.
// Errors: ErrNilMatrix, ErrDimensionMismatch (len(x) != Rows).
// Complexity: O(r*c).
func MatTVec(m *Dense, x *Vector) (*Vector, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opMatTVec, err)
	}
	if x == nil {
		return nil, matrixErrorf(opMatTVec, ErrNilMatrix)
	}
	if err := ValidateVecLen(x.data, m.r); err != nil {
		return nil, matrixErrorf(opMatTVec, err)
	}
	y := &Vector{data: make([]float64, m.c)}
	var (
		i, j int
		xi   float64
		base int
	)
	for i = 0; i < m.r; i++ {
		xi = x.data[i]
		if xi == 0 {
			continue
		}
		base = i * m.c
		for j = 0; j < m.c; j++ {
			y.data[j] += m.data[base+j] * xi
		}
	}

	return y, nil
}

// Gram returns mᵀ·m (c×c, symmetric). Only the upper triangle is accumulated;
// the lower triangle is mirrored so the result is exactly symmetric.
// Complexity: O(r*c^2).
func Gram(m *Dense) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opGram, err)
	}
	n := m.c
	res, err := NewDense(n, n)
	if err != nil {
		return nil, matrixErrorf(opGram, err)
	}
	var (
		i, j, k int
		sum     float64
	)
	for i = 0; i < n; i++ {
		for j = i; j < n; j++ {
			sum = ZeroSum
			for k = 0; k < m.r; k++ {
				sum += m.data[k*n+i] * m.data[k*n+j]
			}
			res.data[i*n+j] = sum
			res.data[j*n+i] = sum
		}
	}

	return res, nil
}

// AddDiagonal returns m + alpha·I for a square m.
// Complexity: O(n^2) copy + O(n) diagonal writes.
func AddDiagonal(m *Dense, alpha float64) (*Dense, error) {
	if err := ValidateSquareNonNil(m); err != nil {
		return nil, matrixErrorf(opAddDiagonal, err)
	}
	res := m.Clone()
	for i := 0; i < m.r; i++ {
		res.data[i*m.c+i] += alpha
	}

	return res, nil
}

// LUFactors holds P·A = L·U with unit-diagonal L packed below the diagonal of LU
// and U on and above it. Perm[i] is the original row placed at position i.
type LUFactors struct {
	LU   *Dense
	Perm []int
	Sign float64 // determinant sign of P (+1/−1)
}

// LU computes the Doolittle factorization with partial (row) pivoting.
//
// Implementation:
//   - Stage 1: Validate m (not nil, square); copy into a working buffer.
//   - Stage 2: For each column k pick the row with max |a[i,k]| (i ≥ k), swap,
//     then eliminate below the pivot storing multipliers in place.
//
// Behavior highlights:
//   - Deterministic: ties pick the lowest row index.
//   - Damped normal matrices (JᵀJ + vI) are symmetric positive definite, but
//     v may reach 0; pivoting keeps the undamped Gauss-Newton step usable.
//
// Errors:
//   - ErrNilMatrix, ErrNonSquare, ErrSingular (pivot column entirely zero).
//
// Complexity:
//   - Time O(n^3), Space O(n^2).
func LU(m *Dense) (*LUFactors, error) {
	if err := ValidateSquareNonNil(m); err != nil {
		return nil, matrixErrorf(opLU, err)
	}
	n := m.r
	a := m.Clone()
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	sign := 1.0
	var (
		i, j, k int
		p       int
		maxAbs  float64
		f       float64
	)
	for k = 0; k < n; k++ {
		// find pivot
		p = k
		maxAbs = math.Abs(a.data[k*n+k])
		for i = k + 1; i < n; i++ {
			if v := math.Abs(a.data[i*n+k]); v > maxAbs {
				maxAbs = v
				p = i
			}
		}
		if maxAbs == ZeroPivot || math.IsNaN(maxAbs) {
			return nil, matrixErrorf(opLU, ErrSingular)
		}
		// swap rows if needed
		if p != k {
			for j = 0; j < n; j++ {
				a.data[k*n+j], a.data[p*n+j] = a.data[p*n+j], a.data[k*n+j]
			}
			perm[k], perm[p] = perm[p], perm[k]
			sign = -sign
		}
		// eliminate below
		for i = k + 1; i < n; i++ {
			f = a.data[i*n+k] / a.data[k*n+k]
			a.data[i*n+k] = f
			if f == 0 {
				continue
			}
			for j = k + 1; j < n; j++ {
				a.data[i*n+j] -= f * a.data[k*n+j]
			}
		}
	}

	return &LUFactors{LU: a, Perm: perm, Sign: sign}, nil
}

// SolveVec solves A·x = b using the factors.
// Errors: ErrDimensionMismatch when len(b) != n.
// Complexity: O(n^2).
func (f *LUFactors) SolveVec(b []float64) ([]float64, error) {
	n := f.LU.r
	if err := ValidateVecLen(b, n); err != nil {
		return nil, matrixErrorf(opSolve, err)
	}
	var (
		i, k int
		sum  float64
		d    = f.LU.data
		y    = make([]float64, n)
		x    = make([]float64, n)
	)
	// Forward substitution: L*y = P*b
	for i = 0; i < n; i++ {
		sum = b[f.Perm[i]]
		for k = 0; k < i; k++ {
			sum -= d[i*n+k] * y[k]
		}
		y[i] = sum
	}
	// Backward substitution: U*x = y
	for i = n - 1; i >= 0; i-- {
		sum = y[i]
		for k = i + 1; k < n; k++ {
			sum -= d[i*n+k] * x[k]
		}
		x[i] = sum / d[i*n+i]
	}

	return x, nil
}

// Determinant returns det(A) from the factors.
func (f *LUFactors) Determinant() float64 {
	n := f.LU.r
	det := f.Sign
	for i := 0; i < n; i++ {
		det *= f.LU.data[i*n+i]
	}

	return det
}

// Inverse computes A^{-1} via LU with partial pivoting, solving one unit
// right-hand side per column.
//
// Implementation:
//   - Stage 1: ValidateSquareNonNil(m); factorize via LU(m).
//   - Stage 2: For each canonical basis column e_col solve A·x = e_col and
//     write x into column col of the result.
//
// Errors:
//   - ErrNilMatrix, ErrNonSquare, ErrSingular.
//
// Complexity:
//   - Time O(n^3), Space O(n^2).
//
// Notes:
//   - If you only need A^{-1}*b, call Solve; forming A^{-1} costs n solves.
func Inverse(m *Dense) (*Dense, error) {
	f, err := LU(m)
	if err != nil {
		return nil, matrixErrorf(opInverse, err)
	}
	n := m.r
	inv, err := NewDense(n, n)
	if err != nil {
		return nil, matrixErrorf(opInverse, err)
	}
	e := make([]float64, n)
	for col := 0; col < n; col++ {
		for i := range e {
			e[i] = 0
		}
		e[col] = 1
		x, err := f.SolveVec(e)
		if err != nil {
			return nil, matrixErrorf(opInverse, err)
		}
		for i := 0; i < n; i++ {
			inv.data[i*n+col] = x[i]
		}
	}

	return inv, nil
}

// Solve returns x with m·x = b.
// Errors: ErrNilMatrix, ErrNonSquare, ErrSingular, ErrDimensionMismatch.
// Complexity: O(n^3).
func Solve(m *Dense, b *Vector) (*Vector, error) {
	if b == nil {
		return nil, matrixErrorf(opSolve, ErrNilMatrix)
	}
	f, err := LU(m)
	if err != nil {
		return nil, matrixErrorf(opSolve, err)
	}
	x, err := f.SolveVec(b.data)
	if err != nil {
		return nil, err
	}

	return &Vector{data: x}, nil
}

// ValidateOrthogonal checks max|Q·Qᵀ − I| ≤ tol for a square q.
// tol ≤ 0 selects DefaultOrthogonalityTol.
// Errors: ErrNilMatrix, ErrNonSquare, ErrNotOrthogonal.
// Complexity: O(n^3).
func ValidateOrthogonal(q *Dense, tol float64) error {
	if err := ValidateSquareNonNil(q); err != nil {
		return matrixErrorf(opOrthogonal, err)
	}
	if tol <= 0 {
		tol = DefaultOrthogonalityTol
	}
	n := q.r
	var (
		i, j, k int
		sum     float64
		want    float64
	)
	for i = 0; i < n; i++ {
		for j = 0; j < n; j++ {
			sum = ZeroSum
			for k = 0; k < n; k++ {
				sum += q.data[i*n+k] * q.data[j*n+k]
			}
			want = 0
			if i == j {
				want = 1
			}
			if math.Abs(sum-want) > tol || math.IsNaN(sum) {
				return matrixErrorf(opOrthogonal, ErrNotOrthogonal)
			}
		}
	}

	return nil
}
