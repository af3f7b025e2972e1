// Package matrix offers the small dense linear-algebra layer used by the
// derivative engine and the optimizers.
//
// The matrix package provides:
//
//   - Dense: row-major r×c storage with bounds-checked At/Set; the shape is
//     fixed at construction.
//   - Vector: fixed-length 1-D container with Add/Sub/AddScaled/Dot/Norm.
//   - Kernels: Add, Sub, Mul, Transpose, Scale, MatVec, MatTVec (JᵀR),
//     Gram (JᵀJ), AddDiagonal (A + vI), LU with partial pivoting, Solve, Inverse.
//   - ValidateOrthogonal for direction matrices (Q·Qᵀ = I).
//
// Problems handled here are small (≤ 20 parameters), so every kernel allocates
// a fresh result and keeps a fixed loop order for reproducibility.
//
// See example_test.go for usage patterns.
package matrix
