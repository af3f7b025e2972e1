// SPDX-License-Identifier: MIT

// Package matrix - Vector: a dense 1-D container with a length fixed at construction.
//
// Purpose:
//   - Give optimizers a dimension-checked vector type so mismatched operands
//     surface as ErrDimensionMismatch instead of silent truncation.
//   - Keep the same numeric conventions as Dense (flat []float64, no hidden copies
//     except where documented).

package matrix

import (
	"fmt"
	"math"
)

const (
	opVecAdd  = "Vector.Add"
	opVecSub  = "Vector.Sub"
	opVecDot  = "Vector.Dot"
	opVecAxpy = "Vector.AddScaled"
)

// Vector is a fixed-length dense vector of float64 values.
type Vector struct {
	data []float64 // len fixed at construction
}

// NewVector returns a zero vector of length n.
// Errors: ErrInvalidDimensions when n <= 0.
// Complexity: O(n).
func NewVector(n int) (*Vector, error) {
	if n <= 0 {
		return nil, ErrInvalidDimensions
	}

	return &Vector{data: make([]float64, n)}, nil
}

// VectorFrom copies xs into a new Vector.
// Errors: ErrInvalidDimensions when xs is empty.
// Complexity: O(n).
func VectorFrom(xs []float64) (*Vector, error) {
	if len(xs) == 0 {
		return nil, ErrInvalidDimensions
	}
	v := &Vector{data: make([]float64, len(xs))}
	copy(v.data, xs)

	return v, nil
}

// Len returns the fixed length.
func (v *Vector) Len() int { return len(v.data) }

// At returns element i or ErrOutOfRange.
func (v *Vector) At(i int) (float64, error) {
	if i < 0 || i >= len(v.data) {
		return 0, fmt.Errorf("Vector.At(%d): %w", i, ErrOutOfRange)
	}

	return v.data[i], nil
}

// Set writes element i or returns ErrOutOfRange.
func (v *Vector) Set(i int, x float64) error {
	if i < 0 || i >= len(v.data) {
		return fmt.Errorf("Vector.Set(%d): %w", i, ErrOutOfRange)
	}
	v.data[i] = x

	return nil
}

// Slice returns a copy of the elements.
func (v *Vector) Slice() []float64 {
	out := make([]float64, len(v.data))
	copy(out, v.data)

	return out
}

// Clone returns an independent copy.
func (v *Vector) Clone() *Vector {
	return &Vector{data: v.Slice()}
}

// Norm returns the Euclidean norm ‖v‖₂ using scaled accumulation
// (avoids overflow for large residual sentinels).
// Complexity: O(n).
func (v *Vector) Norm() float64 {
	return Norm2(v.data)
}

// IsFinite reports whether every element is finite.
func (v *Vector) IsFinite() bool {
	for _, x := range v.data {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}

	return true
}

// Add returns v + w.
// Errors: ErrDimensionMismatch when lengths differ.
// Complexity: O(n).
func (v *Vector) Add(w *Vector) (*Vector, error) {
	return v.combine(w, 1, opVecAdd)
}

// Sub returns v − w.
// Errors: ErrDimensionMismatch when lengths differ.
// Complexity: O(n).
func (v *Vector) Sub(w *Vector) (*Vector, error) {
	return v.combine(w, -1, opVecSub)
}

// AddScaled returns v + alpha·w (axpy).
// Errors: ErrDimensionMismatch when lengths differ.
// Complexity: O(n).
func (v *Vector) AddScaled(alpha float64, w *Vector) (*Vector, error) {
	return v.combine(w, alpha, opVecAxpy)
}

// combine is the shared kernel for Add/Sub/AddScaled: out = v + sign*w.
func (v *Vector) combine(w *Vector, sign float64, tag string) (*Vector, error) {
	if w == nil {
		return nil, matrixErrorf(tag, ErrNilMatrix)
	}
	if len(v.data) != len(w.data) {
		return nil, matrixErrorf(tag, ErrDimensionMismatch)
	}
	out := &Vector{data: make([]float64, len(v.data))}
	for i := range v.data {
		out.data[i] = v.data[i] + sign*w.data[i]
	}

	return out, nil
}

// Scale returns alpha·v.
// Complexity: O(n).
func (v *Vector) Scale(alpha float64) *Vector {
	out := &Vector{data: make([]float64, len(v.data))}
	for i, x := range v.data {
		out.data[i] = alpha * x
	}

	return out
}

// Dot returns vᵀw.
// Errors: ErrDimensionMismatch when lengths differ.
// Complexity: O(n).
func (v *Vector) Dot(w *Vector) (float64, error) {
	if w == nil {
		return 0, matrixErrorf(opVecDot, ErrNilMatrix)
	}
	if len(v.data) != len(w.data) {
		return 0, matrixErrorf(opVecDot, ErrDimensionMismatch)
	}
	s := ZeroSum
	for i := range v.data {
		s += v.data[i] * w.data[i]
	}

	return s, nil
}

// Norm2 returns the Euclidean norm of xs with LAPACK-style scaling
// (dnrm2): the running scale keeps squares of huge entries representable.
// Complexity: O(n).
func Norm2(xs []float64) float64 {
	scale, ssq := 0.0, 1.0
	for _, x := range xs {
		if x == 0 {
			continue
		}
		ax := math.Abs(x)
		if math.IsNaN(ax) || math.IsInf(ax, 0) {
			return ax
		}
		if scale < ax {
			r := scale / ax
			ssq = 1 + ssq*r*r
			scale = ax
		} else {
			r := ax / scale
			ssq += r * r
		}
	}

	return scale * math.Sqrt(ssq)
}
