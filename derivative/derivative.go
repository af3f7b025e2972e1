// SPDX-License-Identifier: MIT

package derivative

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/tubefit/matrix"
)

var (
	// ErrBadOrder is returned for a difference order outside {1, 2, 4}.
	ErrBadOrder = errors.New("derivative: order must be 1, 2 or 4")

	// ErrEmptyInput is returned when x has no components.
	ErrEmptyInput = errors.New("derivative: empty input point")

	// ErrEmptyOutput is returned when f(x) has no components.
	ErrEmptyOutput = errors.New("derivative: function returned no values")

	// ErrOutputLength is returned when f changes its output length between calls.
	ErrOutputLength = errors.New("derivative: inconsistent output length")

	// ErrNotOrthogonal is returned when Options.Q fails Q·Qᵀ = I.
	ErrNotOrthogonal = errors.New("derivative: direction matrix is not orthogonal")

	// ErrBadStep is returned for a negative, NaN or infinite step override.
	ErrBadStep = errors.New("derivative: invalid step size")
)

// Func is a vector-valued function R^n → R^m.
// Implementations must return a fresh slice of constant length.
type Func func(x []float64) []float64

// Options configures Jacobian/Hessian evaluation.
type Options struct {
	// Order selects forward (1), central (2) or 4th-order central (4) differences.
	// Zero selects DefaultOrder.
	Order int

	// Step overrides the first-derivative step when > 0.
	Step float64

	// SecondStep overrides the outer step of the Hessian pass when > 0.
	SecondStep float64

	// Q is an optional orthogonal direction matrix (n×n).
	Q *matrix.Dense

	// Hessian requests the second-order pass from Evaluate.
	Hessian bool
}

// DefaultOrder is the difference order used when Options.Order is zero.
const DefaultOrder = 2

// DefaultOptions returns central differences with default steps and no rotation.
func DefaultOptions() Options {
	return Options{Order: DefaultOrder}
}

// Result bundles the outputs of Evaluate.
type Result struct {
	Jacobian *matrix.Dense   // m×n
	Hessian  []*matrix.Dense // m entries of n×n; nil unless requested
}

var eps = math.Nextafter(1, 2) - 1

// StepSizes returns the default (first, second) derivative steps for order.
func StepSizes(order int) (first, second float64, err error) {
	switch order {
	case 1:
		return math.Sqrt(eps), math.Cbrt(eps), nil
	case 2:
		return math.Cbrt(eps), math.Pow(eps, 1.0/4), nil
	case 4:
		return math.Pow(eps, 1.0/4), math.Pow(eps, 1.0/6), nil
	default:
		return 0, 0, ErrBadOrder
	}
}

// resolve validates opts and returns the effective order and steps.
func resolve(opts Options) (order int, h1, h2 float64, err error) {
	order = opts.Order
	if order == 0 {
		order = DefaultOrder
	}
	if h1, h2, err = StepSizes(order); err != nil {
		return 0, 0, 0, err
	}
	if opts.Step != 0 {
		if !(opts.Step > 0) || math.IsInf(opts.Step, 0) {
			return 0, 0, 0, ErrBadStep
		}
		h1 = opts.Step
	}
	if opts.SecondStep != 0 {
		if !(opts.SecondStep > 0) || math.IsInf(opts.SecondStep, 0) {
			return 0, 0, 0, ErrBadStep
		}
		h2 = opts.SecondStep
	}

	return order, h1, h2, nil
}

// Evaluate computes the Jacobian and, when opts.Hessian is set, the Hessian of f at x.
func Evaluate(f Func, x []float64, opts Options) (Result, error) {
	jac, err := Jacobian(f, x, opts)
	if err != nil {
		return Result{}, err
	}
	res := Result{Jacobian: jac}
	if opts.Hessian {
		if res.Hessian, err = Hessian(f, x, opts); err != nil {
			return Result{}, err
		}
	}

	return res, nil
}

// Jacobian returns the m×n matrix J[i][j] = ∂f_i/∂x_j (or the directional
// derivative along column j of opts.Q).
//
// Implementation:
//   - Stage 1: validate order/steps/Q; evaluate f(x) once to learn m.
//   - Stage 2: for each direction j build the shifted points required by the
//     order and combine them with the stencil weights.
//
// Errors:
//   - ErrBadOrder, ErrBadStep, ErrEmptyInput, ErrEmptyOutput, ErrOutputLength,
//     ErrNotOrthogonal.
//
// Complexity:
//   - order·n evaluations of f (+1 for the base point), O(m·n) memory.
func Jacobian(f Func, x []float64, opts Options) (*matrix.Dense, error) {
	order, h1, _, err := resolve(opts)
	if err != nil {
		return nil, err
	}

	return jacobian(f, x, order, h1, opts.Q)
}

func jacobian(f Func, x []float64, order int, h float64, q *matrix.Dense) (*matrix.Dense, error) {
	n := len(x)
	if n == 0 {
		return nil, ErrEmptyInput
	}
	dirs, err := directions(q, n)
	if err != nil {
		return nil, err
	}

	f0 := f(x)
	m := len(f0)
	if m == 0 {
		return nil, ErrEmptyOutput
	}
	jac, err := matrix.NewDense(m, n)
	if err != nil {
		return nil, err
	}

	var (
		scale = 1.0
		xs    = make([]float64, n)
		col   = make([]float64, m)
	)
	if q != nil {
		for _, v := range x {
			scale = math.Max(scale, math.Abs(v))
		}
	}
	// eval returns f(x + t·d), checking the output length.
	eval := func(d []float64, t float64) ([]float64, error) {
		for k := range x {
			xs[k] = x[k] + t*d[k]
		}
		y := f(xs)
		if len(y) != m {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrOutputLength, len(y), m)
		}

		return y, nil
	}

	for j := 0; j < n; j++ {
		d := dirs[j]
		hj := h * scale
		if q == nil {
			hj = h * math.Max(1, math.Abs(x[j]))
		}
		switch order {
		case 1:
			fp, err := eval(d, hj)
			if err != nil {
				return nil, err
			}
			for i := 0; i < m; i++ {
				col[i] = (fp[i] - f0[i]) / hj
			}
		case 2:
			fp, err := eval(d, hj)
			if err != nil {
				return nil, err
			}
			fm, err := eval(d, -hj)
			if err != nil {
				return nil, err
			}
			for i := 0; i < m; i++ {
				col[i] = (fp[i] - fm[i]) / (2 * hj)
			}
		case 4:
			fp2, err := eval(d, 2*hj)
			if err != nil {
				return nil, err
			}
			fp1, err := eval(d, hj)
			if err != nil {
				return nil, err
			}
			fm1, err := eval(d, -hj)
			if err != nil {
				return nil, err
			}
			fm2, err := eval(d, -2*hj)
			if err != nil {
				return nil, err
			}
			for i := 0; i < m; i++ {
				col[i] = (-fp2[i] + 8*fp1[i] - 8*fm1[i] + fm2[i]) / (12 * hj)
			}
		}
		if err := jac.SetCol(j, col); err != nil {
			return nil, err
		}
	}

	return jac, nil
}

// directions returns the n difference directions: the coordinate basis, or the
// columns of q after the orthogonality check.
func directions(q *matrix.Dense, n int) ([][]float64, error) {
	dirs := make([][]float64, n)
	if q == nil {
		for j := range dirs {
			dirs[j] = make([]float64, n)
			dirs[j][j] = 1
		}

		return dirs, nil
	}
	if q.Rows() != n || q.Cols() != n {
		return nil, fmt.Errorf("%w: Q is %dx%d, want %dx%d", ErrNotOrthogonal, q.Rows(), q.Cols(), n, n)
	}
	if err := matrix.ValidateOrthogonal(q, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotOrthogonal, err)
	}
	for j := range dirs {
		col, err := q.Col(j)
		if err != nil {
			return nil, err
		}
		dirs[j] = col
	}

	return dirs, nil
}

// Hessian returns one n×n matrix per output component: H[k][i][j] = ∂²f_k/∂x_i∂x_j.
//
// Implementation:
//   - Stage 1: define g(x) = vec(J(x)) using the first-derivative step.
//   - Stage 2: differentiate g with the second-derivative step; row k·n+i of the
//     outer Jacobian is ∂J[k][i]/∂x.
//
// Complexity:
//   - (order·n+1)² evaluations of f.
func Hessian(f Func, x []float64, opts Options) ([]*matrix.Dense, error) {
	order, h1, h2, err := resolve(opts)
	if err != nil {
		return nil, err
	}
	n := len(x)
	var innerErr error
	flat := func(p []float64) []float64 {
		j, err := jacobian(f, p, order, h1, opts.Q)
		if err != nil {
			innerErr = err
			return nil
		}

		return j.RawCopy()
	}
	outer, err := jacobian(flat, x, order, h2, opts.Q)
	if innerErr != nil {
		return nil, innerErr
	}
	if err != nil {
		return nil, err
	}

	m := outer.Rows() / n
	out := make([]*matrix.Dense, m)
	for k := 0; k < m; k++ {
		h, err := matrix.NewDense(n, n)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			row, err := outer.Row(k*n + i)
			if err != nil {
				return nil, err
			}
			for j := 0; j < n; j++ {
				if err := h.Set(i, j, row[j]); err != nil {
					return nil, err
				}
			}
		}
		out[k] = h
	}

	return out, nil
}
