// SPDX-License-Identifier: MIT

package model

// FreeIndices returns the positions of reference whose value is non-zero.
// Zero-valued parameters stay fixed at zero and are excluded from the search.
func FreeIndices(reference []float64) []int {
	free := make([]int, 0, len(reference))
	for i, v := range reference {
		if v != 0 {
			free = append(free, i)
		}
	}

	return free
}

// Expand maps the factor vector x onto a full parameter vector:
// params[free[k]] = |reference[free[k]]·x[k]|, all other positions keep the
// reference value.
func Expand(reference []float64, free []int, x []float64) []float64 {
	params := append([]float64(nil), reference...)
	for k, i := range free {
		v := reference[i] * x[k]
		if v < 0 {
			v = -v
		}
		params[i] = v
	}

	return params
}

// Ones returns the starting factor vector of length n.
func Ones(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = 1
	}

	return x
}

// Reparameterize wraps fn, a function of physical parameters, into a function
// of multiplicative factors over the free positions (see Expand).
func Reparameterize[T any](reference []float64, free []int, fn func(params []float64) T) func(x []float64) T {
	ref := append([]float64(nil), reference...)
	idx := append([]int(nil), free...)

	return func(x []float64) T {
		return fn(Expand(ref, idx, x))
	}
}
