package matrix_test

import (
	"fmt"

	"github.com/katalvlaran/tubefit/matrix"
)

// ExampleSolve solves a damped normal system (JᵀJ + vI)·Δ = −g,
// the inner step of a Levenberg–Marquardt iteration.
func ExampleSolve() {
	j, _ := matrix.NewDenseFrom(3, 2, []float64{1, 0, 0, 1, 1, 1})
	jtj, _ := matrix.Gram(j)
	damped, _ := matrix.AddDiagonal(jtj, 1)
	g, _ := matrix.VectorFrom([]float64{-3, -3})

	delta, _ := matrix.Solve(damped, g.Scale(-1))
	fmt.Printf("%.3f\n", delta.Slice())
	// Output:
	// [0.750 0.750]
}
