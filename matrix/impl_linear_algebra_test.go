// Package matrix_test contains unit tests for the dense linear-algebra kernels.
package matrix_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/tubefit/matrix"
)

// mustDenseFrom builds a Dense or fails the test.
func mustDenseFrom(t *testing.T, r, c int, data ...float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDenseFrom(r, c, data)
	require.NoError(t, err)

	return m
}

// mustVector builds a Vector or fails the test.
func mustVector(t *testing.T, xs ...float64) *matrix.Vector {
	t.Helper()
	v, err := matrix.VectorFrom(xs)
	require.NoError(t, err)

	return v
}

func TestAddSub(t *testing.T) {
	t.Parallel()

	a := mustDenseFrom(t, 2, 2, 1, 2, 3, 4)
	b := mustDenseFrom(t, 2, 2, 4, 3, 2, 1)

	sum, err := matrix.Add(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5, 5, 5}, sum.RawCopy())

	diff, err := matrix.Sub(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{-3, -1, 1, 3}, diff.RawCopy())

	// operands are never mutated
	assert.Equal(t, []float64{1, 2, 3, 4}, a.RawCopy())
}

func TestAdd_DimensionMismatch(t *testing.T) {
	t.Parallel()

	a := mustDenseFrom(t, 2, 2, 1, 2, 3, 4)
	b := mustDenseFrom(t, 1, 2, 1, 2)
	_, err := matrix.Add(a, b)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)

	_, err = matrix.Add(nil, b)
	require.ErrorIs(t, err, matrix.ErrNilMatrix)
}

func TestMulTranspose(t *testing.T) {
	t.Parallel()

	a := mustDenseFrom(t, 2, 3, 1, 2, 3, 4, 5, 6)
	at, err := matrix.Transpose(a)
	require.NoError(t, err)
	r, c := at.Shape()
	require.Equal(t, 3, r)
	require.Equal(t, 2, c)

	p, err := matrix.Mul(a, at)
	require.NoError(t, err)
	assert.Equal(t, []float64{14, 32, 32, 77}, p.RawCopy())

	_, err = matrix.Mul(a, a)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

func TestGramMatchesMulTranspose(t *testing.T) {
	t.Parallel()

	j := mustDenseFrom(t, 3, 2, 1, 2, 3, 4, 5, 6)
	jt, err := matrix.Transpose(j)
	require.NoError(t, err)
	want, err := matrix.Mul(jt, j)
	require.NoError(t, err)

	got, err := matrix.Gram(j)
	require.NoError(t, err)
	assert.Equal(t, want.RawCopy(), got.RawCopy())
}

func TestMatVecAndMatTVec(t *testing.T) {
	t.Parallel()

	m := mustDenseFrom(t, 2, 3, 1, 0, 2, 0, 1, 1)
	y, err := matrix.MatVec(m, mustVector(t, 1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 5}, y.Slice())

	g, err := matrix.MatTVec(m, mustVector(t, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 4}, g.Slice())

	_, err = matrix.MatVec(m, mustVector(t, 1, 2))
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

func TestInverse(t *testing.T) {
	t.Parallel()

	// zero leading pivot: requires row pivoting
	a := mustDenseFrom(t, 3, 3,
		0, 2, 1,
		1, 1, 0,
		3, 0, 1,
	)
	inv, err := matrix.Inverse(a)
	require.NoError(t, err)

	prod, err := matrix.Mul(a, inv)
	require.NoError(t, err)
	id, err := matrix.NewIdentity(3)
	require.NoError(t, err)
	got, want := prod.RawCopy(), id.RawCopy()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12, "entry %d", i)
	}
}

func TestInverse_Singular(t *testing.T) {
	t.Parallel()

	a := mustDenseFrom(t, 2, 2, 1, 2, 2, 4)
	_, err := matrix.Inverse(a)
	require.ErrorIs(t, err, matrix.ErrSingular)

	_, err = matrix.Inverse(mustDenseFrom(t, 1, 2, 1, 2))
	require.ErrorIs(t, err, matrix.ErrNonSquare)
}

func TestSolveAndDeterminant(t *testing.T) {
	t.Parallel()

	a := mustDenseFrom(t, 2, 2, 4, 1, 2, 3)
	x, err := matrix.Solve(a, mustVector(t, 1, 2))
	require.NoError(t, err)
	xs := x.Slice()
	assert.InDelta(t, 0.1, xs[0], 1e-12)
	assert.InDelta(t, 0.6, xs[1], 1e-12)

	f, err := matrix.LU(a)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, f.Determinant(), 1e-12)
}

func TestAddDiagonal(t *testing.T) {
	t.Parallel()

	a := mustDenseFrom(t, 2, 2, 1, 2, 3, 4)
	d, err := matrix.AddDiagonal(a, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2, 3, 4.5}, d.RawCopy())
}

func TestValidateOrthogonal(t *testing.T) {
	t.Parallel()

	th := math.Pi / 6
	rot := mustDenseFrom(t, 2, 2, math.Cos(th), -math.Sin(th), math.Sin(th), math.Cos(th))
	require.NoError(t, matrix.ValidateOrthogonal(rot, 0))

	skew := mustDenseFrom(t, 2, 2, 1, 0.1, 0, 1)
	require.ErrorIs(t, matrix.ValidateOrthogonal(skew, 0), matrix.ErrNotOrthogonal)
}
