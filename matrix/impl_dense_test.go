package matrix_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/tubefit/matrix"
)

func TestNewDenseDefaultZero(t *testing.T) {
	for _, tc := range []struct{ rows, cols int }{
		{3, 3},
		{6, 2},
	} {
		name := fmt.Sprintf("%dx%d", tc.rows, tc.cols)
		t.Run(name, func(t *testing.T) {
			m, err := matrix.NewDense(tc.rows, tc.cols)
			require.NoError(t, err)
			for _, v := range m.RawCopy() {
				require.Zero(t, v)
			}
		})
	}
}

func TestNewDense_InvalidShape(t *testing.T) {
	t.Parallel()

	_, err := matrix.NewDense(0, 3)
	require.ErrorIs(t, err, matrix.ErrInvalidDimensions)
	_, err = matrix.NewDenseFrom(2, 2, []float64{1, 2, 3})
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

func TestDense_AtSetBounds(t *testing.T) {
	t.Parallel()

	m, err := matrix.NewDense(2, 2)
	require.NoError(t, err)
	require.NoError(t, m.Set(1, 0, 7))
	v, err := m.At(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	_, err = m.At(2, 0)
	require.ErrorIs(t, err, matrix.ErrOutOfRange)
	require.ErrorIs(t, m.Set(0, -1, 1), matrix.ErrOutOfRange)
}

func TestDense_NaNGuard(t *testing.T) {
	t.Parallel()

	m, err := matrix.NewDense(1, 1)
	require.NoError(t, err)
	require.NoError(t, m.Set(0, 0, math.NaN()))

	m.WithNaNInfGuard(true)
	require.ErrorIs(t, m.Set(0, 0, math.Inf(1)), matrix.ErrNaNInf)
	require.ErrorIs(t, m.SetCol(0, []float64{math.NaN()}), matrix.ErrNaNInf)
}

func TestDense_RowColClone(t *testing.T) {
	t.Parallel()

	m, err := matrix.NewDenseFrom(2, 3, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	row, err := m.Row(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 6}, row)

	col, err := m.Col(2)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 6}, col)

	cp := m.Clone()
	require.NoError(t, cp.SetCol(0, []float64{9, 9}))
	v, _ := m.At(0, 0)
	assert.Equal(t, 1.0, v, "clone must not alias the original buffer")
	assert.Equal(t, [][]float64{{9, 2, 3}, {9, 5, 6}}, cp.Rows2D())
	assert.Equal(t, "[1, 2, 3]\n[4, 5, 6]\n", m.String())
}

func TestVector(t *testing.T) {
	t.Parallel()

	v, err := matrix.VectorFrom([]float64{3, 4})
	require.NoError(t, err)
	w, err := matrix.VectorFrom([]float64{1, 1})
	require.NoError(t, err)

	assert.Equal(t, 5.0, v.Norm())
	sum, err := v.Add(w)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5}, sum.Slice())
	axpy, err := v.AddScaled(-2, w)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, axpy.Slice())
	dot, err := v.Dot(w)
	require.NoError(t, err)
	assert.Equal(t, 7.0, dot)

	short, err := matrix.NewVector(3)
	require.NoError(t, err)
	_, err = v.Sub(short)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
	_, err = v.At(2)
	require.ErrorIs(t, err, matrix.ErrOutOfRange)
	_, err = matrix.NewVector(0)
	require.ErrorIs(t, err, matrix.ErrInvalidDimensions)
}

func TestNorm2_HugeEntries(t *testing.T) {
	t.Parallel()

	big := math.MaxFloat64 / 4
	n := matrix.Norm2([]float64{big, big})
	require.False(t, math.IsInf(n, 0))
	assert.InDelta(t, big*math.Sqrt2, n, big*1e-12)
	assert.True(t, math.IsNaN(matrix.Norm2([]float64{1, math.NaN()})))
}
