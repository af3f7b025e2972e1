package trace_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/tubefit/trace"
)

func TestNilTraceIsNoop(t *testing.T) {
	t.Parallel()

	var tr *trace.Trace
	require.False(t, tr.Enabled())
	tr.Logf("ignored %d", 1)
	tr.AddIteration(trace.Iteration{Iteration: 1})
	tr.AddGradient([]float64{1})
	tr.AddJacobian([][]float64{{1}})
	tr.AddEstimate(trace.Estimate{Param: "mu"})
	tr.AddFeaturePoint(trace.FeaturePoint{})
	tr.Observe(func(trace.Record) {})
	assert.Zero(t, tr.Len())
}

func TestTrace_CopiesAndObserves(t *testing.T) {
	t.Parallel()

	tr := trace.New()
	var kinds []trace.Kind
	tr.Observe(func(r trace.Record) { kinds = append(kinds, r.Kind) })

	x := []float64{1, 2}
	tr.AddIteration(trace.Iteration{Algorithm: "lm", Iteration: 1, X: x, Fx: 3})
	x[0] = 99
	tr.Logf("stage %s", "mu")

	require.Len(t, tr.Iterations, 1)
	assert.Equal(t, []float64{1, 2}, tr.Iterations[0].X, "stored iteration must not alias caller slice")
	assert.Equal(t, []string{"stage mu"}, tr.Messages)
	assert.Equal(t, []trace.Kind{trace.KindIteration, trace.KindMessage}, kinds)
	assert.Equal(t, 2, tr.Len())
}

func sample() *trace.Trace {
	tr := trace.New()
	for i := 0; i < 20; i++ {
		tr.AddIteration(trace.Iteration{Algorithm: "powell", Iteration: i, X: []float64{1, float64(i)}, Fx: 1 / float64(i+1)})
	}
	tr.AddGradient([]float64{0.1, -0.2})
	tr.AddJacobian([][]float64{{1, 0}, {0, 1}})
	tr.AddEstimate(trace.Estimate{Param: "mu", Samples: []float64{10, 12}, Average: 11})
	tr.AddFeaturePoint(trace.FeaturePoint{Series: 2, Index: 5, Kind: "Local Minimum", Ep: 40, Is: 3.5})
	tr.Logf("done")

	return tr
}

func TestExportImport_AllCodecs(t *testing.T) {
	t.Parallel()

	want := sample()
	for _, c := range []trace.Codec{trace.CodecNone, trace.CodecZstd, trace.CodecS2, trace.CodecLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, trace.Export(&buf, want, c))

			got, err := trace.Import(&buf)
			require.NoError(t, err)
			assert.Equal(t, want.Iterations, got.Iterations)
			assert.Equal(t, want.Gradients, got.Gradients)
			assert.Equal(t, want.Jacobians, got.Jacobians)
			assert.Equal(t, want.Estimates, got.Estimates)
			assert.Equal(t, want.FeaturePoints, got.FeaturePoints)
			assert.Equal(t, want.Messages, got.Messages)
		})
	}
}

func TestExport_NonFiniteValues(t *testing.T) {
	t.Parallel()

	tr := trace.New()
	tr.AddIteration(trace.Iteration{Algorithm: "lm", Iteration: 1, X: []float64{math.NaN()}, Fx: math.Inf(1)})
	tr.AddGradient([]float64{math.Inf(1), 2, math.Inf(-1)})
	tr.AddJacobian([][]float64{{math.NaN(), 1}})
	tr.AddEstimate(trace.Estimate{Param: "kvb", Samples: []float64{math.Inf(1)}, Average: math.NaN()})

	var buf bytes.Buffer
	require.NoError(t, trace.Export(&buf, tr, trace.CodecZstd))
	got, err := trace.Import(&buf)
	require.NoError(t, err)

	assert.Equal(t, []float64{math.MaxFloat64, 2, -math.MaxFloat64}, got.Gradients[0])
	assert.Equal(t, []float64{math.MaxFloat64, 1}, got.Jacobians[0][0])
	assert.Equal(t, math.MaxFloat64, got.Iterations[0].Fx)
	assert.Equal(t, []float64{math.MaxFloat64}, got.Iterations[0].X)
	assert.Equal(t, math.MaxFloat64, got.Estimates[0].Average)
}

func TestImport_Errors(t *testing.T) {
	t.Parallel()

	_, err := trace.Import(bytes.NewReader([]byte("nope")))
	require.ErrorIs(t, err, trace.ErrBadHeader)

	_, err = trace.Import(bytes.NewReader([]byte{'T', 'F', 'T', 'R', 9, '{', '}'}))
	require.ErrorIs(t, err, trace.ErrUnknownCodec)

	require.ErrorIs(t, trace.Export(&bytes.Buffer{}, trace.New(), trace.Codec(42)), trace.ErrUnknownCodec)
}

func TestParseCodec(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]trace.Codec{
		"":     trace.CodecNone,
		"none": trace.CodecNone,
		"ZSTD": trace.CodecZstd,
		"s2":   trace.CodecS2,
		" lz4": trace.CodecLZ4,
	} {
		got, err := trace.ParseCodec(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := trace.ParseCodec("gzip")
	require.ErrorIs(t, err, trace.ErrUnknownCodec)
}
