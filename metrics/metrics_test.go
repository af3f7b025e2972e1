package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/tubefit/metrics"
)

func TestRecorder_Observe(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	require.NoError(t, err)

	rec.Observe(metrics.Observation{
		Model: "derk", Algorithm: "powell", Outcome: metrics.OutcomeSuccess,
		Duration: 250 * time.Millisecond, Iterations: 12, RMSE: 0.125,
	})
	rec.Observe(metrics.Observation{
		Model: "derk", Algorithm: "powell", Outcome: metrics.OutcomeNotConverged,
		Duration: time.Second, Iterations: 10000,
	})

	n, err := testutil.GatherAndCount(reg, "tubefit_fits_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	expected := `
# HELP tubefit_fit_rmse RMSE of the last successful fit in mA
# TYPE tubefit_fit_rmse gauge
tubefit_fit_rmse{model="derk"} 0.125
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "tubefit_fit_rmse"))
}

func TestRecorder_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := metrics.NewRecorder(reg)
	require.NoError(t, err)
	_, err = metrics.NewRecorder(reg)
	require.ErrorIs(t, err, metrics.ErrRegister)
}

func TestRecorder_NilIsNoop(t *testing.T) {
	t.Parallel()

	var rec *metrics.Recorder
	assert.NotPanics(t, func() { rec.Observe(metrics.Observation{Outcome: metrics.OutcomeSuccess}) })
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	require.NoError(t, err)
	rec.Observe(metrics.Observation{Model: "koren-triode", Algorithm: "levenberg-marquardt", Outcome: metrics.OutcomeSuccess, Iterations: 7})

	path := filepath.Join(t.TempDir(), "tubefit.prom")
	require.NoError(t, metrics.WriteTextfile(path, reg))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `tubefit_fits_total{algorithm="levenberg-marquardt",model="koren-triode",outcome="success"} 1`)
}
