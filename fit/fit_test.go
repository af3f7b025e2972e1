package fit_test

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/tubefit/fit"
	"github.com/katalvlaran/tubefit/metrics"
	"github.com/katalvlaran/tubefit/model"
	"github.com/katalvlaran/tubefit/tube"
)

var (
	triode = model.KorenTriodeParams{Mu: 100, Ex: 1.4, Kg1: 1060, Kp: 600, Kvb: 300}
	derk   = model.DerkParams{
		Mu: 10.5, Ex: 1.35, Kg1: 680, Kp: 45, Kg2: 4500, A: 0.0003, AlphaS: 5.5, Beta: 0.08,
	}

	triodeGrid = model.Grid{
		Ep: []float64{25, 50, 100, 150, 200, 250, 300},
		Eg: []float64{0, -0.5, -1, -1.5, -2},
	}
	pentodeGrid = model.Grid{
		Ep: []float64{10, 20, 40, 60, 100, 150, 200, 250, 300},
		Eg: []float64{0, -5, -10, -15, -20},
		Es: []float64{250},
	}
)

// seeded returns an Initial holding p scaled by the given factors (1 when absent).
func seeded(p model.Parameters, factors ...float64) *tube.Initial {
	var in tube.Initial
	for i, param := range p.Family().Params() {
		f := 1.0
		if i < len(factors) {
			f = factors[i]
		}
		in.SetIfUnset(param, p.Vector()[i]*f)
	}

	return &in
}

func triodeFiles() []tube.File {
	return []tube.File{model.Sample(triode, tube.IP_VA_VG_VH, triodeGrid)}
}

// noisy returns files with every current scaled by 1+σ·N(0,1).
func noisy(files []tube.File, sigma float64, seed int64) []tube.File {
	rng := rand.New(rand.NewSource(seed))
	out := make([]tube.File, len(files))
	for i, f := range files {
		series := make([]tube.Series, len(f.Series))
		for j, s := range f.Series {
			s.Points = append([]tube.Point(nil), s.Points...)
			for k := range s.Points {
				s.Points[k].Ip *= 1 + sigma*rng.NormFloat64()
				s.Points[k].Is *= 1 + sigma*rng.NormFloat64()
			}
			series[j] = s
		}
		f.Series = series
		out[i] = f
	}

	return out
}

func TestFit_LevenbergMarquardtFromPerturbedStart(t *testing.T) {
	t.Parallel()

	res, err := fit.New().Fit(context.Background(), fit.Request{
		Model:   model.KorenTriode,
		Files:   triodeFiles(),
		Config:  fit.DefaultConfig(),
		Initial: seeded(triode, 1.1, 0.95, 1.1, 0.9, 1.1),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Parameters.KorenTriode)
	assert.Nil(t, res.Parameters.Derk)
	assert.Less(t, res.Parameters.RMSE, 1e-3)
	assert.InEpsilon(t, triode.Mu, res.Parameters.KorenTriode.Mu, 0.01)
	assert.InEpsilon(t, triode.Ex, res.Parameters.KorenTriode.Ex, 0.01)
	assert.Positive(t, res.Iterations)
	assert.Nil(t, res.Trace, "trace is off by default")
}

func TestFit_PipelineThenLevenbergMarquardt(t *testing.T) {
	t.Parallel()

	cfg := fit.DefaultConfig()
	cfg.LevenbergMarquardt.MaxIterations = 5000
	cfg.Trace = true
	res, err := fit.New().Fit(context.Background(), fit.Request{
		Model: model.KorenTriode, Files: triodeFiles(), Config: cfg,
	})
	require.NoError(t, err)
	assert.Less(t, res.Parameters.RMSE, 0.05)
	assert.Len(t, res.Initial, len(model.KorenTriode.Params()))

	require.NotNil(t, res.Trace)
	assert.NotEmpty(t, res.Trace.Estimates)
	assert.NotEmpty(t, res.Trace.Iterations)
	assert.NotEmpty(t, res.Trace.Messages)
}

func TestFit_NoisyDataWithDefaults(t *testing.T) {
	t.Parallel()

	derkE := derk
	derkE.Exponential = true
	pentode := model.KorenPentodeParams{Mu: 10.5, Ex: 1.35, Kg1: 680, Kp: 45, Kvb: 100, Kg2: 4500}

	for _, tc := range []struct {
		name   string
		family model.Family
		truth  model.Parameters
		files  []tube.File
	}{
		{"koren-triode", model.KorenTriode, triode, triodeFiles()},
		{"koren-pentode", model.KorenPentode, pentode, []tube.File{model.Sample(pentode, tube.IPIS_VA_VG_VS_VH, pentodeGrid)}},
		{"derk", model.Derk, derk, []tube.File{model.Sample(derk, tube.IPIS_VA_VG_VS_VH, pentodeGrid)}},
		{"derke", model.DerkE, derkE, []tube.File{model.Sample(derkE, tube.IPIS_VA_VG_VS_VH, pentodeGrid)}},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			files := noisy(tc.files, 0.01, 7)
			res, err := fit.New().Fit(context.Background(), fit.Request{
				Model: tc.family, Files: files, Config: fit.DefaultConfig(),
			})
			require.NoError(t, err)
			// the least-squares fit is at least as close to the data as the
			// parameters that generated it
			assert.LessOrEqual(t, res.Parameters.RMSE, model.Evaluate(files, tc.truth, 0).RMSE)
			if !tc.family.IsPentode() || tc.family == model.KorenPentode {
				assert.InEpsilon(t, tc.truth.Vector()[0], res.Parameters.Params().Vector()[0], 0.1, "mu")
			}
		})
	}
}

func TestFit_PipelineThenPowell(t *testing.T) {
	t.Parallel()

	derkE := derk
	derkE.Exponential = true

	for _, p := range []model.DerkParams{derk, derkE} {
		p := p
		t.Run(p.Family().String(), func(t *testing.T) {
			t.Parallel()

			cfg := fit.DefaultConfig()
			cfg.Algorithm = fit.Powell
			res, err := fit.New().Fit(context.Background(), fit.Request{
				Model: p.Family(), Files: []tube.File{model.Sample(p, tube.IPIS_VA_VG_VS_VH, pentodeGrid)}, Config: cfg,
			})
			require.NoError(t, err)
			assert.Less(t, res.Parameters.RMSE, 0.05)
			got := res.Parameters.Derk
			require.NotNil(t, got)
			assert.InEpsilon(t, p.Mu, got.Mu, 0.05)
			assert.InEpsilon(t, p.Kg2, got.Kg2, 0.15)
		})
	}
}

func TestFit_PowellAtOptimum(t *testing.T) {
	t.Parallel()

	cfg := fit.DefaultConfig()
	cfg.Algorithm = fit.Powell
	res, err := fit.New().Fit(context.Background(), fit.Request{
		Model: model.KorenTriode, Files: triodeFiles(), Config: cfg, Initial: seeded(triode),
	})
	require.NoError(t, err)
	assert.InDelta(t, 0, res.Parameters.RMSE, 1e-9)
	for i, v := range res.Parameters.Params().Vector() {
		assert.InEpsilon(t, triode.Vector()[i], v, 1e-6)
	}
}

func TestFit_ZeroParametersStayFixed(t *testing.T) {
	t.Parallel()

	// secondary emission disabled: s, αP, λ, v, w are 0 and never searched
	files := []tube.File{model.Sample(derk, tube.IPIS_VA_VG_VS_VH, pentodeGrid)}
	cfg := fit.DefaultConfig()
	cfg.Algorithm = fit.Powell
	res, err := fit.New().Fit(context.Background(), fit.Request{
		Model: model.Derk, Files: files, Config: cfg, Initial: seeded(derk),
	})
	require.NoError(t, err)

	got := res.Parameters.Derk
	require.NotNil(t, got)
	assert.Zero(t, got.S)
	assert.Zero(t, got.AlphaP)
	assert.Zero(t, got.Lambda)
	assert.Zero(t, got.V)
	assert.Zero(t, got.W)
	assert.InEpsilon(t, derk.Kg2, got.Kg2, 1e-6)
	for _, v := range got.Vector() {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestFit_GlobalEgOffsetFallback(t *testing.T) {
	t.Parallel()

	files := triodeFiles()
	for i := range files[0].Series {
		for j := range files[0].Series[i].Points {
			files[0].Series[i].Points[j].Eg -= 0.25
		}
	}
	cfg := fit.DefaultConfig()
	cfg.Algorithm = fit.Powell
	cfg.EgOffset = 0.25
	res, err := fit.New().Fit(context.Background(), fit.Request{
		Model: model.KorenTriode, Files: files, Config: cfg, Initial: seeded(triode),
	})
	require.NoError(t, err)
	assert.InDelta(t, 0, res.Parameters.RMSE, 1e-9)
	assert.Zero(t, files[0].EgOffset, "caller's files are not modified")
}

func TestFit_NotConverged(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	require.NoError(t, err)

	cfg := fit.DefaultConfig()
	cfg.LevenbergMarquardt.MaxIterations = 1
	res, err := fit.New(fit.WithRecorder(rec)).Fit(context.Background(), fit.Request{
		Model: model.KorenTriode, Files: triodeFiles(), Config: cfg,
		Initial: seeded(triode, 1.3, 0.8, 1.5, 0.6, 2),
	})
	require.ErrorIs(t, err, fit.ErrNotConverged)
	assert.Nil(t, res)

	expected := `
# HELP tubefit_fits_total Finished fits by model, algorithm and outcome
# TYPE tubefit_fits_total counter
tubefit_fits_total{algorithm="levenberg-marquardt",model="koren-triode",outcome="not_converged"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "tubefit_fits_total"))
}

func TestFit_RequestErrors(t *testing.T) {
	t.Parallel()

	f := fit.New()
	ctx := context.Background()

	_, err := f.Fit(ctx, fit.Request{Model: model.KorenPentode, Files: triodeFiles(), Config: fit.DefaultConfig()})
	require.ErrorIs(t, err, fit.ErrNoData)

	_, err = f.Fit(ctx, fit.Request{Model: model.Family(42), Files: triodeFiles()})
	require.ErrorIs(t, err, model.ErrUnknownFamily)

	cfg := fit.DefaultConfig()
	cfg.Algorithm = fit.Algorithm(7)
	_, err = f.Fit(ctx, fit.Request{Model: model.KorenTriode, Files: triodeFiles(), Config: cfg})
	require.ErrorIs(t, err, fit.ErrUnknownAlgorithm)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.Fit(cancelled, fit.Request{Model: model.KorenTriode, Files: triodeFiles(), Config: fit.DefaultConfig()})
	require.ErrorIs(t, err, context.Canceled)
}

func TestFit_ResultMetadata(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f := fit.New(fit.WithClock(func() time.Time { return at }))
	cfg := fit.DefaultConfig()
	cfg.Algorithm = fit.Powell
	req := fit.Request{Model: model.KorenTriode, Files: triodeFiles(), Config: cfg, Initial: seeded(triode)}

	res, err := f.Fit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, at, res.Parameters.Completed)
	_, err = uuid.Parse(res.ID)
	require.NoError(t, err)
	assert.Equal(t, fit.Fingerprint(req.Files), res.Fingerprint)

	req.ID = "el84-run"
	again, err := f.Fit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "el84-run", again.ID)
	assert.Equal(t, res.Fingerprint, again.Fingerprint)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"model":"koren-triode"`)
	assert.Contains(t, string(b), `"korenTriode":{"mu":`)
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := triodeFiles()
	b := triodeFiles()
	b[0].Name = "renamed"
	assert.Equal(t, fit.Fingerprint(a), fit.Fingerprint(b))

	b[0].Series[1].Points[2].Ip += 1e-9
	assert.NotEqual(t, fit.Fingerprint(a), fit.Fingerprint(b))
}

func TestStream(t *testing.T) {
	t.Parallel()

	cfg := fit.DefaultConfig()
	cfg.Trace = true
	events := fit.New().Stream(context.Background(), fit.Request{
		Model: model.KorenTriode, Files: triodeFiles(), Config: cfg, Initial: seeded(triode, 1.05),
	})

	var logs, traces, terminal int
	var last fit.Event
	for ev := range events {
		switch ev.Kind {
		case fit.EventLog:
			logs++
		case fit.EventTrace:
			traces++
		}
		if ev.Terminal() {
			terminal++
		}
		last = ev
	}
	assert.Positive(t, logs)
	assert.Positive(t, traces)
	require.Equal(t, 1, terminal)
	require.Equal(t, fit.EventSuccess, last.Kind, "failure: %v", last.Err)
	require.NotNil(t, last.Result)
	assert.NotNil(t, last.Result.Trace)
}

func TestStream_Failure(t *testing.T) {
	t.Parallel()

	events := fit.New().Stream(context.Background(), fit.Request{
		Model: model.Derk, Files: triodeFiles(), Config: fit.DefaultConfig(),
	})
	var got []fit.Event
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, 1)
	assert.Equal(t, fit.EventFailure, got[0].Kind)
	require.ErrorIs(t, got[0].Err, fit.ErrNoData)
	assert.Equal(t, "failure", got[0].Kind.String())
}

func TestAlgorithm(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]fit.Algorithm{
		"lm": fit.LevenbergMarquardt, "levenberg-marquardt": fit.LevenbergMarquardt, "0": fit.LevenbergMarquardt,
		"powell": fit.Powell, "1": fit.Powell,
	} {
		got, err := fit.ParseAlgorithm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := fit.ParseAlgorithm("simplex")
	require.ErrorIs(t, err, fit.ErrUnknownAlgorithm)

	b, err := json.Marshal(fit.DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, string(b), `"algorithm":"levenberg-marquardt"`)
}
