package model_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/tubefit/model"
	"github.com/katalvlaran/tubefit/tube"
)

var (
	triode  = model.KorenTriodeParams{Mu: 100, Ex: 1.4, Kg1: 1060, Kp: 600, Kvb: 300}
	pentode = model.KorenPentodeParams{Mu: 11, Ex: 1.35, Kg1: 650, Kp: 60, Kvb: 24, Kg2: 4200}
	derk    = model.DerkParams{
		Mu: 10.5, Ex: 1.35, Kg1: 680, Kp: 45, Kg2: 4500, A: 0.0003,
		AlphaS: 5.5, Beta: 0.08, S: 0.05, AlphaP: 0.2, Lambda: 10, V: 1.5, W: 5,
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

func TestRoundTrip_ZeroRMSE(t *testing.T) {
	t.Parallel()

	derkE := derk
	derkE.Exponential = true

	for _, tc := range []struct {
		name string
		p    model.Parameters
		m    tube.MeasurementType
		grid model.Grid
		rows int
	}{
		{"koren-triode", triode, tube.IP_VA_VG_VH, triodeGrid, 35},
		{"koren-pentode", pentode, tube.IPIS_VA_VG_VS_VH, pentodeGrid, 90},
		{"derk", derk, tube.IPIS_VA_VG_VS_VH, pentodeGrid, 90},
		{"derke", derkE, tube.IPIS_VA_VG_VS_VH, pentodeGrid, 90},
	} {
		t.Run(tc.name, func(t *testing.T) {
			files := []tube.File{model.Sample(tc.p, tc.m, tc.grid)}
			e := model.Evaluate(files, tc.p, 0)
			assert.Equal(t, tc.rows, e.Count)
			assert.InDelta(t, 0, e.RMSE, 1e-12)

			r := model.Residuals(files, tc.p, 0)
			assert.Len(t, r, e.Count)
		})
	}
}

func TestNamedErrorFunctions(t *testing.T) {
	t.Parallel()

	tf := []tube.File{model.Sample(triode, tube.IP_VA_VG_VH, triodeGrid)}
	assert.InDelta(t, 0, model.KorenTriodeError(tf, triode, 0).RMSE, 1e-12)

	pf := []tube.File{model.Sample(pentode, tube.IPIS_VA_VG_VS_VH, pentodeGrid)}
	assert.InDelta(t, 0, model.KorenPentodeError(pf, pentode, 0).RMSE, 1e-12)

	df := []tube.File{model.Sample(derk, tube.IPIS_VA_VG_VS_VH, pentodeGrid)}
	assert.InDelta(t, 0, model.DerkError(df, derk, 0).RMSE, 1e-12)
	assert.Greater(t, model.DerkEError(df, derk, 0).RMSE, 0.0, "different knee must not fit hyperbolic data")

	// a perturbed parameter set yields a positive error
	worse := triode
	worse.Mu = 80
	assert.Greater(t, model.KorenTriodeError(tf, worse, 0).RMSE, 0.01)
}

func TestEvaluate_DissipationCut(t *testing.T) {
	t.Parallel()

	files := []tube.File{{
		MeasurementType: tube.IP_VA_VG_VH,
		Series: []tube.Series{{Points: []tube.Point{
			{Ep: 100, Eg: -1, Ip: 5},  // 0.5 W
			{Ep: 300, Eg: 0, Ip: 10},  // 3 W
			{Ep: 250, Eg: -1, Ip: 20}, // 5 W
		}}},
	}}
	all := model.Evaluate(files, triode, 0)
	cut := model.Evaluate(files, triode, 1)
	assert.Equal(t, 3, all.Count)
	assert.Equal(t, 1, cut.Count)
	assert.Len(t, model.Residuals(files, triode, 1), 1)
}

func TestEvaluate_EgOffset(t *testing.T) {
	t.Parallel()

	f := model.Sample(triode, tube.IP_VA_VG_VH, triodeGrid)
	// shift the recorded grid voltages and compensate with the file offset
	for i := range f.Series {
		for j := range f.Series[i].Points {
			f.Series[i].Points[j].Eg -= 0.3
		}
	}
	f.EgOffset = 0.3
	assert.InDelta(t, 0, model.Evaluate([]tube.File{f}, triode, 0).RMSE, 1e-9)
}

func TestEvaluate_NonFiniteSentinel(t *testing.T) {
	t.Parallel()

	files := []tube.File{model.Sample(triode, tube.IP_VA_VG_VH, triodeGrid)}
	bad := triode
	bad.Kg1 = 0

	e := model.Evaluate(files, bad, 0)
	assert.Equal(t, model.SentinelError, e.SSE)
	for _, r := range model.Residuals(files, bad, 0) {
		require.False(t, math.IsInf(r, 0) || math.IsNaN(r))
	}
}

func TestModels_ClampNegativeE1(t *testing.T) {
	t.Parallel()

	// deep cutoff: E1 underflows, current is exactly zero and never NaN
	ip := model.KorenTriodeCurrent(10, -500, triode)
	assert.Zero(t, ip)

	ip, is := model.KorenPentodeCurrents(100, -200, 250, pentode)
	assert.False(t, math.IsNaN(ip) || math.IsNaN(is))
	assert.Zero(t, is)

	ia, is := model.DerkCurrents(100, -5, 0, derk)
	assert.Zero(t, ia)
	assert.Zero(t, is)
}

func TestDerk_SecondaryEmissionOff(t *testing.T) {
	t.Parallel()

	p := derk
	p.S = 0
	p.Lambda = 0
	assert.Zero(t, p.SecondaryEmission(100, -5, 250))
	ia, is := model.DerkCurrents(100, -5, 250, p)
	assert.False(t, math.IsNaN(ia) || math.IsNaN(is))
}

func TestReparameterize(t *testing.T) {
	t.Parallel()

	ref := []float64{2, 0, -3}
	free := model.FreeIndices(ref)
	require.Equal(t, []int{0, 2}, free)

	sum := func(p []float64) float64 { return p[0] + p[1] + p[2] }
	f := model.Reparameterize(ref, free, sum)
	assert.Equal(t, 5.0, f(model.Ones(2)), "unit factors reproduce |reference|")
	assert.Equal(t, []float64{4, 0, 3}, model.Expand(ref, free, []float64{-2, 1}))

	files := []tube.File{model.Sample(triode, tube.IP_VA_VG_VH, triodeGrid)}
	rv := model.Reparameterize(triode.Vector(), model.FreeIndices(triode.Vector()), func(p []float64) float64 {
		params, err := model.FromVector(model.KorenTriode, p)
		require.NoError(t, err)
		return model.Evaluate(files, params, 0).RMSE
	})
	assert.InDelta(t, 0, rv(model.Ones(5)), 1e-12)
}

func TestFamily(t *testing.T) {
	t.Parallel()

	for _, f := range model.Families {
		got, err := model.ParseFamily(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := model.ParseFamily("rydel")
	require.ErrorIs(t, err, model.ErrUnknownFamily)

	_, err = model.FromVector(model.KorenTriode, []float64{1, 2})
	require.ErrorIs(t, err, model.ErrVectorLength)

	var in tube.Initial
	in.SetIfUnset(tube.Mu, 100)
	_, err = model.FromInitial(model.KorenTriode, &in)
	require.ErrorIs(t, err, tube.ErrInsufficientParameters)

	for _, p := range model.KorenTriode.Params() {
		in.SetIfUnset(p, 1)
	}
	p, err := model.FromInitial(model.KorenTriode, &in)
	require.NoError(t, err)
	assert.Equal(t, model.KorenTriode, p.Family())
	assert.Len(t, model.Derk.Params(), len(derk.Vector()))
}
