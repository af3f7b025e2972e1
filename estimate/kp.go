// SPDX-License-Identifier: MIT

package estimate

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/tubefit/model"
	"github.com/katalvlaran/tubefit/powell"
	"github.com/katalvlaran/tubefit/trace"
	"github.com/katalvlaran/tubefit/tube"
)

const kpMin, kpMax = 0.5, 1000.0

// Kp estimates the knee sharpness by regressing ln(E1/V) on u = 1/mu + Vg/V at
// the high-voltage points of every group, those with V at least half the
// group's largest. E1 comes from inverting the current with ex and kg1, and
// the Koren relation
//
//	ln(E1/V) = ln(ln(1+exp(kp·u))/kp) + c
//
// is fitted by a Brent search over ln kp; c absorbs the bias of the kg1
// estimate and is eliminated in closed form.
//
// When that search fails or leaves (0.5, 1000), the group falls back to the
// cutoff tail: for u < 0, ln(E1/V) ≈ kp·u − ln kp and the slope of a linear
// regression over all conducting points is kp.
func Kp(in *tube.Initial, files []tube.File, tr *trace.Trace) error {
	if err := in.Require(tube.Kp, tube.Mu, tube.Ex, tube.Kg1); err != nil {
		return err
	}
	mu, ex, kg1 := in.Value(tube.Mu), in.Value(tube.Ex), in.Value(tube.Kg1)

	var samples []float64
	for _, f := range files {
		m := f.MeasurementType
		noise, _ := levels(f)
		for _, pts := range groups(f) {
			var top float64
			for _, pt := range pts {
				if total(m, pt) > noise {
					top = math.Max(top, accel(m, pt))
				}
			}
			var hu, hy, cu, cy []float64
			for _, pt := range pts {
				v, it := accel(m, pt), total(m, pt)
				if v <= 0 || it <= noise {
					continue
				}
				u := 1/mu + grid(f, pt)/v
				y := math.Log(plateE1(it, ex, kg1) / v)
				if v >= top/2 {
					hu, hy = append(hu, u), append(hy, y)
				}
				if u < 0 {
					cu, cy = append(cu, u), append(cy, y)
				}
			}
			if kp, ok := softplusKp(hu, hy); ok {
				samples = append(samples, kp)
				continue
			}
			if _, kp, ok := fit(cu, cy); ok && kp > kpMin && kp < kpMax {
				samples = append(samples, kp)
			}
		}
	}
	settle(in, tr, tube.Kp, samples, DefaultKp)

	return nil
}

// softplusKp minimizes Σ(y − ln(ln(1+exp(kp·u))/kp) − c)² over ln kp, with c
// the mean residual.
func softplusKp(us, ys []float64) (float64, bool) {
	if len(us) < 3 {
		return 0, false
	}
	res := make([]float64, len(us))
	obj := func(t float64) float64 {
		kp := math.Exp(t)
		for i, u := range us {
			res[i] = ys[i] - math.Log(model.Softplus(kp*u)/kp)
		}
		c := stat.Mean(res, nil)
		var sse float64
		for _, r := range res {
			sse += (r - c) * (r - c)
		}
		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			return math.MaxFloat64
		}

		return sse
	}
	tri, err := powell.Bracket(obj, 0, math.Log(DefaultKp))
	if err != nil {
		return 0, false
	}
	t, _, err := powell.Brent(obj, tri, 0)
	if err != nil {
		return 0, false
	}
	kp := math.Exp(t)

	return kp, kp > kpMin && kp < kpMax
}
