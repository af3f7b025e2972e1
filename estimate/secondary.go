// SPDX-License-Identifier: MIT

package estimate

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/tubefit/model"
	"github.com/katalvlaran/tubefit/powell"
	"github.com/katalvlaran/tubefit/trace"
	"github.com/katalvlaran/tubefit/tube"
)

// SecondaryOptions configures the secondary-emission stage.
type SecondaryOptions struct {
	// Enabled turns on feature detection; when false s, αP, λ, v and w are 0.
	Enabled bool

	// Exponential selects the DerkE knee for the αS/β sub-fit.
	Exponential bool

	// Powell configures the sub-fits; zero fields select the defaults.
	Powell powell.Config
}

// curve is a pentode plate sweep with screen current.
type curve struct {
	file, series int
	f            tube.File
	s            tube.Series
}

// crossing summarizes the secondary-emission features of one curve.
type crossing struct {
	curve    int
	es, eg   float64
	vc       float64 // plate voltage of the steepest post-peak decline
	width    float64 // Ep(max) − Ep(min); 0 when no minimum precedes the peak
	features []FeaturePoint
}

// SecondaryEmission returns the stage that estimates λ, v, w (crossover
// voltage), αS, β (knee) and s, αP (emission strength and sharpness).
//
// Implementation:
//   - Stage 1: per screen curve, FindFeaturePoints; the first LocalMaximum
//     marks emission, the next InflectionPoint (or the maximum itself) is the
//     crossover Vc and the preceding LocalMinimum gives the width.
//   - Stage 2: Powell sub-fit of Vc = Es/λ − v·Eg − w. λ (v) is only free when
//     Es (Eg) varies across curves.
//   - Stage 3: Powell sub-fit of r = Is·kg2/(1000·Ipk) − 1 against αS·k(Va),
//     least squares for Derk and log-linear for DerkE, away from the crossover
//     and over ratios of at least kneeFloor of the largest.
//   - Stage 4: αP = 2/width, s from the screen excess at the feature points.
func SecondaryEmission(opts SecondaryOptions) Estimator {
	return func(in *tube.Initial, files []tube.File, tr *trace.Trace) error {
		if err := in.Require(tube.AlphaS, tube.Mu, tube.Ex, tube.Kg1, tube.Kp, tube.Kg2); err != nil {
			return err
		}
		curves := screenCurves(files)

		var crossings []crossing
		if opts.Enabled {
			crossings = detect(curves, tr)
			fitCrossover(in, crossings, opts.Powell, tr)
		} else {
			for _, p := range []tube.Param{tube.S, tube.AlphaP, tube.Lambda, tube.V, tube.W} {
				Fixed(p, 0)(in, files, tr)
			}
		}

		fitKnee(in, curves, crossings, opts, tr)

		if opts.Enabled {
			var widths []float64
			for _, c := range crossings {
				if c.width > 0 {
					widths = append(widths, 2/c.width)
				}
			}
			settle(in, tr, tube.AlphaP, widths, DefaultAlphaP)
			settle(in, tr, tube.S, emissionStrength(in, curves, crossings, opts.Exponential), 0)
		}

		return nil
	}
}

func screenCurves(files []tube.File) []curve {
	var out []curve
	for i, f := range files {
		m := f.MeasurementType
		if !m.IsPentode() || m.Swept() != tube.AxisEp {
			continue
		}
		for j, s := range f.Series {
			out = append(out, curve{file: i, series: j, f: f, s: s})
		}
	}

	return out
}

func detect(curves []curve, tr *trace.Trace) []crossing {
	var out []crossing
	for ci, c := range curves {
		fps := FindFeaturePoints(c.s)
		for _, fp := range fps {
			tr.AddFeaturePoint(trace.FeaturePoint{
				File: c.file, Series: c.series, Index: fp.Index,
				Kind: fp.Kind.String(), Ep: fp.Ep, Is: fp.Is,
			})
		}

		peak := -1
		for k, fp := range fps {
			if fp.Kind == LocalMaximum {
				peak = k
				break
			}
		}
		if peak < 0 {
			continue
		}
		x := crossing{curve: ci, vc: fps[peak].Ep, features: []FeaturePoint{fps[peak]}}
		for _, fp := range fps[peak+1:] {
			if fp.Kind == InflectionPoint {
				x.vc = fp.Ep
				x.features = append(x.features, fp)
				break
			}
		}
		for k := peak - 1; k >= 0; k-- {
			if fps[k].Kind == LocalMinimum {
				x.width = fps[peak].Ep - fps[k].Ep
				break
			}
		}
		first := c.s.Points[0]
		x.es, x.eg = first.Es, grid(c.f, first)
		out = append(out, x)
	}

	return out
}

// fitCrossover estimates λ, v and w from the crossover voltages.
func fitCrossover(in *tube.Initial, xs []crossing, cfg powell.Config, tr *trace.Trace) {
	if len(xs) == 0 {
		settle(in, tr, tube.Lambda, nil, DefaultLambda)
		settle(in, tr, tube.V, nil, 0)
		settle(in, tr, tube.W, nil, 0)

		return
	}
	es := make([]float64, len(xs))
	eg := make([]float64, len(xs))
	vc := make([]float64, len(xs))
	for i, x := range xs {
		es[i], eg[i], vc[i] = x.es, x.eg, x.vc
	}
	lambdaFree := len(xs) > 1 && !floatsConstant(es)
	vFree := len(xs) > 1 && !floatsConstant(eg)

	// unpack maps the free vector onto (λ, v, w)
	unpack := func(x []float64) (lambda, v, w float64) {
		lambda, k := DefaultLambda, 0
		if lambdaFree {
			lambda, k = math.Abs(x[0]), 1
		}
		if vFree {
			v, k = x[k], k+1
		}

		return lambda, v, x[k]
	}
	obj := func(x []float64) float64 {
		lambda, v, w := unpack(x)
		var sse float64
		for i := range vc {
			d := vc[i] - model.Crossover(eg[i], es[i], lambda, v, w)
			sse += d * d
		}
		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			return model.SentinelError
		}

		return sse
	}

	var x0 []float64
	if lambdaFree {
		x0 = append(x0, DefaultLambda)
	}
	if vFree {
		x0 = append(x0, 0)
	}
	shift := make([]float64, len(xs))
	for i := range xs {
		shift[i] = es[i]/DefaultLambda - vc[i]
	}
	x0 = append(x0, stat.Mean(shift, nil))

	res := powell.Minimize(obj, x0, cfg, nil)
	if res.Warn != nil {
		tr.Logf("crossover sub-fit: %v", res.Warn)
	}
	lambda, v, w := unpack(res.X)
	if lambda == 0 {
		lambda = DefaultLambda
	}
	settle(in, tr, tube.Lambda, []float64{lambda}, DefaultLambda)
	settle(in, tr, tube.V, []float64{math.Abs(v)}, 0)
	settle(in, tr, tube.W, []float64{math.Abs(w)}, 0)
}

func knee(beta, va float64, exponential bool) float64 {
	return model.DerkParams{Beta: beta, Exponential: exponential}.Knee(va)
}

// kneeFloor is the smallest screen ratio, relative to the largest, that the
// knee sub-fit uses. Smaller ratios are dominated by the error of kg2.
const kneeFloor = 0.05

// significant keeps the (va, ratio) pairs with ratio ≥ kneeFloor·max(ratio).
func significant(va, ratio []float64) ([]float64, []float64) {
	if len(ratio) == 0 {
		return va, ratio
	}
	floor := kneeFloor * floats.Max(ratio)
	var kv, kr []float64
	for i, r := range ratio {
		if r >= floor {
			kv, kr = append(kv, va[i]), append(kr, r)
		}
	}

	return kv, kr
}

// fitKnee estimates αS and β from the screen-to-cathode ratio
// r = Is·kg2/(1000·Ipk) − 1 over the points where r is significant.
func fitKnee(in *tube.Initial, curves []curve, xs []crossing, opts SecondaryOptions, tr *trace.Trace) {
	mu, ex, kp, kg2 := in.Value(tube.Mu), in.Value(tube.Ex), in.Value(tube.Kp), in.Value(tube.Kg2)

	skip := make(map[int]float64, len(xs))
	for _, x := range xs {
		guard := 3 / DefaultAlphaP
		if x.width > 0 {
			guard = 1.5 * x.width
		}
		skip[x.curve] = x.vc + guard
	}

	var va, ratio []float64
	for ci, c := range curves {
		below, hasSkip := skip[ci]
		for _, pt := range c.s.Points {
			if pt.Ep <= 0 || pt.Is <= 0 || (hasSkip && pt.Ep <= below) {
				continue
			}
			ipk := peakCurrent(grid(c.f, pt), pt.Es, mu, kp, ex)
			if ipk <= 0 {
				continue
			}
			if r := pt.Is*kg2/(1000*ipk) - 1; r > 0 {
				va, ratio = append(va, pt.Ep), append(ratio, r)
			}
		}
	}
	va, ratio = significant(va, ratio)
	if len(va) < 2 {
		settle(in, tr, tube.AlphaS, nil, DefaultAlphaS)
		settle(in, tr, tube.Beta, nil, DefaultBeta)

		return
	}

	obj := func(x []float64) float64 {
		alphaS, beta := math.Abs(x[0]), math.Abs(x[1])
		var sse float64
		for i := range va {
			k := knee(beta, va[i], opts.Exponential)
			var d float64
			if opts.Exponential {
				d = math.Log(ratio[i]) - math.Log(alphaS*k)
			} else {
				d = ratio[i] - alphaS*k
			}
			sse += d * d
		}
		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			return model.SentinelError
		}

		return sse
	}
	res := powell.Minimize(obj, []float64{floats.Max(ratio), DefaultBeta}, opts.Powell, nil)
	if res.Warn != nil {
		tr.Logf("knee sub-fit: %v", res.Warn)
	}
	alphaS, beta := math.Abs(res.X[0]), math.Abs(res.X[1])
	if !(alphaS > 0) || math.IsInf(alphaS, 0) || !(beta > 0) || math.IsInf(beta, 0) {
		settle(in, tr, tube.AlphaS, nil, DefaultAlphaS)
		settle(in, tr, tube.Beta, nil, DefaultBeta)

		return
	}
	settle(in, tr, tube.AlphaS, []float64{alphaS}, DefaultAlphaS)
	settle(in, tr, tube.Beta, []float64{beta}, DefaultBeta)
}

// emissionStrength solves Psec = s·Va·(1+tanh(−αP(Va−Vc))) for s at every
// feature point, where Psec is the screen excess over the knee model.
func emissionStrength(in *tube.Initial, curves []curve, xs []crossing, exponential bool) []float64 {
	mu, ex, kp, kg2 := in.Value(tube.Mu), in.Value(tube.Ex), in.Value(tube.Kp), in.Value(tube.Kg2)
	alphaS, beta, alphaP := in.Value(tube.AlphaS), in.Value(tube.Beta), in.Value(tube.AlphaP)
	lambda, v, w := in.Value(tube.Lambda), in.Value(tube.V), in.Value(tube.W)

	var out []float64
	for _, x := range xs {
		c := curves[x.curve]
		for _, fp := range x.features {
			pt := c.s.Points[fp.Index]
			eg := grid(c.f, pt)
			ipk := peakCurrent(eg, pt.Es, mu, kp, ex)
			if ipk <= 0 {
				continue
			}
			excess := pt.Is*kg2/(1000*ipk) - 1 - alphaS*knee(beta, pt.Ep, exponential)
			shape := pt.Ep * (1 + math.Tanh(-alphaP*(pt.Ep-model.Crossover(eg, pt.Es, lambda, v, w))))
			if shape <= 0 {
				continue
			}
			if s := excess / shape; s > 0 && !math.IsInf(s, 0) {
				out = append(out, s)
			}
		}
	}

	return out
}
