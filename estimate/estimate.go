// SPDX-License-Identifier: MIT

package estimate

import (
	"context"
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/tubefit/model"
	"github.com/katalvlaran/tubefit/trace"
	"github.com/katalvlaran/tubefit/tube"
)

// Fallback values used when no measurement qualifies.
const (
	DefaultMu     = 50.0
	DefaultEx     = 1.3
	DefaultKg1    = 1000.0
	DefaultKp     = 10.0
	DefaultKvb    = 1000.0
	PentodeKvb    = 100.0
	DefaultKg2    = 1000.0
	DefaultA      = 0.001
	DefaultAlphaS = 1.0
	DefaultBeta   = 0.1
	DefaultAlphaP = 0.2
	DefaultLambda = 1.0
)

// Estimator fills one or more parameters of in from files.
type Estimator func(in *tube.Initial, files []tube.File, tr *trace.Trace) error

// Options tunes the pipeline.
type Options struct {
	// SecondaryEmission enables the secondary-emission stage of the Derk
	// families; when false s, αP, λ, v and w are forced to 0.
	SecondaryEmission bool

	// Logger receives stage progress at V(1).
	Logger logr.Logger
}

// Stage is a named pipeline step.
type Stage struct {
	Name string
	Run  Estimator
}

// Pipeline returns the ordered stages for family.
func Pipeline(family model.Family, opts Options) ([]Stage, error) {
	switch family {
	case model.KorenTriode:
		return []Stage{
			{"mu", Mu},
			{"ex/kg1", ExKg1},
			{"kp", Kp},
			{"kvb", Kvb},
		}, nil
	case model.KorenPentode:
		return []Stage{
			{"mu", Mu},
			{"ex/kg1", ExKg1},
			{"kp", Kp},
			{"kvb", Fixed(tube.Kvb, PentodeKvb)},
			{"kg2", Kg2},
		}, nil
	case model.Derk, model.DerkE:
		return []Stage{
			{"mu", Mu},
			{"ex/kg1", ExKg1},
			{"kp", Kp},
			{"kg2", Kg2},
			{"a", A},
			{"secondary emission", SecondaryEmission(SecondaryOptions{
				Enabled:     opts.SecondaryEmission,
				Exponential: family == model.DerkE,
			})},
		}, nil
	default:
		return nil, fmt.Errorf("estimate: %w: %s", model.ErrUnknownFamily, family)
	}
}

// Run sorts the series by their swept axis and executes the pipeline of family.
// ctx is checked between stages.
func Run(ctx context.Context, family model.Family, in *tube.Initial, files []tube.File, opts Options, tr *trace.Trace) error {
	stages, err := Pipeline(family, opts)
	if err != nil {
		return err
	}
	tube.SortSeries(files)

	log := opts.Logger
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.V(1).Info("estimating", "stage", s.Name)
		tr.Logf("estimating %s", s.Name)
		if err := s.Run(in, files, tr); err != nil {
			return fmt.Errorf("estimate %s: %w", s.Name, err)
		}
	}
	log.V(1).Info("initial parameters", "values", in.String())

	return nil
}

// Fixed returns an Estimator that sets p to v.
func Fixed(p tube.Param, v float64) Estimator {
	return func(in *tube.Initial, _ []tube.File, tr *trace.Trace) error {
		if in.SetIfUnset(p, v) {
			tr.AddEstimate(trace.Estimate{Param: p.String(), Average: v, Default: true})
		}

		return nil
	}
}

// settle stores the mean of samples for p, or def when there are none.
func settle(in *tube.Initial, tr *trace.Trace, p tube.Param, samples []float64, def float64) {
	e := trace.Estimate{Param: p.String(), Samples: samples, Average: def, Default: true}
	if len(samples) > 0 {
		e.Average = stat.Mean(samples, nil)
		e.Default = false
	}
	if in.SetIfUnset(p, e.Average) {
		tr.AddEstimate(e)
	}
}

// accel returns the accelerating voltage: the screen for pentode measurements,
// the plate otherwise.
func accel(m tube.MeasurementType, pt tube.Point) float64 {
	if m.IsPentode() {
		return pt.Es
	}

	return pt.Ep
}

// total returns the cathode current Ip (+ Is when recorded).
func total(m tube.MeasurementType, pt tube.Point) float64 {
	if m.HasScreenCurrent() {
		return pt.Ip + pt.Is
	}

	return pt.Ip
}

// grid returns the calibrated grid voltage of pt.
func grid(f tube.File, pt tube.Point) float64 {
	return pt.Eg + f.EgOffset
}

// groups returns the point sets across which the accelerating and grid
// voltages vary. Plate sweeps of pentodes hold both fixed per series, so their
// series collapse into one group of the highest-plate-voltage points.
func groups(f tube.File) [][]tube.Point {
	if f.MeasurementType.IsPentode() && f.MeasurementType.Swept() == tube.AxisEp {
		var g []tube.Point
		for _, s := range f.Series {
			if n := len(s.Points); n > 0 {
				g = append(g, s.Points[n-1])
			}
		}

		return [][]tube.Point{g}
	}
	out := make([][]tube.Point, 0, len(f.Series))
	for _, s := range f.Series {
		out = append(out, s.Points)
	}

	return out
}

// fit returns intercept and slope of y on x by least squares.
func fit(x, y []float64) (intercept, slope float64, ok bool) {
	if len(x) < 3 || floatsConstant(x) {
		return 0, 0, false
	}
	intercept, slope = stat.LinearRegression(x, y, nil, false)

	return intercept, slope, !math.IsNaN(slope) && !math.IsInf(slope, 0)
}

func floatsConstant(x []float64) bool {
	return floats.Min(x) == floats.Max(x)
}

// plateE1 inverts I = 1000·E1^ex/kg1 for E1.
func plateE1(i, ex, kg1 float64) float64 {
	if !(i > 0) {
		return 0
	}

	return math.Pow(i*kg1/1000, 1/ex)
}
