// SPDX-License-Identifier: MIT

package estimate

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/tubefit/trace"
	"github.com/katalvlaran/tubefit/tube"
)

// MaxSlopePairs is the number of highest-voltage adjacent pairs per series
// that contribute to the plate-current slope.
const MaxSlopePairs = 3

// A estimates the plate-voltage coefficient from the high-voltage slope of
// pentode plate curves: a = (dIa/dVa)·kg1/(1000·Ipk). Pair slopes are weighted
// by their voltage span.
func A(in *tube.Initial, files []tube.File, tr *trace.Trace) error {
	if err := in.Require(tube.A, tube.Mu, tube.Ex, tube.Kg1, tube.Kp); err != nil {
		return err
	}
	mu, ex, kg1, kp := in.Value(tube.Mu), in.Value(tube.Ex), in.Value(tube.Kg1), in.Value(tube.Kp)

	var samples []float64
	for _, f := range files {
		m := f.MeasurementType
		if !m.IsPentode() || m.Swept() != tube.AxisEp {
			continue
		}
		for _, s := range f.Series {
			n := len(s.Points)
			if n < 2 {
				continue
			}
			var slopes, spans []float64
			for i := n - 1; i >= 1 && len(slopes) < MaxSlopePairs; i-- {
				hi, lo := s.Points[i], s.Points[i-1]
				span := hi.Ep - lo.Ep
				if span <= 0 {
					continue
				}
				slopes = append(slopes, (hi.Ip-lo.Ip)/span)
				spans = append(spans, span)
			}
			if len(slopes) == 0 {
				continue
			}
			last := s.Points[n-1]
			ipk := peakCurrent(grid(f, last), last.Es, mu, kp, ex)
			if ipk <= 0 {
				continue
			}
			a := stat.Mean(slopes, spans) * kg1 / (1000 * ipk)
			if a > 0 && !math.IsInf(a, 0) {
				samples = append(samples, a)
			}
		}
	}
	settle(in, tr, tube.A, samples, DefaultA)

	return nil
}
