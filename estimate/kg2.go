// SPDX-License-Identifier: MIT

package estimate

import (
	"math"

	"github.com/katalvlaran/tubefit/model"
	"github.com/katalvlaran/tubefit/trace"
	"github.com/katalvlaran/tubefit/tube"
)

// Kg2 estimates the screen sensitivity from pentode points with Ep ≥ Es, where
// the screen current is flat: kg2 = 1000·Ipk/Is with Ipk = E1^ex.
func Kg2(in *tube.Initial, files []tube.File, tr *trace.Trace) error {
	if err := in.Require(tube.Kg2, tube.Mu, tube.Ex, tube.Kp); err != nil {
		return err
	}
	mu, ex, kp := in.Value(tube.Mu), in.Value(tube.Ex), in.Value(tube.Kp)

	var samples []float64
	for _, f := range files {
		if !f.MeasurementType.HasScreenCurrent() {
			continue
		}
		for _, s := range f.Series {
			for _, pt := range s.Points {
				if pt.Ep < pt.Es || pt.Is <= 0 {
					continue
				}
				ipk := peakCurrent(grid(f, pt), pt.Es, mu, kp, ex)
				if kg2 := 1000 * ipk / pt.Is; ipk > 0 && !math.IsInf(kg2, 0) {
					samples = append(samples, kg2)
				}
			}
		}
	}
	settle(in, tr, tube.Kg2, samples, DefaultKg2)

	return nil
}

// peakCurrent is Ipk = E1^ex for the pentode E1.
func peakCurrent(eg, es, mu, kp, ex float64) float64 {
	e1 := model.PentodeE1(eg, es, mu, kp)
	if !(e1 > 0) {
		return 0
	}

	return math.Pow(e1, ex)
}
