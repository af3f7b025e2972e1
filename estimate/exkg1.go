// SPDX-License-Identifier: MIT

package estimate

import (
	"math"

	"github.com/katalvlaran/tubefit/trace"
	"github.com/katalvlaran/tubefit/tube"
)

const exMin, exMax = 1.0, 2.0

// ExKg1 regresses ln(I) on ln(V/mu + Vg) per group (see groups). The slope is
// ex and the intercept gives kg1 = 1000·e^(−b). Only points at least as far
// above cutoff as the grid is below zero (V/mu + Vg ≥ −Vg) take part and
// groups need three of them. Slopes outside (1, 2) are discarded; with no
// qualifying group the defaults apply.
func ExKg1(in *tube.Initial, files []tube.File, tr *trace.Trace) error {
	if err := in.Require(tube.Ex, tube.Mu); err != nil {
		return err
	}
	mu := in.Value(tube.Mu)

	var exs, kg1s []float64
	for _, f := range files {
		m := f.MeasurementType
		noise, _ := levels(f)
		for _, pts := range groups(f) {
			var x, y []float64
			for _, pt := range pts {
				vg := grid(f, pt)
				v := accel(m, pt)/mu + vg
				it := total(m, pt)
				if v <= 0 || v < -vg || it <= noise {
					continue
				}
				x = append(x, math.Log(v))
				y = append(y, math.Log(it))
			}
			b, ex, ok := fit(x, y)
			if !ok || ex <= exMin || ex >= exMax {
				continue
			}
			exs = append(exs, ex)
			kg1s = append(kg1s, 1000*math.Exp(-b))
		}
	}
	settle(in, tr, tube.Ex, exs, DefaultEx)
	settle(in, tr, tube.Kg1, kg1s, DefaultKg1)

	return nil
}
