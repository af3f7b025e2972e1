// SPDX-License-Identifier: MIT

package estimate

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/tubefit/trace"
	"github.com/katalvlaran/tubefit/tube"
)

const (
	cutoffQuantile = 0.1  // percentile of currents treated as near cutoff
	cutoffFraction = 0.02 // minimum cutoff threshold relative to the largest current
	noiseFraction  = 1e-3 // currents at or below this fraction of the largest are noise
	strongFraction = 0.2  // transfer-curve points at or above this fraction of the largest are extrapolated
)

const muMin, muMax = 1.0, 200.0

// levels returns the noise floor and the near-cutoff threshold of f's currents.
func levels(f tube.File) (noise, cutoff float64) {
	var totals []float64
	for _, s := range f.Series {
		for _, pt := range s.Points {
			if it := total(f.MeasurementType, pt); it > 0 {
				totals = append(totals, it)
			}
		}
	}
	if len(totals) == 0 {
		return math.Inf(1), 0
	}
	slices.Sort(totals)
	peak := floats.Max(totals)
	q := stat.Quantile(cutoffQuantile, stat.Empirical, totals, nil)

	return noiseFraction * peak, math.Max(q, cutoffFraction*peak)
}

// Mu estimates the amplification factor from the cutoff grid voltage.
//
//   - Triode measurements: in every series the strongest point still below the
//     cutoff threshold at negative grid voltage gives mu = −Ep/Vg.
//   - Pentode measurements hold Es fixed and rarely reach cutoff, so the
//     transfer curve of every group (see groups) is extrapolated instead:
//     I^(1/ex) is close to linear in Vg above cutoff, ex = DefaultEx, and its
//     zero crossing Vg0 over the strong points gives mu = −Es/Vg0.
//
// Estimates outside (1, 200) are discarded.
func Mu(in *tube.Initial, files []tube.File, tr *trace.Trace) error {
	if in.Has(tube.Mu) {
		return nil
	}

	var samples []float64
	for _, f := range files {
		m := f.MeasurementType
		if m.IsPentode() {
			samples = append(samples, extrapolatedMu(f)...)
			continue
		}
		noise, cutoff := levels(f)
		for _, s := range f.Series {
			best, found := 0.0, false
			var at tube.Point
			for _, pt := range s.Points {
				it := total(m, pt)
				if grid(f, pt) >= 0 || it <= noise || it > cutoff {
					continue
				}
				if !found || it > best {
					best, at, found = it, pt, true
				}
			}
			if !found {
				continue
			}
			if mu := -accel(m, at) / grid(f, at); mu > muMin && mu < muMax {
				samples = append(samples, mu)
			}
		}
	}
	settle(in, tr, tube.Mu, samples, DefaultMu)

	return nil
}

// extrapolatedMu returns one estimate per group of f whose strong points fix a
// transfer line with a negative zero crossing.
func extrapolatedMu(f tube.File) []float64 {
	m := f.MeasurementType
	var out []float64
	for _, pts := range groups(f) {
		var peak float64
		for _, pt := range pts {
			peak = math.Max(peak, total(m, pt))
		}
		var x, y, v []float64
		for _, pt := range pts {
			it := total(m, pt)
			if !(it > 0) || it < strongFraction*peak {
				continue
			}
			x = append(x, grid(f, pt))
			y = append(y, math.Pow(it, 1/DefaultEx))
			v = append(v, accel(m, pt))
		}
		b, slope, ok := fit(x, y)
		if !ok || slope <= 0 {
			continue
		}
		if vg0 := -b / slope; vg0 < 0 {
			if mu := stat.Mean(v, nil) / -vg0; mu > muMin && mu < muMax {
				out = append(out, mu)
			}
		}
	}

	return out
}
