// SPDX-License-Identifier: MIT

package estimate

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/tubefit/trace"
	"github.com/katalvlaran/tubefit/tube"
)

const (
	// MaxKvbPointsPerSeries bounds the inversions averaged in one series.
	MaxKvbPointsPerSeries = 5

	// MaxKvb bounds a plausible kvb (V²); larger inversions are discarded.
	MaxKvb = 10000.0
)

// Kvb inverts the Koren triode equation for kvb at high-voltage points: those
// conducting at negative grid voltage with Ep at least half the series'
// largest, taken from the highest plate voltage down:
//
//	z = ln(exp(kp·E1/Ep) − 1),  R = Vg/(z/kp − 1/mu),  kvb = R² − Ep²
//
// Inversions outside (0, MaxKvb] are discarded. Each series contributes the
// mean of at most MaxKvbPointsPerSeries values. Only triode measurements are
// used.
func Kvb(in *tube.Initial, files []tube.File, tr *trace.Trace) error {
	if err := in.Require(tube.Kvb, tube.Mu, tube.Ex, tube.Kg1, tube.Kp); err != nil {
		return err
	}
	mu, ex, kg1, kp := in.Value(tube.Mu), in.Value(tube.Ex), in.Value(tube.Kg1), in.Value(tube.Kp)

	var samples []float64
	for _, f := range files {
		if !f.MeasurementType.IsTriode() {
			continue
		}
		noise, _ := levels(f)
		for _, s := range f.Series {
			n := len(s.Points)
			if n == 0 {
				continue
			}
			high := s.Points[n-1].Ep / 2
			var local []float64
			for i := n - 1; i >= 0 && len(local) < MaxKvbPointsPerSeries; i-- {
				pt := s.Points[i]
				eg := grid(f, pt)
				if pt.Ep < high || eg >= 0 || pt.Ep <= 0 || pt.Ip <= noise {
					continue
				}
				if kvb, ok := invertKvb(pt.Ep, eg, plateE1(pt.Ip, ex, kg1), mu, kp); ok && kvb <= MaxKvb {
					local = append(local, kvb)
				}
			}
			if len(local) > 0 {
				samples = append(samples, stat.Mean(local, nil))
			}
		}
	}
	settle(in, tr, tube.Kvb, samples, DefaultKvb)

	return nil
}

func invertKvb(ep, eg, e1, mu, kp float64) (float64, bool) {
	a := kp * e1 / ep
	z := a
	if a <= 30 {
		z = math.Log(math.Expm1(a))
	}
	d := z/kp - 1/mu
	if d >= 0 {
		return 0, false
	}
	r := eg / d
	kvb := r*r - ep*ep

	return kvb, kvb > 0 && !math.IsInf(kvb, 0) && !math.IsNaN(kvb)
}
