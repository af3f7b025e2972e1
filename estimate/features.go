// SPDX-License-Identifier: MIT

package estimate

import (
	"fmt"
	"math"

	"github.com/katalvlaran/tubefit/tube"
)

// FeatureEpsilon is the smallest slope or curvature treated as non-zero.
const FeatureEpsilon = 1e-6

// FeatureKind classifies a point of a screen-current curve.
type FeatureKind uint8

const (
	LocalMinimum FeatureKind = iota
	LocalMaximum
	InflectionPoint
)

// String returns the human-readable kind.
func (k FeatureKind) String() string {
	switch k {
	case LocalMinimum:
		return "Local Minimum"
	case LocalMaximum:
		return "Local Maximum"
	case InflectionPoint:
		return "Inflection Point"
	default:
		return fmt.Sprintf("FeatureKind(%d)", uint8(k))
	}
}

// FeaturePoint is a classified interior point of a series.
type FeaturePoint struct {
	Index int // position in Series.Points
	Kind  FeatureKind
	Ep    float64
	Is    float64
}

// FindFeaturePoints classifies the interior points of s (sorted ascending by
// Ep) on the screen current Is versus Ep:
//
//	LocalMinimum     slope changes from < −ε to > ε
//	LocalMaximum     slope changes from > ε to < −ε
//	InflectionPoint  second difference changes sign (|·| > ε on both sides)
//
// Points closer than ε in slope are treated as flat and never classified.
// Inflection points are only reported on curves that also have an extremum,
// so a monotonic series yields none.
func FindFeaturePoints(s tube.Series) []FeaturePoint {
	pts := s.Points
	n := len(pts)
	if n < 3 {
		return nil
	}

	// slope[i] is the forward difference between points i and i+1
	slope := make([]float64, n-1)
	valid := make([]bool, n-1)
	for i := 0; i < n-1; i++ {
		if d := pts[i+1].Ep - pts[i].Ep; d > 0 {
			slope[i] = (pts[i+1].Is - pts[i].Is) / d
			valid[i] = true
		}
	}

	var out []FeaturePoint
	var prevCurv float64
	hasPrev, extremum := false, false
	for i := 1; i < n-1; i++ {
		if !valid[i-1] || !valid[i] {
			hasPrev = false
			continue
		}
		left, right := slope[i-1], slope[i]
		curv := (right - left) / (0.5 * (pts[i+1].Ep - pts[i-1].Ep))
		fp := FeaturePoint{Index: i, Ep: pts[i].Ep, Is: pts[i].Is}

		switch {
		case left < -FeatureEpsilon && right > FeatureEpsilon:
			fp.Kind = LocalMinimum
			out = append(out, fp)
			extremum = true
		case left > FeatureEpsilon && right < -FeatureEpsilon:
			fp.Kind = LocalMaximum
			out = append(out, fp)
			extremum = true
		case hasPrev && math.Abs(prevCurv) > FeatureEpsilon && math.Abs(curv) > FeatureEpsilon && prevCurv*curv < 0:
			fp.Kind = InflectionPoint
			out = append(out, fp)
		}
		prevCurv, hasPrev = curv, true
	}
	if !extremum {
		return nil
	}

	return out
}
