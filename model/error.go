// SPDX-License-Identifier: MIT

package model

import (
	"math"

	"github.com/katalvlaran/tubefit/tube"
)

const (
	// SentinelError replaces a non-finite sum of squared residuals.
	SentinelError = math.MaxFloat64 / 2

	// SentinelResidual replaces a non-finite residual component. Its square
	// stays finite for any realistic number of points.
	SentinelResidual = 1e150
)

// Error summarizes the fit quality over a set of files.
type Error struct {
	SSE   float64 // sum of squared residuals (mA²)
	RMSE  float64 // √(SSE/Count)
	Count int     // residual components that contributed
}

// Applies reports whether files of measurement type m feed family f.
func Applies(f Family, m tube.MeasurementType) bool {
	if f.IsPentode() {
		return m.IsPentode()
	}

	return m.IsTriode()
}

// withinDissipation reports whether the measured plate dissipation of pt is
// inside the limit (W). A non-positive limit disables the cut.
func withinDissipation(pt tube.Point, limit float64) bool {
	return limit <= 0 || pt.Ep*pt.Ip/1000 <= limit
}

// walk calls visit with the modeled and measured currents of every point that
// contributes to the error of p. screen is true when Is is compared too.
func walk(files []tube.File, p Parameters, limit float64, visit func(ip, is float64, pt tube.Point, screen bool)) {
	f := p.Family()
	for _, file := range files {
		if !Applies(f, file.MeasurementType) {
			continue
		}
		screen := f.IsPentode() && file.MeasurementType.HasScreenCurrent()
		for _, s := range file.Series {
			for _, pt := range s.Points {
				if !withinDissipation(pt, limit) {
					continue
				}
				ip, is := p.Currents(pt.Ep, pt.Eg+file.EgOffset, pt.Es)
				visit(ip, is, pt, screen)
			}
		}
	}
}

// Residuals returns modeled − measured currents for every contributing point:
// the plate residual, then the screen residual where applicable. Non-finite
// components become SentinelResidual. The length depends only on the data and
// the limit, never on p.
func Residuals(files []tube.File, p Parameters, maximumPlateDissipation float64) []float64 {
	var out []float64
	walk(files, p, maximumPlateDissipation, func(ip, is float64, pt tube.Point, screen bool) {
		out = append(out, finite(ip-pt.Ip))
		if screen {
			out = append(out, finite(is-pt.Is))
		}
	})

	return out
}

func finite(r float64) float64 {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return SentinelResidual
	}

	return r
}

// Evaluate returns the SSE/RMSE of p over files.
func Evaluate(files []tube.File, p Parameters, maximumPlateDissipation float64) Error {
	var e Error
	walk(files, p, maximumPlateDissipation, func(ip, is float64, pt tube.Point, screen bool) {
		d := ip - pt.Ip
		e.SSE += d * d
		e.Count++
		if screen {
			d = is - pt.Is
			e.SSE += d * d
			e.Count++
		}
	})
	if math.IsNaN(e.SSE) || math.IsInf(e.SSE, 0) {
		return Error{SSE: SentinelError, RMSE: SentinelError, Count: e.Count}
	}
	if e.Count > 0 {
		e.RMSE = math.Sqrt(e.SSE / float64(e.Count))
	}

	return e
}

// KorenTriodeError evaluates the Koren triode model over files.
func KorenTriodeError(files []tube.File, p KorenTriodeParams, maximumPlateDissipation float64) Error {
	return Evaluate(files, p, maximumPlateDissipation)
}

// KorenPentodeError evaluates the Koren pentode model over files.
func KorenPentodeError(files []tube.File, p KorenPentodeParams, maximumPlateDissipation float64) Error {
	return Evaluate(files, p, maximumPlateDissipation)
}

// DerkError evaluates the Derk model (hyperbolic knee) over files.
func DerkError(files []tube.File, p DerkParams, maximumPlateDissipation float64) Error {
	p.Exponential = false

	return Evaluate(files, p, maximumPlateDissipation)
}

// DerkEError evaluates the DerkE model (exponential knee) over files.
func DerkEError(files []tube.File, p DerkParams, maximumPlateDissipation float64) Error {
	p.Exponential = true

	return Evaluate(files, p, maximumPlateDissipation)
}
