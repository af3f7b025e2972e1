// SPDX-License-Identifier: MIT

package model

import "math"

// KorenTriodeParams parameterizes the Koren triode equation.
type KorenTriodeParams struct {
	Mu  float64 `json:"mu"`
	Ex  float64 `json:"ex"`
	Kg1 float64 `json:"kg1"`
	Kp  float64 `json:"kp"`
	Kvb float64 `json:"kvb"`
}

// Family implements Parameters.
func (KorenTriodeParams) Family() Family { return KorenTriode }

// Vector implements Parameters.
func (p KorenTriodeParams) Vector() []float64 {
	return []float64{p.Mu, p.Ex, p.Kg1, p.Kp, p.Kvb}
}

// Currents implements Parameters.
func (p KorenTriodeParams) Currents(ep, eg, _ float64) (float64, float64) {
	return KorenTriodeCurrent(ep, eg, p), 0
}

// KorenPentodeParams parameterizes the Koren pentode equations.
type KorenPentodeParams struct {
	Mu  float64 `json:"mu"`
	Ex  float64 `json:"ex"`
	Kg1 float64 `json:"kg1"`
	Kp  float64 `json:"kp"`
	Kvb float64 `json:"kvb"`
	Kg2 float64 `json:"kg2"`
}

// Family implements Parameters.
func (KorenPentodeParams) Family() Family { return KorenPentode }

// Vector implements Parameters.
func (p KorenPentodeParams) Vector() []float64 {
	return []float64{p.Mu, p.Ex, p.Kg1, p.Kp, p.Kvb, p.Kg2}
}

// Currents implements Parameters.
func (p KorenPentodeParams) Currents(ep, eg, es float64) (float64, float64) {
	return KorenPentodeCurrents(ep, eg, es, p)
}

// Softplus returns ln(1+exp(z)) without overflow.
func Softplus(z float64) float64 {
	if z > 30 {
		return z
	}

	return math.Log1p(math.Exp(z))
}

// TriodeE1 is the Koren triode effective voltage.
func TriodeE1(ep, eg, mu, kp, kvb float64) float64 {
	return ep / kp * Softplus(kp*(1/mu+eg/math.Sqrt(kvb+ep*ep)))
}

// PentodeE1 is the Koren pentode effective voltage, driven by the screen.
func PentodeE1(eg, es, mu, kp float64) float64 {
	if es <= 0 {
		return 0
	}

	return es / kp * Softplus(kp*(1/mu+eg/es))
}

// pow returns base^ex for positive base and 0 otherwise.
func pow(base, ex float64) float64 {
	if !(base > 0) {
		return 0
	}

	return math.Pow(base, ex)
}

// KorenTriodeCurrent returns the plate current in mA.
func KorenTriodeCurrent(ep, eg float64, p KorenTriodeParams) float64 {
	e1 := TriodeE1(ep, eg, p.Mu, p.Kp, p.Kvb)

	return 1000 * pow(e1, p.Ex) / p.Kg1
}

// KorenPentodeCurrents returns the plate and screen currents in mA.
func KorenPentodeCurrents(ep, eg, es float64, p KorenPentodeParams) (ip, is float64) {
	e1 := PentodeE1(eg, es, p.Mu, p.Kp)
	ip = 1000 * pow(e1, p.Ex) / p.Kg1 * math.Atan(ep/p.Kvb)
	is = 1000 * pow(eg+es/p.Mu, p.Ex) / p.Kg2

	return ip, is
}
