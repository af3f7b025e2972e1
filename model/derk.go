// SPDX-License-Identifier: MIT

package model

import "math"

// DerkParams parameterizes the Reefman pentode models. Exponential selects the
// DerkE knee exp(−(β·Va)^1.5) instead of 1/(1+β·Va).
type DerkParams struct {
	Exponential bool `json:"-"`

	Mu     float64 `json:"mu"`
	Ex     float64 `json:"ex"`
	Kg1    float64 `json:"kg1"`
	Kp     float64 `json:"kp"`
	Kg2    float64 `json:"kg2"`
	A      float64 `json:"a"`
	AlphaS float64 `json:"alphaS"`
	Beta   float64 `json:"beta"`
	S      float64 `json:"s"`
	AlphaP float64 `json:"alphaP"`
	Lambda float64 `json:"lambda"`
	V      float64 `json:"v"`
	W      float64 `json:"w"`
}

// Family implements Parameters.
func (p DerkParams) Family() Family {
	if p.Exponential {
		return DerkE
	}

	return Derk
}

// Vector implements Parameters.
func (p DerkParams) Vector() []float64 {
	return []float64{p.Mu, p.Ex, p.Kg1, p.Kp, p.Kg2, p.A,
		p.AlphaS, p.Beta, p.S, p.AlphaP, p.Lambda, p.V, p.W}
}

// Currents implements Parameters.
func (p DerkParams) Currents(ep, eg, es float64) (float64, float64) {
	return DerkCurrents(ep, eg, es, p)
}

// Knee returns the space-charge knee factor at plate voltage va.
func (p DerkParams) Knee(va float64) float64 {
	if p.Exponential {
		return math.Exp(-math.Pow(math.Max(p.Beta*va, 0), 1.5))
	}

	return 1 / (1 + p.Beta*va)
}

// SecondaryEmission returns Psec = s·Va·(1+tanh(−αP·(Va − Vc))) with the
// crossover voltage Vc = Es/λ − v·Eg − w. It is zero when s is zero.
func (p DerkParams) SecondaryEmission(va, eg, es float64) float64 {
	if p.S == 0 {
		return 0
	}

	return p.S * va * (1 + math.Tanh(-p.AlphaP*(va-Crossover(eg, es, p.Lambda, p.V, p.W))))
}

// Crossover is the plate voltage at which secondary emission peaks.
func Crossover(eg, es, lambda, v, w float64) float64 {
	return es/lambda - v*eg - w
}

// DerkCurrents returns the plate and screen currents in mA.
func DerkCurrents(ep, eg, es float64, p DerkParams) (ia, is float64) {
	ipk := pow(PentodeE1(eg, es, p.Mu, p.Kp), p.Ex)
	if ipk == 0 {
		return 0, 0
	}
	k := p.Knee(ep)
	psec := p.SecondaryEmission(ep, eg, es)

	ia = 1000 * ipk * (1/p.Kg1 - 1/p.Kg2 + p.A*ep/p.Kg1 - p.AlphaS*k/p.Kg2 - psec/p.Kg2)
	is = 1000 * ipk * (1 + p.AlphaS*k + psec) / p.Kg2

	return ia, is
}
