// Package estimate derives initial parameter guesses from classified
// measurements before the optimizer refines them.
//
// The pipeline is a strict dependency chain. Every stage has the Estimator
// form and only fills parameters that are still unset in the tube.Initial:
//
//	Mu                 near-cutoff points, mu = −V/Vg           default 50
//	ExKg1              ln(I) vs ln(V/mu + Vg) regression         defaults 1.3, 1000
//	Kp                 ln(E1/V) vs (1/mu + Vg/V) regression      default 10
//	Kvb                closed-form inversion (triodes only)      default 1000
//	Kg2                1000·Ipk/Is at high plate voltage         default 1000
//	A                  plate-current slope at high voltage       default 0.001
//	SecondaryEmission  feature points + Powell sub-fits          λ, v, w, αS, β, s, αP
//
// V is the accelerating voltage: the plate for triodes, the screen for
// pentodes. A missing prerequisite returns tube.ErrInsufficientParameters.
// Data that does not qualify is not an error: the stage records its default.
package estimate
