// Package lm implements the Levenberg–Marquardt minimizer of ½‖R(x)‖² in the
// damped Gauss–Newton form described by Moré and Kelley.
//
// Outer iteration (while ‖g‖ > Tolerance·max(1, ‖g₀‖) and k < MaxIterations):
//
//	J  = ∂R/∂x (finite differences, recomputed every step)
//	g  = Jᵀ·R
//	Δ  = −(JᵀJ + v·I)⁻¹·g
//	ρ  = (F(xc) − F(xc+Δ)) / (−gᵀΔ/2)
//
// Trial acceptance (at most 50 attempts per outer step):
//
//	ρ < 0.1            reject, v ← max(2v, 0.001), re-solve
//	0.1 ≤ ρ < 0.25     accept, v ← 2v
//	ρ ≥ 0.25           accept; if ρ > 0.75 then v ← v/2 (v ← 0 below 0.001)
//
// An accepted step that lowers F by no more than StallTolerance·F ends the run
// with Converged and Stalled set: on noisy data the finite-difference gradient
// bottoms out above any fixed threshold while F stops moving.
//
// Running out of trial attempts returns ErrTrialStepRejected. Running out of
// outer iterations is not an error: Result.Converged is false and Result.X
// holds the best point.
package lm
