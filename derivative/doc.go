// Package derivative computes Jacobians and Hessians of vector-valued functions
// by finite differences.
//
// What & Why:
//
//	The optimizers in this module never receive analytic derivatives: the device
//	models are cheap to evaluate but awkward to differentiate symbolically once
//	wrapped in reparameterization and dissipation cuts. This package supplies
//	the classical difference formulas with literature step sizes.
//
// Formulas (h = step·max(1,|x_j|)):
//
//	Order 1 (forward):  (f(x+h) − f(x)) / h
//	Order 2 (central):  (f(x+h) − f(x−h)) / 2h
//	Order 4 (central):  (−f(x+2h) + 8f(x+h) − 8f(x−h) + f(x−2h)) / 12h
//
// Default steps follow the classical table (ε = machine epsilon):
//
//	order | first derivative | second derivative
//	  1   |      ε^(1/2)     |     ε^(1/3)
//	  2   |      ε^(1/3)     |     ε^(1/4)
//	  4   |      ε^(1/4)     |     ε^(1/6)
//
// Rotated axes:
//
//	Options.Q (n×n, Q·Qᵀ = I) makes column j of the result the directional
//	derivative along column j of Q, i.e. J·Q.
//
// Hessian:
//
//	The first-derivative operator is applied to the flattened Jacobian function
//	(a second nested pass with the second-derivative step). The cost is roughly
//	n² evaluations of the Jacobian per call, acceptable for ≤ 20 parameters.
//
// Everything here is pure: f and x are never retained or mutated.
package derivative
