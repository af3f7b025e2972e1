// Package tubefit fits vacuum-tube model parameters to measured plate and
// screen curves and produces SPICE-ready parameter sets with an RMSE.
//
// What is in the box?
//
//	• Models: Koren triode, Koren pentode, Derk and DerkE (secondary emission)
//	• Estimation: a staged heuristic pipeline from raw curves to a complete
//	  initial guess (mu, ex/kg1, kp, kvb, kg2, a, secondary emission)
//	• Optimizers: Levenberg–Marquardt and Powell with Brent line search
//	• Derivatives: finite-difference Jacobian/Hessian of order 1, 2 or 4
//	• Diagnostics: per-iteration trace with compressed export, Prometheus metrics
//
// Packages, leaf first:
//
//	matrix/      Vector and Dense primitives, LU solve, inverse
//	derivative/  finite-difference Jacobian and Hessian
//	lm/          Levenberg–Marquardt
//	powell/      Powell direction set, mnbrak bracket, Brent
//	tube/        measurement data model and the sparse Initial bag
//	model/       device models, residuals, reparameterization
//	estimate/    initial-value pipeline
//	trace/       diagnostics collector and export codecs
//	fit/         orchestration: Fit and Stream
//	metrics/     Prometheus collectors
//	config/      flag/env/file configuration
//	cmd/tubefit  command-line front end
//
// Control flow of one fit:
//
//	[]tube.File ──► estimate.Run ──► tube.Initial ──► lm / powell ──► fit.Result
//	                     │                                 │
//	                     └────────── trace.Trace ◄─────────┘
//
//	go install github.com/katalvlaran/tubefit/cmd/tubefit@latest
package tubefit
