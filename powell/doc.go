// Package powell implements Powell's derivative-free direction-set minimizer
// with a golden-section/parabolic bracket (Bracket) and Brent's line search.
//
// Minimize never panics and never returns an error: a run that cannot finish
// reports Converged=false together with the cause in Result.Warn
// (ErrBracketDiverged, ErrBrentIterations or ErrMaxIterations, all matchable
// with errors.Is).
package powell
