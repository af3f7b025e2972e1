// Package fit orchestrates a complete parameter fit: estimation of initial
// values, refinement by Levenberg–Marquardt or Powell over multiplicative
// factors, and packaging of the fitted set with its RMSE.
//
// Two entry points share one implementation:
//
//	res, err := fitter.Fit(ctx, req)    // synchronous
//	for ev := range fitter.Stream(ctx, req) {
//		// EventLog / EventTrace ... then EventSuccess or EventFailure
//	}
//
// A fit either returns a complete, non-negative parameter set or an error;
// partial results are never surfaced. Non-convergence of either optimizer is
// reported as ErrNotConverged.
package fit
