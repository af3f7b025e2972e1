// Package trace records optional fit diagnostics: optimizer iterations,
// gradients, jacobians, estimator intermediate averages, feature points and
// free-text messages.
//
// A *Trace is owned by exactly one fit. Every method is nil-safe, so callers
// pass a nil *Trace to disable collection without branching:
//
//	var tr *trace.Trace // disabled
//	tr.Logf("ignored")  // no-op
//
// Export/Import serialize a trace as JSON behind a small header and an
// optional codec (none, zstd, s2, lz4).
package trace
