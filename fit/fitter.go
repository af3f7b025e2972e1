// SPDX-License-Identifier: MIT

package fit

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/katalvlaran/tubefit/estimate"
	"github.com/katalvlaran/tubefit/lm"
	"github.com/katalvlaran/tubefit/metrics"
	"github.com/katalvlaran/tubefit/model"
	"github.com/katalvlaran/tubefit/powell"
	"github.com/katalvlaran/tubefit/trace"
	"github.com/katalvlaran/tubefit/tube"
)

// Option configures a Fitter.
type Option func(*Fitter)

// WithLogger sets the logger; the default discards.
func WithLogger(l logr.Logger) Option {
	return func(f *Fitter) { f.log = l }
}

// WithRecorder records every finished fit in rec.
func WithRecorder(rec *metrics.Recorder) Option {
	return func(f *Fitter) { f.rec = rec }
}

// WithClock replaces time.Now for completion timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(f *Fitter) { f.now = now }
}

// Fitter runs fits. It holds no per-fit state and is safe for concurrent use.
type Fitter struct {
	log logr.Logger
	rec *metrics.Recorder
	now func() time.Time
}

// New returns a Fitter configured by opts.
func New(opts ...Option) *Fitter {
	f := &Fitter{log: logr.Discard(), now: time.Now}
	for _, o := range opts {
		o(f)
	}

	return f
}

// Request is one fit invocation.
type Request struct {
	// ID identifies the fit in logs and results; a UUID is generated when empty.
	ID string

	Model  model.Family
	Files  []tube.File
	Config Config

	// Initial pre-seeds parameters; the estimators only fill what is unset.
	Initial *tube.Initial
}

// Fit estimates initial parameters for req.Model, refines them with the
// configured optimizer and returns the fitted set.
//
// Implementation:
//   - Stage 1: keep the files that apply to the model; apply the global grid
//     offset to files without their own.
//   - Stage 2: run the estimation pipeline to a complete tube.Initial.
//   - Stage 3: parameters estimated as 0 stay fixed; the rest become unit
//     factors of the estimate and the optimizer minimizes over the factors.
//   - Stage 4: |reference × factor| is evaluated once more for the RMSE.
//
// Errors:
//   - ErrNoData when no point of an applicable file survives the dissipation cut.
//   - tube.ErrInsufficientParameters (wrapped) from the pipeline.
//   - ErrNotConverged (wrapped with the optimizer's cause).
//   - ctx.Err() when ctx ends before optimization starts.
func (f *Fitter) Fit(ctx context.Context, req Request) (*Result, error) {
	return f.run(ctx, req, nil)
}

func (f *Fitter) run(ctx context.Context, req Request, observe func(trace.Record)) (*Result, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	start := f.now()
	res, err := f.fit(ctx, req, observe)

	obs := metrics.Observation{
		Model:     req.Model.String(),
		Algorithm: req.Config.Algorithm.String(),
		Outcome:   outcome(err),
		Duration:  f.now().Sub(start),
	}
	if res != nil {
		obs.Iterations = res.Iterations
		obs.RMSE = res.Parameters.RMSE
	}
	f.rec.Observe(obs)

	return res, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrNotConverged):
		return metrics.OutcomeNotConverged
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCancelled
	default:
		return metrics.OutcomeEstimateError
	}
}

func (f *Fitter) fit(ctx context.Context, req Request, observe func(trace.Record)) (*Result, error) {
	cfg := req.Config
	if !slices.Contains(model.Families, req.Model) {
		return nil, fmt.Errorf("fit: %w: %s", model.ErrUnknownFamily, req.Model)
	}
	if cfg.Algorithm > Powell {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, uint8(cfg.Algorithm))
	}
	log := f.log.WithValues("id", req.ID, "model", req.Model.String())

	files := applicable(req.Files, req.Model, cfg.EgOffset)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, req.Model)
	}

	var tr *trace.Trace
	if cfg.Trace || observe != nil {
		tr = trace.New()
		tr.Observe(observe)
	}

	var in tube.Initial
	if req.Initial != nil {
		in = *req.Initial
	}
	opts := estimate.Options{SecondaryEmission: cfg.SecondaryEmission, Logger: log}
	if err := estimate.Run(ctx, req.Model, &in, files, opts, tr); err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ref, err := model.FromInitial(req.Model, &in)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	if model.Evaluate(files, ref, cfg.MaximumPlateDissipation).Count == 0 {
		return nil, fmt.Errorf("%w within %g W", ErrNoData, cfg.MaximumPlateDissipation)
	}

	reference := ref.Vector()
	free := model.FreeIndices(reference)
	log.V(1).Info("optimizing", "algorithm", cfg.Algorithm.String(), "free", len(free), "initial", in.String())
	tr.Logf("optimizing %d of %d parameters with %s", len(free), len(reference), cfg.Algorithm)

	o := objective{family: req.Model, files: files, limit: cfg.MaximumPlateDissipation}
	x, iterations, err := o.minimize(cfg, reference, free, tr)
	if err != nil {
		log.Info("fit failed", "error", err.Error(), "iterations", iterations)
		tr.Logf("fit failed: %v", err)

		return nil, err
	}

	final := o.params(model.Expand(reference, free, x))
	e := model.Evaluate(files, final, cfg.MaximumPlateDissipation)
	log.Info("fit complete", "rmse", e.RMSE, "iterations", iterations)
	tr.Logf("fit complete: rmse=%g after %d iterations", e.RMSE, iterations)

	res := &Result{
		ID:          req.ID,
		Fingerprint: Fingerprint(files),
		Parameters:  newFitted(final, e.RMSE, f.now()),
		Initial:     in.Map(),
		Iterations:  iterations,
	}
	if cfg.Trace {
		tr.Observe(nil)
		res.Trace = tr
	}

	return res, nil
}

// applicable returns shallow copies of the files that feed family, with the
// global grid offset applied where a file carries none.
func applicable(files []tube.File, family model.Family, egOffset float64) []tube.File {
	var out []tube.File
	for _, f := range files {
		if !model.Applies(family, f.MeasurementType) || f.PointCount() == 0 {
			continue
		}
		if f.EgOffset == 0 {
			f.EgOffset = egOffset
		}
		out = append(out, f)
	}

	return out
}

// objective evaluates a family's model over a fixed set of files.
type objective struct {
	family model.Family
	files  []tube.File
	limit  float64
}

// params builds the parameter set; the vector length always matches the
// family since it is expanded from the family's own reference.
func (o objective) params(v []float64) model.Parameters {
	p, _ := model.FromVector(o.family, v)

	return p
}

func (o objective) residuals(v []float64) []float64 {
	return model.Residuals(o.files, o.params(v), o.limit)
}

func (o objective) sse(v []float64) float64 {
	return model.Evaluate(o.files, o.params(v), o.limit).SSE
}

// minimize returns the optimal factor vector over the free parameters.
func (o objective) minimize(cfg Config, reference []float64, free []int, tr *trace.Trace) ([]float64, int, error) {
	if len(free) == 0 {
		return nil, 0, nil
	}
	x0 := model.Ones(len(free))

	switch cfg.Algorithm {
	case Powell:
		res := powell.Minimize(model.Reparameterize(reference, free, o.sse), x0, cfg.Powell, tr)
		if !res.Converged {
			return nil, res.Iterations, fmt.Errorf("%w after %d iterations: %w", ErrNotConverged, res.Iterations, res.Warn)
		}

		return res.X, res.Iterations, nil
	default:
		res, err := lm.Minimize(model.Reparameterize(reference, free, o.residuals), x0, cfg.LevenbergMarquardt, tr)
		switch {
		case errors.Is(err, lm.ErrTrialStepRejected):
			return nil, res.Iterations, fmt.Errorf("%w: %w", ErrNotConverged, err)
		case err != nil:
			return nil, 0, fmt.Errorf("fit: %w", err)
		case !res.Converged:
			return nil, res.Iterations, fmt.Errorf("%w after %d iterations (gradient norm %g)",
				ErrNotConverged, res.Iterations, res.GradientNorm)
		}

		return res.X, res.Iterations, nil
	}
}
