// SPDX-License-Identifier: MIT

package lm

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/katalvlaran/tubefit/derivative"
	"github.com/katalvlaran/tubefit/matrix"
	"github.com/katalvlaran/tubefit/trace"
)

// Algorithm is the name recorded in trace iterations.
const Algorithm = "levenberg-marquardt"

// Defaults.
const (
	DefaultTolerance      = 1e-8
	DefaultStallTolerance = 1e-10
	DefaultMaxIterations  = 500

	// MaxTrialIterations bounds the trial-acceptance loop of one outer step.
	MaxTrialIterations = 50

	ratioReject = 0.1
	ratioLow    = 0.25
	ratioHigh   = 0.75
	dampingUp   = 2.0
	dampingDown = 0.5
	dampingMin  = 0.001
)

var (
	// ErrEmptyStart is returned for a zero-length starting point.
	ErrEmptyStart = errors.New("lm: empty starting point")

	// ErrBadConfig is returned for a negative tolerance, damping or iteration cap.
	ErrBadConfig = errors.New("lm: invalid configuration")

	// ErrTrialStepRejected is returned when no trial step is accepted within
	// MaxTrialIterations attempts.
	ErrTrialStepRejected = errors.New("lm: trial step not accepted")

	// ErrNonFiniteStart is returned when R(x0) contains NaN or ±Inf.
	ErrNonFiniteStart = errors.New("lm: residual at starting point is not finite")
)

// ResidualFunc returns the residual vector R(x). Its length must not depend on x.
type ResidualFunc func(x []float64) []float64

// Config holds the solver settings. Zero fields select the defaults.
//
// Tolerance is relative: the run converges once ‖g‖ ≤ Tolerance·max(1, ‖g₀‖).
// StallTolerance ends the run as converged when an accepted step lowers F by
// no more than StallTolerance·F, i.e. F is stationary to working precision.
type Config struct {
	Tolerance      float64 `mapstructure:"tolerance" json:"tolerance"`           // gradient-norm threshold, relative to ‖g₀‖
	StallTolerance float64 `mapstructure:"stallTolerance" json:"stallTolerance"` // relative decrease of F
	MaxIterations  int     `mapstructure:"maxIterations" json:"maxIterations"`   // kmax
	InitialDamping float64 `mapstructure:"initialDamping" json:"initialDamping"` // 0 selects ‖g₀‖
	Order          int     `mapstructure:"order" json:"order"`                   // difference order of the Jacobian
}

// DefaultConfig returns tolerance 1e-8, stall tolerance 1e-10, kmax 500,
// damping ‖g₀‖ and central differences.
func DefaultConfig() Config {
	return Config{
		Tolerance:      DefaultTolerance,
		StallTolerance: DefaultStallTolerance,
		MaxIterations:  DefaultMaxIterations,
		Order:          derivative.DefaultOrder,
	}
}

func (c Config) withDefaults() (Config, error) {
	if c.Tolerance < 0 || c.StallTolerance < 0 || c.InitialDamping < 0 || c.MaxIterations < 0 ||
		math.IsNaN(c.Tolerance) || math.IsNaN(c.StallTolerance) || math.IsNaN(c.InitialDamping) {
		return c, ErrBadConfig
	}
	if c.Tolerance == 0 {
		c.Tolerance = DefaultTolerance
	}
	if c.StallTolerance == 0 {
		c.StallTolerance = DefaultStallTolerance
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.Order == 0 {
		c.Order = derivative.DefaultOrder
	}

	return c, nil
}

// Result reports the final state of a run.
type Result struct {
	X            []float64 // best point found
	Fx           float64   // ½‖R(X)‖²
	GradientNorm float64   // ‖Jᵀ·R‖ at X
	Iterations   int       // accepted outer steps
	Converged    bool      // ‖g‖ within tolerance or F stalled
	Stalled      bool      // converged on the stall criterion
}

// state is the linearization at the current point.
type state struct {
	x []float64
	r *matrix.Vector
	f float64
	j *matrix.Dense
	g *matrix.Vector
}

// Minimize runs Levenberg–Marquardt on r from x0.
//
// Implementation:
//   - Stage 1: evaluate R, F, J and g at x0; pick the initial damping.
//   - Stage 2: outer loop; each step runs the trial-acceptance loop and
//     re-linearizes at the accepted point. A step that lowers F by at most
//     StallTolerance·F ends the loop.
//   - Stage 3: report convergence from the final gradient norm, scaled by
//     max(1, ‖g₀‖), or from the stall.
//
// Errors:
//   - ErrEmptyStart, ErrBadConfig, ErrNonFiniteStart.
//   - ErrTrialStepRejected when the inner loop gives up.
//   - derivative errors (wrapped) when the Jacobian cannot be formed.
//
// Complexity:
//   - per outer step: one Jacobian (≈2n residual calls) plus one n×n solve per trial.
func Minimize(r ResidualFunc, x0 []float64, cfg Config, tr *trace.Trace) (Result, error) {
	if len(x0) == 0 {
		return Result{}, ErrEmptyStart
	}
	cfg, err := cfg.withDefaults()
	if err != nil {
		return Result{}, err
	}
	opts := derivative.Options{Order: cfg.Order}

	cur, err := linearize(r, slices.Clone(x0), opts, tr)
	if err != nil {
		return Result{}, err
	}
	if !cur.r.IsFinite() {
		return Result{}, ErrNonFiniteStart
	}

	g0 := cur.g.Norm()
	v := cfg.InitialDamping
	if v == 0 {
		v = g0
	}
	tol := cfg.Tolerance * math.Max(1, g0)

	k := 0
	for gn := g0; gn > tol && k < cfg.MaxIterations; gn = cur.g.Norm() {
		if math.IsNaN(gn) || math.IsInf(gn, 0) {
			break
		}
		k++
		xt, nv, err := trial(r, cur, v)
		if err != nil {
			return result(cur, k-1, tol), fmt.Errorf("lm: iteration %d: %w", k, err)
		}
		v = nv
		prev := cur.f
		if cur, err = linearize(r, xt, opts, tr); err != nil {
			return Result{}, err
		}
		tr.AddIteration(trace.Iteration{
			Algorithm:    Algorithm,
			Iteration:    k,
			X:            cur.x,
			Fx:           cur.f,
			GradientNorm: cur.g.Norm(),
			Damping:      v,
		})
		if prev-cur.f <= cfg.StallTolerance*cur.f {
			res := result(cur, k, tol)
			res.Converged, res.Stalled = true, true
			tr.Logf("lm: F stalled at %g after %d iterations", cur.f, k)

			return res, nil
		}
	}

	return result(cur, k, tol), nil
}

func result(s *state, k int, tol float64) Result {
	gn := s.g.Norm()

	return Result{
		X:            slices.Clone(s.x),
		Fx:           s.f,
		GradientNorm: gn,
		Iterations:   k,
		Converged:    !math.IsNaN(gn) && !math.IsInf(gn, 0) && gn <= tol,
	}
}

// linearize evaluates R, F, J and g at x.
func linearize(r ResidualFunc, x []float64, opts derivative.Options, tr *trace.Trace) (*state, error) {
	res, err := matrix.VectorFrom(r(x))
	if err != nil {
		return nil, fmt.Errorf("lm: residual: %w", err)
	}
	jac, err := derivative.Jacobian(derivative.Func(r), x, opts)
	if err != nil {
		return nil, fmt.Errorf("lm: jacobian: %w", err)
	}
	g, err := matrix.MatTVec(jac, res)
	if err != nil {
		return nil, fmt.Errorf("lm: gradient: %w", err)
	}
	tr.AddJacobian(jac.Rows2D())
	tr.AddGradient(g.Slice())

	return &state{x: x, r: res, f: half(res), j: jac, g: g}, nil
}

func half(r *matrix.Vector) float64 {
	n := r.Norm()

	return 0.5 * n * n
}

// trial runs the acceptance loop and returns the accepted point with the updated damping.
func trial(r ResidualFunc, cur *state, v float64) ([]float64, float64, error) {
	jtj, err := matrix.Gram(cur.j)
	if err != nil {
		return nil, v, err
	}
	negG := cur.g.Scale(-1)

	for it := 0; it < MaxTrialIterations; it++ {
		xt, ft, pred, ok := step(r, cur, jtj, negG, v)
		if ok && pred > 0 {
			rho := (cur.f - ft) / pred
			switch {
			case rho < ratioReject:
				// fall through to reject
			case rho < ratioLow:
				return xt, v * dampingUp, nil
			default:
				if rho > ratioHigh {
					v *= dampingDown
					if v < dampingMin {
						v = 0
					}
				}

				return xt, v, nil
			}
		}
		v = math.Max(v*dampingUp, dampingMin)
	}

	return nil, v, ErrTrialStepRejected
}

// step solves (JᵀJ + vI)Δ = −g and evaluates the trial point.
// ok is false when the system is singular or F(xt) is not finite.
func step(r ResidualFunc, cur *state, jtj *matrix.Dense, negG *matrix.Vector, v float64) (xt []float64, ft, pred float64, ok bool) {
	a, err := matrix.AddDiagonal(jtj, v)
	if err != nil {
		return nil, 0, 0, false
	}
	delta, err := matrix.Solve(a, negG)
	if err != nil || !delta.IsFinite() {
		return nil, 0, 0, false
	}

	d := delta.Slice()
	xt = make([]float64, len(cur.x))
	for i := range xt {
		xt[i] = cur.x[i] + d[i]
	}
	rt, err := matrix.VectorFrom(r(xt))
	if err != nil || rt.Len() != cur.r.Len() || !rt.IsFinite() {
		return nil, 0, 0, false
	}
	gd, err := cur.g.Dot(delta)
	if err != nil {
		return nil, 0, 0, false
	}

	return xt, half(rt), -gd / 2, true
}
