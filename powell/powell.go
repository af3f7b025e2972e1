// SPDX-License-Identifier: MIT

package powell

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/katalvlaran/tubefit/trace"
)

// Algorithm is the name recorded in trace iterations.
const Algorithm = "powell"

// Defaults.
const (
	DefaultRelativeThreshold = 1e-10
	DefaultAbsoluteThreshold = 1e-25
	DefaultMaxIterations     = 10000
)

var (
	// ErrEmptyStart is returned for a zero-length starting point.
	ErrEmptyStart = errors.New("powell: empty starting point")

	// ErrMaxIterations is stored in Result.Warn when the iteration cap is hit.
	ErrMaxIterations = errors.New("powell: maximum iterations exceeded")
)

// ObjectiveFunc is the scalar function to minimize.
type ObjectiveFunc func(x []float64) float64

// Config holds the solver settings. Zero fields select the defaults.
type Config struct {
	RelativeThreshold float64 `mapstructure:"relativeThreshold" json:"relativeThreshold"`
	AbsoluteThreshold float64 `mapstructure:"absoluteThreshold" json:"absoluteThreshold"`
	MaxIterations     int     `mapstructure:"maxIterations" json:"maxIterations"`
}

// DefaultConfig returns thresholds 1e-10 / 1e-25 and a 10000 iteration cap.
func DefaultConfig() Config {
	return Config{
		RelativeThreshold: DefaultRelativeThreshold,
		AbsoluteThreshold: DefaultAbsoluteThreshold,
		MaxIterations:     DefaultMaxIterations,
	}
}

func (c Config) withDefaults() Config {
	if c.RelativeThreshold <= 0 {
		c.RelativeThreshold = DefaultRelativeThreshold
	}
	if c.AbsoluteThreshold <= 0 {
		c.AbsoluteThreshold = DefaultAbsoluteThreshold
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}

	return c
}

// Result reports the final state of a run. Warn carries the reason a run
// stopped without converging (line-search failure or iteration cap).
type Result struct {
	X          []float64
	Fx         float64
	Iterations int
	Converged  bool
	Warn       error
}

// Minimize runs Powell's direction-set method on f from x0.
//
// Implementation:
//   - Stage 1: start from the coordinate basis.
//   - Stage 2: per iteration, line-minimize along every direction and remember
//     the direction of largest decrease.
//   - Stage 3: stop when 2(fp − f) ≤ rel·(|fp| + |f|) + abs.
//   - Stage 4: evaluate the extrapolated point 2p − p₀; when it passes the
//     curvature test (t < 0) the net movement replaces the largest-decrease
//     direction.
//   - The basis is restored every n iterations.
//
// Line-search failures and the iteration cap never panic: they end the run with
// Converged=false, the best point so far and the cause in Warn.
func Minimize(f ObjectiveFunc, x0 []float64, cfg Config, tr *trace.Trace) Result {
	n := len(x0)
	if n == 0 {
		return Result{Warn: ErrEmptyStart}
	}
	cfg = cfg.withDefaults()

	p := slices.Clone(x0)
	dirs := basis(n)
	fret := f(p)
	pt := slices.Clone(p)
	ptt := make([]float64, n)
	xit := make([]float64, n)

	for iter := 1; ; iter++ {
		fp := fret
		ibig, del := 0, 0.0
		for i := 0; i < n; i++ {
			fptt := fret
			fnew, _, err := lineMinimize(f, p, dirs[i])
			if err != nil {
				return stop(p, fptt, iter, fmt.Errorf("powell: direction %d: %w", i, err))
			}
			fret = fnew
			if fptt-fret > del {
				del = fptt - fret
				ibig = i
			}
		}
		tr.AddIteration(trace.Iteration{Algorithm: Algorithm, Iteration: iter, X: p, Fx: fret})

		if 2*(fp-fret) <= cfg.RelativeThreshold*(math.Abs(fp)+math.Abs(fret))+cfg.AbsoluteThreshold {
			return Result{X: p, Fx: fret, Iterations: iter, Converged: true}
		}
		if iter >= cfg.MaxIterations {
			return stop(p, fret, iter, ErrMaxIterations)
		}

		for j := 0; j < n; j++ {
			ptt[j] = 2*p[j] - pt[j]
			xit[j] = p[j] - pt[j]
			pt[j] = p[j]
		}
		if iter%n == 0 {
			dirs = basis(n)
			continue
		}
		fptt := f(ptt)
		if fptt >= fp {
			continue
		}
		t := 2*(fp-2*fret+fptt)*sq(fp-fret-del) - del*sq(fp-fptt)
		if t >= 0 {
			continue
		}
		fnew, moved, err := lineMinimize(f, p, xit)
		if err != nil {
			return stop(p, fret, iter, fmt.Errorf("powell: extrapolated direction: %w", err))
		}
		fret = fnew
		dirs[ibig] = dirs[n-1]
		dirs[n-1] = moved
	}
}

func stop(p []float64, fx float64, iter int, warn error) Result {
	return Result{X: p, Fx: fx, Iterations: iter, Warn: warn}
}

func sq(x float64) float64 { return x * x }

func basis(n int) [][]float64 {
	dirs := make([][]float64, n)
	for i := range dirs {
		dirs[i] = make([]float64, n)
		dirs[i][i] = 1
	}

	return dirs
}

// lineMinimize moves p to the minimum of f along dir (linmin). dir is left
// untouched; the displacement actually taken is returned with f at the new p.
func lineMinimize(f ObjectiveFunc, p, dir []float64) (float64, []float64, error) {
	xt := make([]float64, len(p))
	along := func(t float64) float64 {
		for j := range p {
			xt[j] = p[j] + t*dir[j]
		}

		return f(xt)
	}

	tri, err := Bracket(along, 0, 1)
	if err != nil {
		return math.NaN(), nil, err
	}
	tmin, fmin, err := Brent(along, tri, BrentTolerance)
	if err != nil {
		return math.NaN(), nil, err
	}
	moved := make([]float64, len(p))
	for j := range p {
		moved[j] = tmin * dir[j]
		p[j] += moved[j]
	}

	return fmin, moved, nil
}
