// SPDX-License-Identifier: MIT

package trace

import (
	"fmt"
	"math"
)

// Kind tags a Record delivered to an observer.
type Kind string

const (
	KindIteration    Kind = "iteration"
	KindGradient     Kind = "gradient"
	KindJacobian     Kind = "jacobian"
	KindEstimate     Kind = "estimate"
	KindFeaturePoint Kind = "feature-point"
	KindMessage      Kind = "message"
)

// Iteration is one optimizer step.
type Iteration struct {
	Algorithm    string    `json:"algorithm"`
	Iteration    int       `json:"iteration"`
	X            []float64 `json:"x"`
	Fx           float64   `json:"fx"`
	GradientNorm float64   `json:"gradientNorm,omitempty"`
	Damping      float64   `json:"damping,omitempty"`
}

// Estimate holds the per-series samples an estimator averaged.
type Estimate struct {
	Param   string    `json:"param"`
	Samples []float64 `json:"samples"`
	Average float64   `json:"average"`
	Default bool      `json:"default,omitempty"`
}

// FeaturePoint is a classified point of a screen-current curve.
type FeaturePoint struct {
	File   int     `json:"file"`
	Series int     `json:"series"`
	Index  int     `json:"index"`
	Kind   string  `json:"kind"`
	Ep     float64 `json:"ep"`
	Is     float64 `json:"is"`
}

// Record is the unit delivered to an observer; exactly one payload field is set.
type Record struct {
	Kind         Kind
	Iteration    *Iteration
	Estimate     *Estimate
	FeaturePoint *FeaturePoint
	Message      string
}

// Trace is an append-only diagnostics collector. The zero value is ready to use.
// Numbers are stored finite so the trace always encodes: ±Inf becomes
// ±math.MaxFloat64 and NaN becomes math.MaxFloat64.
type Trace struct {
	Iterations    []Iteration    `json:"iterations"`
	Gradients     [][]float64    `json:"gradients"`
	Jacobians     [][][]float64  `json:"jacobians"`
	Estimates     []Estimate     `json:"estimates"`
	FeaturePoints []FeaturePoint `json:"featurePoints"`
	Messages      []string       `json:"messages"`

	observer func(Record)
}

// New returns an empty Trace.
func New() *Trace { return &Trace{} }

// Enabled reports whether t collects anything.
func (t *Trace) Enabled() bool { return t != nil }

// Observe registers fn to receive every appended record. Passing nil detaches.
func (t *Trace) Observe(fn func(Record)) {
	if t == nil {
		return
	}
	t.observer = fn
}

func (t *Trace) emit(r Record) {
	if t.observer != nil {
		t.observer(r)
	}
}

// AddIteration appends a copy of it.
func (t *Trace) AddIteration(it Iteration) {
	if t == nil {
		return
	}
	it.X = finite(it.X)
	it.Fx, it.GradientNorm, it.Damping = clamp(it.Fx), clamp(it.GradientNorm), clamp(it.Damping)
	t.Iterations = append(t.Iterations, it)
	t.emit(Record{Kind: KindIteration, Iteration: &it})
}

// AddGradient appends a copy of g.
func (t *Trace) AddGradient(g []float64) {
	if t == nil {
		return
	}
	t.Gradients = append(t.Gradients, finite(g))
	t.emit(Record{Kind: KindGradient})
}

// AddJacobian appends a deep copy of the row slices.
func (t *Trace) AddJacobian(rows [][]float64) {
	if t == nil {
		return
	}
	cp := make([][]float64, len(rows))
	for i, r := range rows {
		cp[i] = finite(r)
	}
	t.Jacobians = append(t.Jacobians, cp)
	t.emit(Record{Kind: KindJacobian})
}

// AddEstimate records the samples behind an estimator average.
func (t *Trace) AddEstimate(e Estimate) {
	if t == nil {
		return
	}
	e.Samples = finite(e.Samples)
	e.Average = clamp(e.Average)
	t.Estimates = append(t.Estimates, e)
	t.emit(Record{Kind: KindEstimate, Estimate: &e})
}

// AddFeaturePoint records one classified feature point.
func (t *Trace) AddFeaturePoint(fp FeaturePoint) {
	if t == nil {
		return
	}
	fp.Ep, fp.Is = clamp(fp.Ep), clamp(fp.Is)
	t.FeaturePoints = append(t.FeaturePoints, fp)
	t.emit(Record{Kind: KindFeaturePoint, FeaturePoint: &fp})
}

// Logf appends a formatted message.
func (t *Trace) Logf(format string, args ...any) {
	if t == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	t.Messages = append(t.Messages, msg)
	t.emit(Record{Kind: KindMessage, Message: msg})
}

// Len returns the total number of records held.
func (t *Trace) Len() int {
	if t == nil {
		return 0
	}

	return len(t.Iterations) + len(t.Gradients) + len(t.Jacobians) +
		len(t.Estimates) + len(t.FeaturePoints) + len(t.Messages)
}

// clamp maps v onto the finite range.
func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	default:
		return v
	}
}

// finite returns a clamped copy of xs.
func finite(xs []float64) []float64 {
	if xs == nil {
		return nil
	}
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = clamp(v)
	}

	return out
}
