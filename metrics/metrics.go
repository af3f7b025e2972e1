// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus collectors describing fit runs: outcome
// counts, wall-clock duration, optimizer iterations and the final RMSE.
//
// A nil *Recorder is valid and records nothing, so library callers that do
// not scrape metrics pay no cost.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "tubefit"

// Outcome labels.
const (
	OutcomeSuccess       = "success"
	OutcomeNotConverged  = "not_converged"
	OutcomeEstimateError = "estimate_error"
	OutcomeCancelled     = "cancelled"
)

// ErrRegister is returned when a collector cannot be registered.
var ErrRegister = errors.New("metrics: register collector")

// Observation describes one finished fit.
type Observation struct {
	Model      string
	Algorithm  string
	Outcome    string
	Duration   time.Duration
	Iterations int
	RMSE       float64 // only recorded on success
}

// Recorder owns the fit collectors.
type Recorder struct {
	fits       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	iterations *prometheus.HistogramVec
	rmse       *prometheus.GaugeVec
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		fits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "fits_total",
				Help:      "Finished fits by model, algorithm and outcome",
			},
			[]string{"model", "algorithm", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "fit_duration_seconds",
				Help:      "Wall-clock duration of a fit including estimation",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"model", "algorithm"},
		),
		iterations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "fit_iterations",
				Help:      "Outer optimizer iterations per fit",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
			},
			[]string{"model", "algorithm"},
		),
		rmse: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "fit_rmse",
				Help:      "RMSE of the last successful fit in mA",
			},
			[]string{"model"},
		),
	}
	for _, c := range []prometheus.Collector{r.fits, r.duration, r.iterations, r.rmse} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRegister, err)
		}
	}

	return r, nil
}

// Observe records o. It is a no-op on a nil Recorder.
func (r *Recorder) Observe(o Observation) {
	if r == nil {
		return
	}
	r.fits.WithLabelValues(o.Model, o.Algorithm, o.Outcome).Inc()
	r.duration.WithLabelValues(o.Model, o.Algorithm).Observe(o.Duration.Seconds())
	if o.Outcome == OutcomeSuccess {
		r.iterations.WithLabelValues(o.Model, o.Algorithm).Observe(float64(o.Iterations))
		r.rmse.WithLabelValues(o.Model).Set(o.RMSE)
	}
}

// WriteTextfile writes every metric gathered by g to path in the text
// exposition format, for the node-exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}

	return nil
}
