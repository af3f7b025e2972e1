// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/tubefit/config"
	"github.com/katalvlaran/tubefit/fit"
	"github.com/katalvlaran/tubefit/metrics"
	"github.com/katalvlaran/tubefit/model"
	"github.com/katalvlaran/tubefit/trace"
)

var errNoResult = errors.New("tubefit: fit ended without a result")

type fitOptions struct {
	input      string
	model      string
	traceOut   string
	traceCodec string
	metricsOut string
}

func newFitCmd(logger func() (logr.Logger, func())) *cobra.Command {
	var o fitOptions
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit a model to a measurement document and print the parameters as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, sync := logger()
			defer sync()

			return runFit(cmd, o, log)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&o.input, "input", "i", "", "measurement document (yaml or json); - reads stdin")
	fs.StringVarP(&o.model, "model", "m", model.KorenTriode.String(), "koren-triode, koren-pentode, derk or derke")
	fs.StringVar(&o.traceOut, "trace-out", "", "write the diagnostics trace to this file (implies --trace)")
	fs.StringVar(&o.traceCodec, "trace-codec", trace.CodecZstd.String(), "trace compression: none, zstd, s2 or lz4")
	fs.StringVar(&o.metricsOut, "metrics-out", "", "write Prometheus metrics in text format to this file")
	config.RegisterFlags(fs)
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runFit(cmd *cobra.Command, o fitOptions, log logr.Logger) error {
	family, err := model.ParseFamily(o.model)
	if err != nil {
		return err
	}
	codec, err := trace.ParseCodec(o.traceCodec)
	if err != nil {
		return err
	}
	cfg, err := config.Load("", cmd.Flags())
	if err != nil {
		return err
	}
	if o.traceOut != "" {
		cfg.Trace = true
	}
	doc, err := readDocument(o.input)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	if err != nil {
		return err
	}
	fitter := fit.New(fit.WithLogger(log), fit.WithRecorder(rec))

	var res *fit.Result
	for ev := range fitter.Stream(cmd.Context(), fit.Request{Model: family, Files: doc.Files, Config: cfg}) {
		switch ev.Kind {
		case fit.EventLog:
			log.V(1).Info(ev.Message)
		case fit.EventTrace:
			if it := ev.Record.Iteration; it != nil {
				log.V(2).Info("iteration", "algorithm", it.Algorithm, "k", it.Iteration, "fx", it.Fx)
			}
		case fit.EventSuccess:
			res = ev.Result
		case fit.EventFailure:
			err = ev.Err
		}
	}

	if o.metricsOut != "" {
		if werr := metrics.WriteTextfile(o.metricsOut, reg); werr != nil {
			log.Error(werr, "metrics not written")
		}
	}
	if err != nil {
		return err
	}
	if res == nil {
		if cerr := cmd.Context().Err(); cerr != nil {
			return cerr
		}

		return errNoResult
	}

	if o.traceOut != "" {
		if err := writeTrace(o.traceOut, res.Trace, codec); err != nil {
			return err
		}
		res.Trace = nil
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	return enc.Encode(res)
}

func writeTrace(path string, t *trace.Trace, c trace.Codec) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tubefit: trace: %w", err)
	}
	if err := trace.Export(f, t, c); err != nil {
		_ = f.Close()

		return fmt.Errorf("tubefit: trace: %w", err)
	}

	return f.Close()
}
