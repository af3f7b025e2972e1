// SPDX-License-Identifier: MIT

// Command tubefit fits vacuum-tube model parameters to a measurement document
// and prints the fitted set as JSON.
//
//	tubefit fit --input el34.yaml --model derk --algorithm powell --secondary-emission
//	tubefit version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbosity int
	root := &cobra.Command{
		Use:          "tubefit",
		Short:        "Fit Koren and Derk vacuum-tube models to measured curves",
		SilenceUsage: true,
	}
	root.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", 0, "log verbosity (1 stages, 2 iterations)")

	logger := func() (logr.Logger, func()) {
		return newLogger(verbosity)
	}
	root.AddCommand(newFitCmd(logger), newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tubefit %s\n", version)
		},
	}
}

// newLogger returns a zap-backed logr.Logger writing JSON to stderr. logr
// verbosity v maps to zap level −v.
func newLogger(verbosity int) (logr.Logger, func()) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))
	zc.Sampling = nil
	zl, err := zc.Build()
	if err != nil {
		return logr.Discard(), func() {}
	}

	return zapr.NewLogger(zl), func() { _ = zl.Sync() }
}
