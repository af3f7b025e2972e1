// SPDX-License-Identifier: MIT

// Package config resolves a fit.Config from command-line flags, TUBEFIT_*
// environment variables, an optional YAML or JSON file and the defaults, in
// that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/katalvlaran/tubefit/derivative"
	"github.com/katalvlaran/tubefit/fit"
)

// EnvPrefix prefixes every environment variable, e.g. TUBEFIT_EGOFFSET.
const EnvPrefix = "TUBEFIT"

// Keys as they appear in configuration files.
const (
	KeyAlgorithm               = "algorithm"
	KeyMaximumPlateDissipation = "maximumPlateDissipation"
	KeyEgOffset                = "egOffset"
	KeyTrace                   = "trace"
	KeySecondaryEmission       = "secondaryEmission"
	KeyLMTolerance             = "levenbergMarquardt.tolerance"
	KeyLMStallTolerance        = "levenbergMarquardt.stallTolerance"
	KeyLMMaxIterations         = "levenbergMarquardt.maxIterations"
	KeyLMInitialDamping        = "levenbergMarquardt.initialDamping"
	KeyLMOrder                 = "levenbergMarquardt.order"
	KeyPowellRelative          = "powell.relativeThreshold"
	KeyPowellAbsolute          = "powell.absoluteThreshold"
	KeyPowellMaxIterations     = "powell.maxIterations"
)

// FlagConfig names the flag holding the configuration file path.
const FlagConfig = "config"

// ErrInvalid is returned when a resolved value is out of range.
var ErrInvalid = errors.New("config: invalid value")

// flagBindings maps configuration keys to flag names.
var flagBindings = map[string]string{
	KeyAlgorithm:               "algorithm",
	KeyMaximumPlateDissipation: "max-dissipation",
	KeyEgOffset:                "eg-offset",
	KeyTrace:                   "trace",
	KeySecondaryEmission:       "secondary-emission",
	KeyLMTolerance:             "lm-tolerance",
	KeyLMMaxIterations:         "lm-max-iterations",
	KeyLMOrder:                 "lm-order",
	KeyPowellMaxIterations:     "powell-max-iterations",
}

// RegisterFlags adds the fit flags and --config to fs.
func RegisterFlags(fs *flag.FlagSet) {
	d := fit.DefaultConfig()
	fs.String(FlagConfig, "", "configuration file (yaml or json)")
	fs.String("algorithm", d.Algorithm.String(), "optimizer: lm or powell")
	fs.Float64("max-dissipation", d.MaximumPlateDissipation, "exclude points above this plate dissipation in W (0 keeps all)")
	fs.Float64("eg-offset", d.EgOffset, "grid offset in V for files without their own")
	fs.Bool("trace", d.Trace, "collect optimizer and estimator diagnostics")
	fs.Bool("secondary-emission", d.SecondaryEmission, "estimate Derk secondary-emission parameters")
	fs.Float64("lm-tolerance", d.LevenbergMarquardt.Tolerance, "Levenberg-Marquardt gradient-norm tolerance, relative to the initial gradient")
	fs.Int("lm-max-iterations", d.LevenbergMarquardt.MaxIterations, "Levenberg-Marquardt iteration cap")
	fs.Int("lm-order", d.LevenbergMarquardt.Order, "finite-difference order of the Jacobian (1, 2 or 4)")
	fs.Int("powell-max-iterations", d.Powell.MaxIterations, "Powell iteration cap")
}

func setDefaults(v *viper.Viper) {
	d := fit.DefaultConfig()
	v.SetDefault(KeyAlgorithm, d.Algorithm.String())
	v.SetDefault(KeyMaximumPlateDissipation, d.MaximumPlateDissipation)
	v.SetDefault(KeyEgOffset, d.EgOffset)
	v.SetDefault(KeyTrace, d.Trace)
	v.SetDefault(KeySecondaryEmission, d.SecondaryEmission)
	v.SetDefault(KeyLMTolerance, d.LevenbergMarquardt.Tolerance)
	v.SetDefault(KeyLMStallTolerance, d.LevenbergMarquardt.StallTolerance)
	v.SetDefault(KeyLMMaxIterations, d.LevenbergMarquardt.MaxIterations)
	v.SetDefault(KeyLMInitialDamping, d.LevenbergMarquardt.InitialDamping)
	v.SetDefault(KeyLMOrder, d.LevenbergMarquardt.Order)
	v.SetDefault(KeyPowellRelative, d.Powell.RelativeThreshold)
	v.SetDefault(KeyPowellAbsolute, d.Powell.AbsoluteThreshold)
	v.SetDefault(KeyPowellMaxIterations, d.Powell.MaxIterations)
}

// Load resolves the configuration. path may be empty (no file); fs may be nil.
// When path is empty and fs carries a non-empty --config, that file is read.
func Load(path string, fs *flag.FlagSet) (fit.Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" && fs != nil {
		if f := fs.Lookup(FlagConfig); f != nil {
			path = f.Value.String()
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fit.Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for key, name := range flagBindings {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return fit.Config{}, fmt.Errorf("config: bind --%s: %w", name, err)
				}
			}
		}
	}

	var cfg fit.Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return fit.Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return fit.Config{}, err
	}

	return cfg, nil
}

// Validate checks the ranges the solvers do not default away.
func Validate(cfg fit.Config) error {
	switch {
	case cfg.Algorithm > fit.Powell:
		return fmt.Errorf("%w: %s=%d", ErrInvalid, KeyAlgorithm, uint8(cfg.Algorithm))
	case cfg.MaximumPlateDissipation < 0:
		return fmt.Errorf("%w: %s=%g", ErrInvalid, KeyMaximumPlateDissipation, cfg.MaximumPlateDissipation)
	case cfg.LevenbergMarquardt.Tolerance < 0:
		return fmt.Errorf("%w: %s=%g", ErrInvalid, KeyLMTolerance, cfg.LevenbergMarquardt.Tolerance)
	case cfg.LevenbergMarquardt.StallTolerance < 0:
		return fmt.Errorf("%w: %s=%g", ErrInvalid, KeyLMStallTolerance, cfg.LevenbergMarquardt.StallTolerance)
	case cfg.LevenbergMarquardt.MaxIterations < 0:
		return fmt.Errorf("%w: %s=%d", ErrInvalid, KeyLMMaxIterations, cfg.LevenbergMarquardt.MaxIterations)
	case cfg.Powell.MaxIterations < 0:
		return fmt.Errorf("%w: %s=%d", ErrInvalid, KeyPowellMaxIterations, cfg.Powell.MaxIterations)
	}
	if o := cfg.LevenbergMarquardt.Order; o != 0 {
		if _, _, err := derivative.StepSizes(o); err != nil {
			return fmt.Errorf("%w: %s=%d: %w", ErrInvalid, KeyLMOrder, o, err)
		}
	}

	return nil
}
