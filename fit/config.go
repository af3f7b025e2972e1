// SPDX-License-Identifier: MIT

package fit

import (
	"fmt"
	"strings"

	"github.com/katalvlaran/tubefit/lm"
	"github.com/katalvlaran/tubefit/powell"
)

// Algorithm selects the optimizer.
type Algorithm uint8

const (
	LevenbergMarquardt Algorithm = iota // 0
	Powell                              // 1
)

// String returns the trace name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case LevenbergMarquardt:
		return lm.Algorithm
	case Powell:
		return powell.Algorithm
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm accepts "lm", "levenberg-marquardt", "powell", "0" and "1".
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lm", lm.Algorithm, "0":
		return LevenbergMarquardt, nil
	case powell.Algorithm, "1":
		return Powell, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	if a > Powell {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, uint8(a))
	}

	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(b []byte) error {
	v, err := ParseAlgorithm(string(b))
	if err != nil {
		return err
	}
	*a = v

	return nil
}

// Config holds the per-request fit settings.
type Config struct {
	// MaximumPlateDissipation (W) excludes points above Ep·Ip; ≤0 keeps all.
	MaximumPlateDissipation float64 `mapstructure:"maximumPlateDissipation" json:"maximumPlateDissipation"`

	// EgOffset is applied to files whose own EgOffset is zero.
	EgOffset float64 `mapstructure:"egOffset" json:"egOffset"`

	Algorithm Algorithm `mapstructure:"algorithm" json:"algorithm"`

	// Trace attaches a trace.Trace to the result.
	Trace bool `mapstructure:"trace" json:"trace"`

	// SecondaryEmission enables the Derk secondary-emission estimator.
	SecondaryEmission bool `mapstructure:"secondaryEmission" json:"secondaryEmission"`

	LevenbergMarquardt lm.Config     `mapstructure:"levenbergMarquardt" json:"levenbergMarquardt"`
	Powell             powell.Config `mapstructure:"powell" json:"powell"`
}

// Powell thresholds of DefaultConfig. The objective is an SSE in mA²; on clean
// data it tends to zero, where only the absolute test can end the run.
const (
	DefaultPowellRelativeThreshold = 1e-6
	DefaultPowellAbsoluteThreshold = 1e-6
)

// DefaultConfig returns Levenberg–Marquardt with its defaults, Powell with
// fit-scale thresholds, no dissipation cut, no grid offset, no trace and
// secondary emission disabled.
func DefaultConfig() Config {
	p := powell.DefaultConfig()
	p.RelativeThreshold = DefaultPowellRelativeThreshold
	p.AbsoluteThreshold = DefaultPowellAbsoluteThreshold

	return Config{
		Algorithm:          LevenbergMarquardt,
		LevenbergMarquardt: lm.DefaultConfig(),
		Powell:             p,
	}
}
