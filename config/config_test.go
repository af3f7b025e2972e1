package config_test

import (
	"os"
	"path/filepath"
	"testing"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/tubefit/config"
	"github.com/katalvlaran/tubefit/fit"
	"github.com/katalvlaran/tubefit/lm"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func flags(t *testing.T, args ...string) *flag.FlagSet {
	t.Helper()
	fs := flag.NewFlagSet("tubefit", flag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))

	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, fit.DefaultConfig(), cfg)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "tubefit.yaml", `
algorithm: powell
egOffset: 0.5
maximumPlateDissipation: 2
levenbergMarquardt:
  maxIterations: 50
powell:
  maxIterations: 200
`)
	t.Setenv("TUBEFIT_EGOFFSET", "0.7")
	t.Setenv("TUBEFIT_POWELL_MAXITERATIONS", "300")

	cfg, err := config.Load(path, flags(t, "--max-dissipation=3", "--powell-max-iterations=400"))
	require.NoError(t, err)

	assert.Equal(t, fit.Powell, cfg.Algorithm, "file over default")
	assert.Equal(t, 50, cfg.LevenbergMarquardt.MaxIterations, "file over default")
	assert.Equal(t, 0.7, cfg.EgOffset, "env over file")
	assert.Equal(t, 3.0, cfg.MaximumPlateDissipation, "flag over file")
	assert.Equal(t, 400, cfg.Powell.MaxIterations, "flag over env")
	assert.Equal(t, lm.DefaultTolerance, cfg.LevenbergMarquardt.Tolerance, "default")
	assert.Equal(t, lm.DefaultStallTolerance, cfg.LevenbergMarquardt.StallTolerance, "default")
	assert.Equal(t, fit.DefaultPowellRelativeThreshold, cfg.Powell.RelativeThreshold, "default")
	assert.False(t, cfg.Trace)
}

func TestLoad_ConfigFlagAndJSON(t *testing.T) {
	path := writeFile(t, "tubefit.json", `{"algorithm": "lm", "trace": true, "secondaryEmission": true}`)

	cfg, err := config.Load("", flags(t, "--config="+path, "--algorithm=powell"))
	require.NoError(t, err)
	assert.Equal(t, fit.Powell, cfg.Algorithm)
	assert.True(t, cfg.Trace)
	assert.True(t, cfg.SecondaryEmission)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)

	_, err = config.Load("", flags(t, "--algorithm=simplex"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown algorithm")

	_, err = config.Load("", flags(t, "--lm-order=3"))
	require.ErrorIs(t, err, config.ErrInvalid)

	t.Setenv("TUBEFIT_MAXIMUMPLATEDISSIPATION", "-1")
	_, err = config.Load("", nil)
	require.ErrorIs(t, err, config.ErrInvalid)
}
