package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ".", cfg.SolutionDir)
	assert.Equal(t, "table", cfg.Output)
	assert.Empty(t, cfg.AllowedLicenses)
	assert.False(t, cfg.Strict)
}

func TestLoad(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yml"))
	require.NoError(t, err)
	assert.Equal(t, "https://feed.example/v3/index.json", cfg.ServiceIndexURL)
	assert.Equal(t, "https://feed.example/v3/registration", cfg.RegistrationBase)
	assert.Equal(t, []string{"MIT", "Apache-2.0"}, cfg.AllowedLicenses)
	assert.True(t, cfg.Strict)
	// Flag-only fields keep their defaults.
	assert.Equal(t, "table", cfg.Output)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "no-such.yml"))
	assert.Error(t, err)
}

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("solution-dir", "", "")
	flags.String("service-index", "", "")
	flags.String("registration-base", "", "")
	flags.StringSlice("allow", nil, "")
	flags.String("output", "", "")
	flags.Bool("strict", false, "")
	flags.String("github-token", "", "")
	flags.Bool("verbose", false, "")
	return flags
}

func TestMergeFlags(t *testing.T) {
	flags := newFlags()
	require.NoError(t, flags.Parse([]string{
		"--solution-dir", "/work/src",
		"--allow", "BSD-3-Clause",
		"--output", "json",
		"--strict",
	}))

	cfg := Default()
	cfg.AllowedLicenses = []string{"MIT"}
	cfg = MergeFlags(cfg, flags)

	assert.Equal(t, "/work/src", cfg.SolutionDir)
	assert.Equal(t, []string{"MIT", "BSD-3-Clause"}, cfg.AllowedLicenses)
	assert.Equal(t, "json", cfg.Output)
	assert.True(t, cfg.Strict)
}

func TestMergeFlagsKeepsConfigValues(t *testing.T) {
	flags := newFlags()
	require.NoError(t, flags.Parse(nil))

	cfg := Default()
	cfg.ServiceIndexURL = "https://feed.example/v3/index.json"
	cfg = MergeFlags(cfg, flags)

	assert.Equal(t, "https://feed.example/v3/index.json", cfg.ServiceIndexURL)
	assert.Equal(t, ".", cfg.SolutionDir)
}
