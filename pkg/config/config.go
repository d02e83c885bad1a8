package config

import (
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceIndexURL  string   `yaml:"serviceIndex"`
	RegistrationBase string   `yaml:"registrationBase"`
	AllowedLicenses  []string `yaml:"allowedLicenses"`
	Strict           bool     `yaml:"strict"`
	SolutionDir      string   `yaml:"-"`
	Output           string   `yaml:"-"`
	GitHubToken      string   `yaml:"-"`
	Verbose          bool     `yaml:"-"`
}

func Default() *Config {
	return &Config{
		SolutionDir: ".",
		Output:      "table",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MergeFlags(cfg *Config, flags *pflag.FlagSet) *Config {
	if v, err := flags.GetString("solution-dir"); err == nil && v != "" {
		cfg.SolutionDir = v
	}
	if v, err := flags.GetString("service-index"); err == nil && v != "" {
		cfg.ServiceIndexURL = v
	}
	if v, err := flags.GetString("registration-base"); err == nil && v != "" {
		cfg.RegistrationBase = v
	}
	if v, err := flags.GetStringSlice("allow"); err == nil && len(v) > 0 {
		cfg.AllowedLicenses = append(cfg.AllowedLicenses, v...)
	}
	if v, err := flags.GetString("output"); err == nil && v != "" {
		cfg.Output = v
	}
	if v, err := flags.GetBool("strict"); err == nil && v {
		cfg.Strict = v
	}
	if v, err := flags.GetString("github-token"); err == nil && v != "" {
		cfg.GitHubToken = v
	}
	if v, err := flags.GetBool("verbose"); err == nil && v {
		cfg.Verbose = v
	}
	return cfg
}
