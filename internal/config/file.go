package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"maps"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted by claudeflow.
const (
	// EnvConfigFile names a YAML config file loaded by LoadDefault.
	EnvConfigFile = "CLAUDEFLOW_CONFIG"
	// EnvGracePeriod overrides the termination grace period (Go duration syntax).
	EnvGracePeriod = "CLAUDEFLOW_GRACE_PERIOD"
	// EnvSkipVersionCheck disables the CLI version probe when non-empty.
	EnvSkipVersionCheck = "CLAUDE_AGENT_SDK_SKIP_VERSION_CHECK"
)

// File is the YAML configuration file.
//
//nolint:tagliatelle // config files use snake_case keys
type File struct {
	CliPath       string            `yaml:"cli_path"`
	GracePeriod   time.Duration     `yaml:"grace_period"`
	Env           map[string]string `yaml:"env"`
	Orchestration Orchestration     `yaml:"orchestration"`
	Presets       Presets           `yaml:"presets"`
}

// Orchestration holds orchestrator defaults.
//
//nolint:tagliatelle // config files use snake_case keys
type Orchestration struct {
	MaxConcurrency int           `yaml:"max_concurrency"`
	FailFast       bool          `yaml:"fail_fast"`
	TaskTimeout    time.Duration `yaml:"task_timeout"`
	Retry          Retry         `yaml:"retry"`
}

// Retry holds retry policy defaults.
//
//nolint:tagliatelle // config files use snake_case keys
type Retry struct {
	MaxAttempts         int           `yaml:"max_attempts"`
	InitialInterval     time.Duration `yaml:"initial_interval"`
	MaxInterval         time.Duration `yaml:"max_interval"`
	Multiplier          float64       `yaml:"multiplier"`
	RandomizationFactor float64       `yaml:"randomization_factor"`
	RetryableCodes      []string      `yaml:"retryable_codes"`
}

// Parse decodes a YAML config document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&f); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}

	return &f, nil
}

// Load reads and parses the config file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return f, nil
}

// LoadDefault loads the file named by CLAUDEFLOW_CONFIG, or returns an
// empty File when the variable is unset. Environment overrides are applied
// in both cases.
func LoadDefault() (*File, error) {
	f := &File{}

	if path := os.Getenv(EnvConfigFile); path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}

		f = loaded
	}

	if err := f.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return f, nil
}

// Validate rejects negative limits and durations.
func (f *File) Validate() error {
	switch {
	case f.GracePeriod < 0:
		return fmt.Errorf("grace_period must not be negative")
	case f.Orchestration.MaxConcurrency < 0:
		return fmt.Errorf("orchestration.max_concurrency must not be negative")
	case f.Orchestration.TaskTimeout < 0:
		return fmt.Errorf("orchestration.task_timeout must not be negative")
	case f.Orchestration.Retry.MaxAttempts < 0:
		return fmt.Errorf("orchestration.retry.max_attempts must not be negative")
	case f.Orchestration.Retry.Multiplier < 0:
		return fmt.Errorf("orchestration.retry.multiplier must not be negative")
	case f.Orchestration.Retry.RandomizationFactor < 0 || f.Orchestration.Retry.RandomizationFactor > 1:
		return fmt.Errorf("orchestration.retry.randomization_factor must be within [0, 1]")
	}

	return nil
}

// ApplyEnv applies environment overrides using lookup.
func (f *File) ApplyEnv(lookup func(string) (string, bool)) error {
	grace, ok, err := GracePeriodFromEnv(lookup)
	if err != nil {
		return err
	}

	if ok {
		f.GracePeriod = grace
	}

	return nil
}

// Options returns base query options derived from the file.
func (f *File) Options() *Options {
	opts := &Options{
		CliPath:     f.CliPath,
		GracePeriod: f.GracePeriod,
	}

	if len(f.Env) > 0 {
		opts.Env = maps.Clone(f.Env)
	}

	return opts
}

// GracePeriodFromEnv reads CLAUDEFLOW_GRACE_PERIOD.
func GracePeriodFromEnv(lookup func(string) (string, bool)) (time.Duration, bool, error) {
	raw, ok := lookup(EnvGracePeriod)
	if !ok || raw == "" {
		return 0, false, nil
	}

	grace, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", EnvGracePeriod, err)
	}

	if grace < 0 {
		return 0, false, fmt.Errorf("%s must not be negative", EnvGracePeriod)
	}

	return grace, true, nil
}
