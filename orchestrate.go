package claudeflow

import (
	"context"
	"maps"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wagiedev/claudeflow-go/internal/cli"
	"github.com/wagiedev/claudeflow-go/internal/orchestrator"
)

// NewLauncher returns a launcher that spawns the agent CLI for each spec.
//
// A spec's own Options take precedence over defaults. Fields the spec leaves
// unset (logger, CLI path, environment provider, stderr callback, grace
// period, working directory, model and permission mode) fall back to
// defaults. Env maps are merged with the spec's entries winning.
//
// The CLI is located and its version probed once per launcher for each
// distinct CLI path setting, not once per spawn.
func NewLauncher(defaults *Options) orchestrator.Launcher {
	cache := cli.NewDiscoveryCache()

	return func(ctx context.Context, spec Spec) (orchestrator.Source, error) {
		s, err := openStream(ctx, spec.Prompt, mergeOptions(defaults, spec.Options), cache)
		if err != nil {
			return nil, err
		}

		return s, nil
	}
}

// NewOrchestrator returns an Orchestrator that runs specs through the agent
// CLI using defaults for every spec.
//
//	o := claudeflow.NewOrchestrator(claudeflow.NewOptions(claudeflow.WithMaxTurns(1)))
//	outcomes := o.Parallel(ctx, specs, claudeflow.ParallelConfig{MaxConcurrency: 4})
func NewOrchestrator(defaults *Options, opts ...OrchestratorOption) *Orchestrator {
	return orchestrator.New(loggerFor(defaults), NewLauncher(defaults), opts...)
}

// WithMetrics reports orchestrator activity to m.
func WithMetrics(m *Metrics) OrchestratorOption {
	return orchestrator.WithMetrics(m)
}

// NewMetrics registers orchestrator collectors on reg. Collectors already
// registered on reg are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return orchestrator.MustNewMetrics(reg)
}

// DefaultInput appends the previous stage's text to prompt, separated by a
// blank line.
func DefaultInput(prompt string, prev Outcome) (string, error) {
	return orchestrator.DefaultInput(prompt, prev)
}

// ParallelConfigFromFile returns the orchestration defaults of a config file.
func ParallelConfigFromFile(file *ConfigFile) ParallelConfig {
	if file == nil {
		return ParallelConfig{}
	}

	return orchestrator.ConfigFromFile(file.Orchestration)
}

// mergeOptions layers override on top of base. Neither argument is modified.
func mergeOptions(base, override *Options) *Options {
	if override == nil {
		return base.Clone()
	}

	merged := override.Clone()
	if base == nil {
		return merged
	}

	if merged.Logger == nil {
		merged.Logger = base.Logger
	}

	if merged.CliPath == "" {
		merged.CliPath = base.CliPath
	}

	merged.SkipVersionCheck = merged.SkipVersionCheck || base.SkipVersionCheck

	if merged.EnvProvider == nil {
		merged.EnvProvider = base.EnvProvider
	}

	if merged.Stderr == nil {
		merged.Stderr = base.Stderr
	}

	if merged.GracePeriod == 0 {
		merged.GracePeriod = base.GracePeriod
	}

	if merged.Cwd == "" {
		merged.Cwd = base.Cwd
	}

	if merged.Model == "" {
		merged.Model = base.Model
	}

	if merged.PermissionMode == "" {
		merged.PermissionMode = base.PermissionMode
	}

	if len(base.Env) > 0 {
		env := maps.Clone(base.Env)
		maps.Copy(env, merged.Env)
		merged.Env = env
	}

	return merged
}
