package claudeflow

import (
	"log/slog"
	"maps"
	"os"
	"time"

	"github.com/wagiedev/claudeflow-go/internal/config"
)

// Option configures Options using the functional options pattern.
type Option func(*Options)

// NewOptions applies opts to a fresh Options.
func NewOptions(opts ...Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithSystemPrompt replaces the agent's system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(o *Options) {
		o.SystemPrompt = prompt
	}
}

// WithAppendSystemPrompt appends text to the agent's default system prompt.
func WithAppendSystemPrompt(prompt string) Option {
	return func(o *Options) {
		o.AppendSystemPrompt = prompt
	}
}

// WithModel specifies which model to use (e.g., "claude-sonnet-4-5").
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithFallbackModel specifies a model to use if the primary model is unavailable.
func WithFallbackModel(model string) Option {
	return func(o *Options) {
		o.FallbackModel = model
	}
}

// WithPermissionMode controls how permissions are handled.
// Valid values: "default", "acceptEdits", "plan", "bypassPermissions", "dontAsk".
func WithPermissionMode(mode string) Option {
	return func(o *Options) {
		o.PermissionMode = mode
	}
}

// WithMaxTurns limits the maximum number of conversation turns.
func WithMaxTurns(maxTurns int) Option {
	return func(o *Options) {
		o.MaxTurns = maxTurns
	}
}

// WithEffort sets the thinking effort level.
func WithEffort(effort Effort) Option {
	return func(o *Options) {
		o.Effort = &effort
	}
}

// ===== Process Configuration =====

// WithCwd sets the working directory for the CLI process.
func WithCwd(cwd string) Option {
	return func(o *Options) {
		o.Cwd = cwd
	}
}

// WithAddDirs adds directories the agent may access.
func WithAddDirs(dirs ...string) Option {
	return func(o *Options) {
		o.AddDirs = append(o.AddDirs, dirs...)
	}
}

// WithCliPath sets the explicit path to the agent CLI binary.
// If not set, the CLI is searched in PATH.
func WithCliPath(path string) Option {
	return func(o *Options) {
		o.CliPath = path
	}
}

// WithSkipVersionCheck disables the CLI version probe.
func WithSkipVersionCheck(skip bool) Option {
	return func(o *Options) {
		o.SkipVersionCheck = skip
	}
}

// WithEnv adds environment variables for the CLI process.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string, len(env))
		}

		maps.Copy(o.Env, env)
	}
}

// WithEnvProvider sets a provider consulted for credentials before every
// spawn. Values from WithEnv take precedence.
func WithEnvProvider(provider EnvProvider) Option {
	return func(o *Options) {
		o.EnvProvider = provider
	}
}

// WithStderr sets a callback invoked for each line the CLI writes to stderr.
func WithStderr(handler func(string)) Option {
	return func(o *Options) {
		o.Stderr = handler
	}
}

// WithGracePeriod bounds the wait between SIGTERM and SIGKILL when a
// session is terminated. Defaults to 2s or CLAUDEFLOW_GRACE_PERIOD.
func WithGracePeriod(d time.Duration) Option {
	return func(o *Options) {
		o.GracePeriod = d
	}
}

// WithExtraArgs provides arbitrary CLI flags to pass to the CLI.
// If the value is nil, the flag is passed without a value (boolean flag).
func WithExtraArgs(args map[string]*string) Option {
	return func(o *Options) {
		o.ExtraArgs = args
	}
}

// ===== Tools & MCP =====

// WithAllowedTools sets pre-approved tools that can be used without prompting.
func WithAllowedTools(tools ...string) Option {
	return func(o *Options) {
		o.AllowedTools = tools
	}
}

// WithDisallowedTools sets tools that are explicitly blocked.
func WithDisallowedTools(tools ...string) Option {
	return func(o *Options) {
		o.DisallowedTools = tools
	}
}

// WithMCPServers configures external MCP servers the agent connects to.
func WithMCPServers(servers map[string]MCPServerConfig) Option {
	return func(o *Options) {
		o.MCPServers = servers
	}
}

// WithMCPConfig sets a path to an MCP config file or a raw JSON string.
// If set, this takes precedence over WithMCPServers.
func WithMCPConfig(config string) Option {
	return func(o *Options) {
		o.MCPConfig = config
	}
}

// ===== Session Management =====

// WithContinueConversation continues the most recent conversation.
func WithContinueConversation(cont bool) Option {
	return func(o *Options) {
		o.ContinueConversation = cont
	}
}

// WithResume sets a session ID to resume from.
func WithResume(sessionID string) Option {
	return func(o *Options) {
		o.Resume = sessionID
	}
}

// WithForkSession forks the resumed session to a new session ID.
func WithForkSession(fork bool) Option {
	return func(o *Options) {
		o.ForkSession = fork
	}
}

// ===== Presets & Config Files =====

// WithPreset applies a named bundle of settings. Options given after it
// override the preset. A nil preset is ignored.
func WithPreset(preset *Preset) Option {
	return func(o *Options) {
		preset.Apply(o)
	}
}

// WithConfigFile applies the CLI path, grace period and environment from a
// loaded config file.
func WithConfigFile(file *ConfigFile) Option {
	return func(o *Options) {
		if file == nil {
			return
		}

		base := file.Options()

		if base.CliPath != "" {
			o.CliPath = base.CliPath
		}

		if base.GracePeriod > 0 {
			o.GracePeriod = base.GracePeriod
		}

		if len(base.Env) > 0 {
			WithEnv(base.Env)(o)
		}
	}
}

// LoadConfigFile reads a YAML config file and applies environment overrides.
func LoadConfigFile(path string) (*ConfigFile, error) {
	file, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if err := file.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return file, nil
}

// LoadDefaultConfig loads the file named by CLAUDEFLOW_CONFIG, or an empty
// config when it is unset.
func LoadDefaultConfig() (*ConfigFile, error) {
	return config.LoadDefault()
}
