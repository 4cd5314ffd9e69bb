package config

import (
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/wagiedev/claudeflow-go/internal/mcp"
)

// Effort controls thinking depth.
type Effort string

const (
	// EffortLow uses minimal thinking.
	EffortLow Effort = "low"
	// EffortMedium uses moderate thinking.
	EffortMedium Effort = "medium"
	// EffortHigh uses deep thinking.
	EffortHigh Effort = "high"
	// EffortMax uses maximum thinking depth.
	EffortMax Effort = "max"
)

// Options configures one agent query.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// SystemPrompt replaces the agent's system prompt.
	SystemPrompt string

	// AppendSystemPrompt is appended to the agent's default system prompt.
	AppendSystemPrompt string

	// Model specifies which model the agent uses.
	Model string

	// FallbackModel is used if the primary model is unavailable.
	FallbackModel string

	// PermissionMode controls how permissions are handled
	// Valid values: "acceptEdits", "bypassPermissions", "default", "dontAsk", "plan"
	// Legacy aliases are normalized, see NormalizePermissionMode.
	PermissionMode string

	// MaxTurns limits the number of conversation turns. Zero means no limit.
	MaxTurns int

	// Effort controls thinking depth. If nil, no effort flag is passed.
	Effort *Effort

	// Cwd sets the working directory for the CLI process.
	Cwd string

	// AddDirs lists additional directories the agent may access.
	AddDirs []string

	// CliPath is the explicit path to the agent CLI binary.
	// If empty, the CLI is searched in PATH and common install locations.
	CliPath string

	// SkipVersionCheck disables the CLI version probe during discovery.
	SkipVersionCheck bool

	// Env provides additional environment variables for the CLI process.
	Env map[string]string

	// EnvProvider supplies credential variables before every spawn.
	// Its values are applied before Env, so Env wins on conflicts.
	EnvProvider EnvProvider

	// AllowedTools is a list of pre-approved tools.
	AllowedTools []string

	// DisallowedTools is a list of tools that are explicitly blocked.
	DisallowedTools []string

	// MCPServers configures external MCP servers the agent connects to.
	MCPServers map[string]mcp.ServerConfig

	// MCPConfig is a path to an MCP config file or a raw JSON string.
	// If set, this takes precedence over MCPServers.
	MCPConfig string

	// ContinueConversation continues the most recent conversation.
	ContinueConversation bool

	// Resume is a session ID to resume from.
	Resume string

	// ForkSession forks the resumed session to a new ID.
	ForkSession bool

	// ExtraArgs provides arbitrary CLI flags.
	// If the value is nil, the flag is passed without a value (boolean flag).
	ExtraArgs map[string]*string

	// Stderr is a callback function for handling stderr output.
	Stderr func(string)

	// GracePeriod bounds the wait between SIGTERM and SIGKILL when a session
	// is terminated. Zero means the subprocess default.
	GracePeriod time.Duration
}

// Clone returns a copy of o whose slices and maps can be modified without
// affecting o.
func (o *Options) Clone() *Options {
	if o == nil {
		return &Options{}
	}

	clone := *o
	clone.AddDirs = slices.Clone(o.AddDirs)
	clone.AllowedTools = slices.Clone(o.AllowedTools)
	clone.DisallowedTools = slices.Clone(o.DisallowedTools)
	clone.Env = maps.Clone(o.Env)
	clone.MCPServers = maps.Clone(o.MCPServers)
	clone.ExtraArgs = maps.Clone(o.ExtraArgs)

	return &clone
}
