package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/wagiedev/claudeflow-go/internal/config"
	"github.com/wagiedev/claudeflow-go/internal/mcp"
)

// SDKVersion is reported to the CLI through CLAUDE_AGENT_SDK_VERSION.
const SDKVersion = "0.1.0"

// Entrypoint is reported to the CLI through CLAUDE_CODE_ENTRYPOINT.
const Entrypoint = "sdk-go"

// Command is a resolved CLI invocation.
type Command struct {
	// Path is the CLI executable.
	Path string

	// Args are the command line arguments, not including Path.
	Args []string

	// Env holds KEY=VALUE overrides applied on top of the parent environment.
	Env []string

	// Dir is the working directory. Empty means the parent's.
	Dir string
}

// NewCommand resolves the CLI binary through cache and builds a one-shot
// invocation for prompt. A nil cache discovers the binary on every call. The
// environment provider, if any, is consulted on every call.
func NewCommand(ctx context.Context, prompt string, options *config.Options, cache *DiscoveryCache) (*Command, error) {
	cliPath, err := cache.Discover(ctx, &Config{
		CliPath:          options.CliPath,
		SkipVersionCheck: options.SkipVersionCheck,
		Logger:           options.Logger,
	})
	if err != nil {
		return nil, err
	}

	var providerEnv map[string]string

	if options.EnvProvider != nil {
		providerEnv, err = options.EnvProvider.Environment(ctx)
		if err != nil {
			return nil, fmt.Errorf("environment provider: %w", err)
		}
	}

	args, err := BuildArgs(prompt, options)
	if err != nil {
		return nil, err
	}

	return &Command{
		Path: cliPath,
		Args: args,
		Env:  BuildEnvironment(options, providerEnv),
		Dir:  options.Cwd,
	}, nil
}

// BuildArgs constructs the arguments for a one-shot stream-json run. The
// prompt always follows "--" so it is never parsed as a flag.
//
//nolint:gocyclo // each branch independently adds a CLI flag
func BuildArgs(prompt string, options *config.Options) ([]string, error) {
	args := []string{
		"--output-format", "stream-json",
		"--verbose",
	}

	if options.PermissionMode != "" {
		args = append(args, "--permission-mode", config.NormalizePermissionMode(options.PermissionMode))
	}

	if options.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(options.MaxTurns))
	}

	if options.Model != "" {
		args = append(args, "--model", options.Model)
	}

	if options.FallbackModel != "" {
		args = append(args, "--fallback-model", options.FallbackModel)
	}

	// An empty --system-prompt replaces the default prompt; appending keeps it.
	switch {
	case options.SystemPrompt != "":
		args = append(args, "--system-prompt", options.SystemPrompt)
	case options.AppendSystemPrompt == "":
		args = append(args, "--system-prompt", "")
	}

	if options.AppendSystemPrompt != "" {
		args = append(args, "--append-system-prompt", options.AppendSystemPrompt)
	}

	if options.Effort != nil {
		args = append(args, "--effort", string(*options.Effort))
	}

	switch {
	case options.MCPConfig != "":
		args = append(args, "--mcp-config", options.MCPConfig)
	case len(options.MCPServers) > 0:
		raw, err := mcp.MarshalServers(options.MCPServers)
		if err != nil {
			return nil, err
		}

		args = append(args, "--mcp-config", raw)
	}

	if len(options.AllowedTools) > 0 {
		args = append(args, "--allowed-tools", strings.Join(options.AllowedTools, ","))
	}

	if len(options.DisallowedTools) > 0 {
		args = append(args, "--disallowed-tools", strings.Join(options.DisallowedTools, ","))
	}

	for _, dir := range options.AddDirs {
		args = append(args, "--add-dir", dir)
	}

	if options.ContinueConversation {
		args = append(args, "--continue")
	}

	if options.Resume != "" {
		args = append(args, "--resume", options.Resume)
	}

	if options.ForkSession {
		args = append(args, "--fork-session")
	}

	for _, key := range slices.Sorted(maps.Keys(options.ExtraArgs)) {
		if value := options.ExtraArgs[key]; value != nil {
			args = append(args, "--"+key, *value)
		} else {
			args = append(args, "--"+key)
		}
	}

	return append(args, "--print", "--", prompt), nil
}

// BuildEnvironment returns the environment overrides for the CLI process.
// Provider values come first so explicit options.Env entries win.
func BuildEnvironment(options *config.Options, providerEnv map[string]string) []string {
	env := make([]string, 0, 2+len(providerEnv)+len(options.Env))
	env = append(env,
		"CLAUDE_CODE_ENTRYPOINT="+Entrypoint,
		"CLAUDE_AGENT_SDK_VERSION="+SDKVersion,
	)

	for _, key := range slices.Sorted(maps.Keys(providerEnv)) {
		env = append(env, key+"="+providerEnv[key])
	}

	for _, key := range slices.Sorted(maps.Keys(options.Env)) {
		env = append(env, key+"="+options.Env[key])
	}

	return env
}
