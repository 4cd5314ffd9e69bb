package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/claudeflow-go/internal/config"
	"github.com/wagiedev/claudeflow-go/internal/errors"
	"github.com/wagiedev/claudeflow-go/internal/mcp"
)

const flagMCPConfig = "--mcp-config"

func mustBuildArgs(t *testing.T, prompt string, options *config.Options) []string {
	t.Helper()

	args, err := BuildArgs(prompt, options)
	require.NoError(t, err)

	return args
}

// flagValue returns the argument following flag.
func flagValue(t *testing.T, args []string, flag string) string {
	t.Helper()

	i := slices.Index(args, flag)
	require.NotEqual(t, -1, i, "flag %s not found in %v", flag, args)
	require.Less(t, i+1, len(args), "flag %s has no value", flag)

	return args[i+1]
}

func writeFakeCLI(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), BinaryName)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))

	return path
}

func TestDiscoverer_NotFound(t *testing.T) {
	discoverer := NewDiscoverer(&Config{
		CliPath:          "/nonexistent/path/to/claude",
		SkipVersionCheck: true,
		Logger:           slog.Default(),
	})

	_, err := discoverer.Discover(context.Background())

	spawnErr, ok := stderrors.AsType[*errors.SpawnError](err)
	require.True(t, ok, "expected *SpawnError, got %v", err)
	require.Equal(t, []string{"/nonexistent/path/to/claude"}, spawnErr.SearchedPaths)
	require.False(t, spawnErr.Transient)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDiscoverer_ExplicitPath(t *testing.T) {
	fakeCLI := writeFakeCLI(t, "echo 2.1.0")

	path, err := NewDiscoverer(&Config{CliPath: fakeCLI}).Discover(context.Background())

	require.NoError(t, err)
	require.Equal(t, fakeCLI, path)
}

func TestDiscoverer_SearchesPath(t *testing.T) {
	fakeCLI := writeFakeCLI(t, "echo 1.0.0 (old)")

	t.Setenv("PATH", filepath.Dir(fakeCLI))
	t.Setenv("HOME", t.TempDir())

	// An old version only warns.
	path, err := NewDiscoverer(nil).Discover(context.Background())

	require.NoError(t, err)
	require.Equal(t, fakeCLI, path)
}

func TestDiscoverer_NothingFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	if _, err := exec.LookPath("/usr/local/bin/" + BinaryName); err == nil {
		t.Skip("agent CLI installed in a common location")
	}

	if _, err := exec.LookPath("/usr/bin/" + BinaryName); err == nil {
		t.Skip("agent CLI installed in a common location")
	}

	_, err := NewDiscoverer(nil).Discover(context.Background())

	spawnErr, ok := stderrors.AsType[*errors.SpawnError](err)
	require.True(t, ok, "expected *SpawnError, got %v", err)
	require.Contains(t, spawnErr.SearchedPaths, "$PATH")
	require.ErrorIs(t, err, exec.ErrNotFound)
}

func TestBuildArgs_Basic(t *testing.T) {
	args := mustBuildArgs(t, "What is 2+2?", &config.Options{})

	require.Equal(t, []string{
		"--output-format", "stream-json",
		"--verbose",
		"--system-prompt", "",
		"--print", "--", "What is 2+2?",
	}, args)
}

func TestBuildArgs_PromptNeverParsedAsFlag(t *testing.T) {
	args := mustBuildArgs(t, "--help", &config.Options{})

	require.Equal(t, []string{"--print", "--", "--help"}, args[len(args)-3:])
}

func TestBuildArgs_WithOptions(t *testing.T) {
	effort := config.EffortHigh
	options := &config.Options{
		PermissionMode:  "acceptAll",
		MaxTurns:        5,
		Model:           "claude-sonnet-4-5",
		FallbackModel:   "claude-haiku-4-5",
		SystemPrompt:    "You are helpful",
		Effort:          &effort,
		AllowedTools:    []string{"Read", "Grep"},
		DisallowedTools: []string{"Bash"},
	}

	args := mustBuildArgs(t, "test", options)

	require.Equal(t, "bypassPermissions", flagValue(t, args, "--permission-mode"))
	require.Equal(t, "5", flagValue(t, args, "--max-turns"))
	require.Equal(t, "claude-sonnet-4-5", flagValue(t, args, "--model"))
	require.Equal(t, "claude-haiku-4-5", flagValue(t, args, "--fallback-model"))
	require.Equal(t, "You are helpful", flagValue(t, args, "--system-prompt"))
	require.Equal(t, "high", flagValue(t, args, "--effort"))
	require.Equal(t, "Read,Grep", flagValue(t, args, "--allowed-tools"))
	require.Equal(t, "Bash", flagValue(t, args, "--disallowed-tools"))
}

func TestBuildArgs_SystemPrompt(t *testing.T) {
	t.Run("append keeps the default prompt", func(t *testing.T) {
		args := mustBuildArgs(t, "test", &config.Options{AppendSystemPrompt: "Be terse."})

		require.NotContains(t, args, "--system-prompt")
		require.Equal(t, "Be terse.", flagValue(t, args, "--append-system-prompt"))
	})

	t.Run("replace and append", func(t *testing.T) {
		args := mustBuildArgs(t, "test", &config.Options{
			SystemPrompt:       "You review code.",
			AppendSystemPrompt: "Be terse.",
		})

		require.Equal(t, "You review code.", flagValue(t, args, "--system-prompt"))
		require.Equal(t, "Be terse.", flagValue(t, args, "--append-system-prompt"))
	})
}

func TestBuildArgs_WithAddDirs(t *testing.T) {
	args := mustBuildArgs(t, "test", &config.Options{
		AddDirs: []string{"/home/user/shared", "/opt/tools"},
	})

	require.Equal(t, 2, count(args, "--add-dir"))
	require.Contains(t, args, "/home/user/shared")
	require.Contains(t, args, "/opt/tools")
}

func TestBuildArgs_SessionContinuation(t *testing.T) {
	t.Run("continue conversation", func(t *testing.T) {
		args := mustBuildArgs(t, "test", &config.Options{ContinueConversation: true})

		require.Contains(t, args, "--continue")
	})

	t.Run("resume session", func(t *testing.T) {
		args := mustBuildArgs(t, "test", &config.Options{Resume: "session_abc123"})

		require.Equal(t, "session_abc123", flagValue(t, args, "--resume"))
	})

	t.Run("fork session", func(t *testing.T) {
		args := mustBuildArgs(t, "test", &config.Options{Resume: "session_xyz", ForkSession: true})

		require.Contains(t, args, "--resume")
		require.Contains(t, args, "--fork-session")
	})
}

func TestBuildArgs_WithMCPServers(t *testing.T) {
	serverType := mcp.ServerTypeStdio
	options := &config.Options{
		MCPServers: map[string]mcp.ServerConfig{
			"test-server": &mcp.StdioServerConfig{
				Type:    &serverType,
				Command: "test-command",
				Args:    []string{"--arg1"},
				Env:     map[string]string{"TOKEN": "secret"},
			},
		},
	}

	args := mustBuildArgs(t, "test", options)

	var decoded map[string]map[string]map[string]any

	require.NoError(t, json.Unmarshal([]byte(flagValue(t, args, flagMCPConfig)), &decoded))

	server := decoded["mcpServers"]["test-server"]
	require.Equal(t, "stdio", server["type"])
	require.Equal(t, "test-command", server["command"])
	require.Equal(t, map[string]any{"TOKEN": "secret"}, server["env"])
}

func TestBuildArgs_MCPConfigTakesPrecedence(t *testing.T) {
	options := &config.Options{
		MCPConfig: "/path/to/mcp-config.json",
		MCPServers: map[string]mcp.ServerConfig{
			"ignored": &mcp.StdioServerConfig{Command: "ignored"},
		},
	}

	args := mustBuildArgs(t, "test", options)

	require.Equal(t, "/path/to/mcp-config.json", flagValue(t, args, flagMCPConfig))
	require.Equal(t, 1, count(args, flagMCPConfig))
}

func TestBuildArgs_WithExtraArgs(t *testing.T) {
	valueA := "value-a"
	valueB := "value-b"

	args := mustBuildArgs(t, "test", &config.Options{
		ExtraArgs: map[string]*string{
			"flag-b":       &valueB,
			"flag-a":       &valueA,
			"boolean-flag": nil,
		},
	})

	// Extra args are emitted in key order, just before the prompt.
	require.Equal(t, []string{
		"--boolean-flag",
		"--flag-a", "value-a",
		"--flag-b", "value-b",
		"--print", "--", "test",
	}, args[len(args)-8:])
}

func TestBuildEnvironment(t *testing.T) {
	options := &config.Options{
		Env: map[string]string{
			"CUSTOM_VAR":        "custom_value",
			"ANTHROPIC_API_KEY": "from-options",
		},
	}

	env := BuildEnvironment(options, map[string]string{
		"ANTHROPIC_API_KEY": "from-provider",
		"AWS_REGION":        "us-east-1",
	})

	require.Equal(t, []string{
		"CLAUDE_CODE_ENTRYPOINT=sdk-go",
		"CLAUDE_AGENT_SDK_VERSION=" + SDKVersion,
		"ANTHROPIC_API_KEY=from-provider",
		"AWS_REGION=us-east-1",
		"ANTHROPIC_API_KEY=from-options",
		"CUSTOM_VAR=custom_value",
	}, env)

	// Overrides only: the parent environment is layered by the subprocess.
	require.NotContains(t, env, "PATH="+os.Getenv("PATH"))
}

func TestNewCommand(t *testing.T) {
	fakeCLI := writeFakeCLI(t, "echo 2.1.0")
	dir := t.TempDir()

	calls := 0
	options := &config.Options{
		CliPath: fakeCLI,
		Cwd:     dir,
		EnvProvider: config.EnvProviderFunc(func(context.Context) (map[string]string, error) {
			calls++

			return map[string]string{"ANTHROPIC_API_KEY": "k"}, nil
		}),
	}

	cmd, err := NewCommand(context.Background(), "hello", options, nil)
	require.NoError(t, err)

	require.Equal(t, fakeCLI, cmd.Path)
	require.Equal(t, dir, cmd.Dir)
	require.Equal(t, "hello", cmd.Args[len(cmd.Args)-1])
	require.Contains(t, cmd.Env, "ANTHROPIC_API_KEY=k")

	_, err = NewCommand(context.Background(), "again", options, nil)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestNewCommand_ProviderError(t *testing.T) {
	providerErr := stderrors.New("vault sealed")

	_, err := NewCommand(context.Background(), "hello", &config.Options{
		CliPath:          writeFakeCLI(t, "true"),
		SkipVersionCheck: true,
		EnvProvider: config.EnvProviderFunc(func(context.Context) (map[string]string, error) {
			return nil, providerErr
		}),
	}, nil)

	require.ErrorIs(t, err, providerErr)
}

func TestDiscoveryCache_ProbesOnce(t *testing.T) {
	t.Setenv(config.EnvSkipVersionCheck, "")

	probes := filepath.Join(t.TempDir(), "probes")
	fakeCLI := writeFakeCLI(t, `echo probe >> "`+probes+`"
echo 2.1.0`)

	cache := NewDiscoveryCache()

	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() {
			path, err := cache.Discover(context.Background(), &Config{CliPath: fakeCLI})
			assert.NoError(t, err)
			assert.Equal(t, fakeCLI, path)
		})
	}

	wg.Wait()

	data, err := os.ReadFile(probes)
	require.NoError(t, err)
	require.Equal(t, "probe\n", string(data))

	// A different setting is discovered separately.
	_, err = cache.Discover(context.Background(), &Config{CliPath: fakeCLI, SkipVersionCheck: true})
	require.NoError(t, err)

	data, err = os.ReadFile(probes)
	require.NoError(t, err)
	require.Equal(t, "probe\n", string(data))
}

func TestDiscoveryCache_DoesNotCacheFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), BinaryName)
	cache := NewDiscoveryCache()

	_, err := cache.Discover(context.Background(), &Config{CliPath: path, SkipVersionCheck: true})
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	got, err := cache.Discover(context.Background(), &Config{CliPath: path, SkipVersionCheck: true})
	require.NoError(t, err)
	require.Equal(t, path, got)
}

func TestNewCommand_UsesCache(t *testing.T) {
	t.Setenv(config.EnvSkipVersionCheck, "")

	probes := filepath.Join(t.TempDir(), "probes")
	fakeCLI := writeFakeCLI(t, `echo probe >> "`+probes+`"
echo 2.1.0`)

	cache := NewDiscoveryCache()
	options := &config.Options{CliPath: fakeCLI}

	for _, prompt := range []string{"one", "two", "three"} {
		cmd, err := NewCommand(context.Background(), prompt, options, cache)
		require.NoError(t, err)
		require.Equal(t, prompt, cmd.Args[len(cmd.Args)-1])
	}

	data, err := os.ReadFile(probes)
	require.NoError(t, err)
	require.Equal(t, "probe\n", string(data))
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		output string
		want   string
		ok     bool
	}{
		{output: "2.1.3 (Claude Code)\n", want: "2.1.3", ok: true},
		{output: "  1.0.0", want: "1.0.0", ok: true},
		{output: "unknown", ok: false},
		{output: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			got, ok := parseVersion(tt.output)

			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		{name: "equal versions", a: "1.0.0", b: "1.0.0", expected: 0},
		{name: "equal versions 2", a: "2.5.10", b: "2.5.10", expected: 0},
		{name: "major version less", a: "1.0.0", b: "2.0.0", expected: -1},
		{name: "minor version less", a: "1.0.0", b: "1.1.0", expected: -1},
		{name: "patch version less", a: "1.0.0", b: "1.0.1", expected: -1},
		{name: "minor rollover", a: "1.99.0", b: "2.0.0", expected: -1},
		{name: "major version greater", a: "2.0.0", b: "1.0.0", expected: 1},
		{name: "patch version greater", a: "1.0.1", b: "1.0.0", expected: 1},
		{name: "complex greater", a: "2.0.0", b: "1.9.9", expected: 1},
		{name: "at minimum", a: MinimumVersion, b: "2.0.0", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, compareVersions(tt.a, tt.b), "compareVersions(%q, %q)", tt.a, tt.b)
		})
	}
}

func count(args []string, flag string) int {
	n := 0

	for _, arg := range args {
		if arg == flag {
			n++
		}
	}

	return n
}
