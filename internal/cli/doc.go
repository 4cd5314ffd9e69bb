// Package cli locates the agent CLI binary and builds its invocation.
//
// # Discovery
//
// The Discoverer searches, in order:
//  1. Config.CliPath, when set (and nothing else)
//  2. the system PATH
//  3. common installation directories (/usr/local/bin, /usr/bin,
//     ~/.local/bin, ~/.claude/local)
//
// A version probe warns when the CLI is older than MinimumVersion. It can be
// skipped with Config.SkipVersionCheck or CLAUDE_AGENT_SDK_SKIP_VERSION_CHECK.
//
// # Command building
//
// BuildArgs produces a one-shot stream-json invocation:
//
//	claude --output-format stream-json --verbose [flags] --print -- <prompt>
//
// BuildEnvironment returns only the overrides; the subprocess layer layers
// them over the parent environment.
package cli
