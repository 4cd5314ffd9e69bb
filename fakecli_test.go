//go:build unix

package claudeflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Shell fragments for fake agent CLIs. $last holds the prompt, which always
// follows "--" as the final argument.
const (
	lastArg = `for last; do :; done
prompt=$(printf '%s' "$last" | tr '\n"' ' _')
`

	twoPlusTwo = `echo '{"type":"system","subtype":"init","session_id":"abc"}'
echo '{"type":"assistant","message":{"content":"4"}}'
echo '{"type":"result","subtype":"success","result":"4","total_cost_usd":0.001}'
`

	echoPrompt = lastArg + `echo '{"type":"system","subtype":"init","session_id":"abc"}'
printf '{"type":"assistant","message":{"content":"echo: %s"}}\n' "$prompt"
echo '{"type":"result","subtype":"success","total_cost_usd":0.001}'
`
)

// writeFakeCLI writes an executable shell script standing in for the agent
// CLI and returns options that run it.
func writeFakeCLI(t *testing.T, body string) []Option {
	t.Helper()

	path := filepath.Join(t.TempDir(), "claude")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))

	return []Option{WithCliPath(path), WithSkipVersionCheck(true)}
}
