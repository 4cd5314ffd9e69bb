//go:build integration

package integration

import (
	"strings"
	"testing"

	"github.com/wagiedev/claudeflow-go"
)

// skipIfCLINotInstalled skips the test if the error indicates the CLI could
// not be started.
func skipIfCLINotInstalled(t *testing.T, err error) {
	t.Helper()

	if claudeflow.KindOf(err) == claudeflow.FailureSpawn {
		t.Skip("Claude CLI not installed")
	}
}

// contains42 checks if a string contains "42" in various formats.
func contains42(s string) bool {
	lower := strings.ToLower(s)

	return strings.Contains(lower, "42") ||
		strings.Contains(lower, "forty-two") ||
		strings.Contains(lower, "forty two")
}

// haiku returns options for cheap single-turn queries.
func haiku(opts ...claudeflow.Option) []claudeflow.Option {
	return append([]claudeflow.Option{
		claudeflow.WithModel("haiku"),
		claudeflow.WithMaxTurns(1),
	}, opts...)
}
