package claudeflow

import (
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{name: "spawn", err: &SpawnError{Path: "claude", Err: exec.ErrNotFound}, want: FailureSpawn},
		{name: "process", err: &ProcessError{ExitCode: 1}, want: FailureProcess},
		{name: "result", err: &ResultError{Code: "error_max_turns"}, want: FailureResult},
		{name: "timeout", err: &TimeoutError{Timeout: time.Second}, want: FailureTimeout},
		{name: "cancelled", err: &CancellationError{Reason: ErrTaskCancelled}, want: FailureCancelled},
		{name: "invalid", err: &InvalidQueryError{Field: "prompt", Reason: "empty"}, want: FailureInvalid},
		{name: "bare context cancel", err: context.Canceled, want: FailureCancelled},
		{name: "unknown", err: stderrors.New("boom"), want: FailureUnknown},
		{
			name: "wrapped in task error",
			err:  &TaskError{Kind: FailureResult, Task: "t1", Attempts: 2, Err: &ResultError{Code: "x"}},
			want: FailureResult,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, KindOf(tt.err))
		})
	}

	require.Empty(t, KindOf(nil))
}

func TestIsTransient(t *testing.T) {
	require.True(t, IsTransient(&ProcessError{ExitCode: 1}))
	require.True(t, IsTransient(&SpawnError{Path: "claude", Transient: true}))
	require.False(t, IsTransient(&SpawnError{Path: "claude", Err: exec.ErrNotFound}))
	require.False(t, IsTransient(&ResultError{Code: "error_max_turns"}))
	require.True(t, IsTransient(&ResultError{Code: "overloaded"}, "overloaded"))
	require.False(t, IsTransient(&TimeoutError{Timeout: time.Second}))
	require.False(t, IsTransient(&InvalidQueryError{Field: "prompt"}))
}

func TestStageError(t *testing.T) {
	inner := &TaskError{Kind: FailureProcess, Task: "t", Attempts: 1, Err: &ProcessError{ExitCode: 2}}
	err := fmt.Errorf("run: %w", &StageError{Stage: 0, Name: "draft", Err: inner})

	stageErr, ok := stderrors.AsType[*StageError](err)
	require.True(t, ok)
	require.Equal(t, 0, stageErr.Stage)
	require.Contains(t, err.Error(), "pipeline stage 0 (draft)")

	procErr, ok := stderrors.AsType[*ProcessError](err)
	require.True(t, ok)
	require.Equal(t, 2, procErr.ExitCode)

	var flowErr FlowError

	require.ErrorAs(t, err, &flowErr)
	require.True(t, flowErr.IsFlowError())
}
