package claudeflow

import (
	"github.com/wagiedev/claudeflow-go/internal/errors"
	"github.com/wagiedev/claudeflow-go/internal/orchestrator"
)

// Re-export error types from internal packages.

// FlowError is the base interface for all claudeflow errors.
type FlowError = errors.FlowError

// SpawnError indicates the agent CLI could not be located or launched.
type SpawnError = errors.SpawnError

// DecodeError indicates a line of CLI output was not a JSON object.
type DecodeError = errors.DecodeError

// ProtocolError indicates a record missing required payload fields.
type ProtocolError = errors.ProtocolError

// ProcessError indicates the CLI process exited abnormally.
type ProcessError = errors.ProcessError

// ResultError indicates the agent reported an unsuccessful result.
type ResultError = errors.ResultError

// TimeoutError indicates a task exceeded its deadline.
type TimeoutError = errors.TimeoutError

// CancellationError indicates the caller cancelled the operation.
type CancellationError = errors.CancellationError

// InvalidQueryError indicates malformed query input.
type InvalidQueryError = errors.InvalidQueryError

// TaskError is the failure of one orchestrated task.
type TaskError = orchestrator.TaskError

// StageError identifies the pipeline stage that stopped a pipeline.
type StageError = orchestrator.StageError

// FailureKind names the class of a task failure.
type FailureKind = errors.FailureKind

const (
	FailureSpawn     = errors.FailureSpawn
	FailureProcess   = errors.FailureProcess
	FailureResult    = errors.FailureResult
	FailureTimeout   = errors.FailureTimeout
	FailureCancelled = errors.FailureCancelled
	FailureInvalid   = errors.FailureInvalid
	FailureUnknown   = errors.FailureUnknown
)

// Re-export sentinel errors from internal package.
var (
	// ErrStreamClosed indicates the stream was closed by its consumer.
	ErrStreamClosed = errors.ErrStreamClosed

	// ErrNoResult indicates the output ended without a result message.
	ErrNoResult = errors.ErrNoResult

	// ErrUnknownTask indicates a task ID that does not belong to the batch.
	ErrUnknownTask = errors.ErrUnknownTask

	// ErrTaskCancelled is the cause of a cancellation through Batch.Cancel.
	ErrTaskCancelled = errors.ErrTaskCancelled

	// ErrBatchCancelled is the cause of a cancellation through Batch.CancelAll.
	ErrBatchCancelled = errors.ErrBatchCancelled

	// ErrFailFast is the cause of a cancellation after a sibling failed.
	ErrFailFast = errors.ErrFailFast

	// ErrTaskTimeout is the cause of a cancellation after a task deadline.
	ErrTaskTimeout = errors.ErrTaskTimeout
)

// KindOf maps an error to its FailureKind.
func KindOf(err error) FailureKind {
	return errors.KindOf(err)
}

// IsTransient reports whether err may succeed on a later attempt.
func IsTransient(err error, retryableCodes ...string) bool {
	return errors.IsTransient(err, retryableCodes...)
}
