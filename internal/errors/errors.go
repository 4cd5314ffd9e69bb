package errors

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

// FlowError is the base interface for all claudeflow errors.
type FlowError interface {
	error
	IsFlowError() bool
}

// Compile-time verification that all error types implement FlowError.
var (
	_ FlowError = (*SpawnError)(nil)
	_ FlowError = (*DecodeError)(nil)
	_ FlowError = (*ProtocolError)(nil)
	_ FlowError = (*ProcessError)(nil)
	_ FlowError = (*ResultError)(nil)
	_ FlowError = (*TimeoutError)(nil)
	_ FlowError = (*CancellationError)(nil)
	_ FlowError = (*InvalidQueryError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotStarted indicates the session has not been started yet.
	ErrNotStarted = errors.New("session not started")

	// ErrSessionStarted indicates Start was called on a session that already left
	// the not-started state. Sessions are single-use.
	ErrSessionStarted = errors.New("session already started: sessions are single-use")

	// ErrSessionTerminated indicates the session has terminated.
	ErrSessionTerminated = errors.New("session terminated")

	// ErrInputClosed indicates the stdin pipe was closed.
	ErrInputClosed = errors.New("input closed")

	// ErrStreamClosed indicates the message stream was closed by its consumer.
	ErrStreamClosed = errors.New("stream closed")

	// ErrNoResult indicates the agent's output ended without a terminal result message.
	ErrNoResult = errors.New("output ended without a result message")

	// ErrUnknownTask indicates a task ID that does not belong to the batch.
	ErrUnknownTask = errors.New("unknown task")

	// ErrTaskCancelled is the cancellation cause used when a single task is cancelled.
	ErrTaskCancelled = errors.New("task cancelled")

	// ErrBatchCancelled is the cancellation cause used when a whole batch is cancelled.
	ErrBatchCancelled = errors.New("batch cancelled")

	// ErrFailFast is the cancellation cause used when a sibling task failed
	// under fail-fast semantics.
	ErrFailFast = errors.New("cancelled after sibling failure")

	// ErrTaskTimeout is the cancellation cause used when a task exceeds its deadline.
	ErrTaskTimeout = errors.New("task deadline exceeded")
)

// FailureKind names the class of a task failure.
type FailureKind string

const (
	// FailureSpawn means the agent process could not be launched.
	FailureSpawn FailureKind = "spawn"
	// FailureProcess means the agent process exited abnormally.
	FailureProcess FailureKind = "process"
	// FailureResult means the agent reported an unsuccessful result.
	FailureResult FailureKind = "result"
	// FailureTimeout means the task exceeded its deadline.
	FailureTimeout FailureKind = "timeout"
	// FailureCancelled means the caller cancelled the task.
	FailureCancelled FailureKind = "cancelled"
	// FailureInvalid means the query itself was malformed.
	FailureInvalid FailureKind = "invalid"
	// FailureUnknown covers anything else.
	FailureUnknown FailureKind = "unknown"
)

// SpawnError indicates the agent CLI could not be located or launched.
type SpawnError struct {
	Path          string
	SearchedPaths []string
	Err           error

	// Transient is true for launch failures that may succeed on a later attempt
	// (resource exhaustion, pipe creation). A missing binary, a permission
	// failure or a bad working directory are never transient.
	Transient bool
}

func (e *SpawnError) Error() string {
	if len(e.SearchedPaths) > 0 {
		return fmt.Sprintf("agent CLI not found in: %v", e.SearchedPaths)
	}

	return fmt.Sprintf("spawn %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsFlowError implements FlowError.
func (e *SpawnError) IsFlowError() bool { return true }

// DecodeError indicates a line of CLI output was not a JSON object.
// It preserves the original line verbatim.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode JSON from CLI: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsFlowError implements FlowError.
func (e *DecodeError) IsFlowError() bool { return true }

// ProtocolError indicates a record with a recognized discriminant that is
// missing required payload fields.
type ProtocolError struct {
	Type string
	Err  error
	Data map[string]any
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("invalid %q record: %v", e.Type, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsFlowError implements FlowError.
func (e *ProtocolError) IsFlowError() bool { return true }

// ProcessError indicates the CLI process failed.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("CLI process failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("CLI process failed (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsFlowError implements FlowError.
func (e *ProcessError) IsFlowError() bool { return true }

// ResultError indicates the agent reported an unsuccessful terminal result.
// Code carries the result subtype (for example "error_max_turns").
type ResultError struct {
	Code    string
	Message string
}

func (e *ResultError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("agent reported %s: %s", e.Code, e.Message)
	}

	return fmt.Sprintf("agent reported %s", e.Code)
}

// IsFlowError implements FlowError.
func (e *ResultError) IsFlowError() bool { return true }

// TimeoutError indicates an operation exceeded its configured deadline.
type TimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	switch {
	case e.Timeout > 0:
		return fmt.Sprintf("timed out after %s", e.Timeout)
	case e.Err != nil:
		return "timed out: " + e.Err.Error()
	default:
		return "timed out"
	}
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// IsFlowError implements FlowError.
func (e *TimeoutError) IsFlowError() bool { return true }

// CancellationError indicates the caller cancelled the operation.
// Reason is the cancellation cause, for example ErrTaskCancelled.
type CancellationError struct {
	Reason error
}

func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelled: %v", e.Reason)
}

func (e *CancellationError) Unwrap() error {
	return e.Reason
}

// IsFlowError implements FlowError.
func (e *CancellationError) IsFlowError() bool { return true }

// InvalidQueryError indicates malformed query input.
type InvalidQueryError struct {
	Field  string
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %s: %s", e.Field, e.Reason)
}

// IsFlowError implements FlowError.
func (e *InvalidQueryError) IsFlowError() bool { return true }

// KindOf maps an error to its FailureKind.
func KindOf(err error) FailureKind {
	if err == nil {
		return ""
	}

	if _, ok := errors.AsType[*InvalidQueryError](err); ok {
		return FailureInvalid
	}

	if _, ok := errors.AsType[*SpawnError](err); ok {
		return FailureSpawn
	}

	if _, ok := errors.AsType[*TimeoutError](err); ok {
		return FailureTimeout
	}

	if _, ok := errors.AsType[*CancellationError](err); ok {
		return FailureCancelled
	}

	if _, ok := errors.AsType[*ResultError](err); ok {
		return FailureResult
	}

	if _, ok := errors.AsType[*ProcessError](err); ok {
		return FailureProcess
	}

	if errors.Is(err, context.Canceled) {
		return FailureCancelled
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}

	return FailureUnknown
}

// FromContext converts the state of a finished context into a TimeoutError or
// CancellationError. The context's cause decides which one: ErrTaskTimeout and
// context.DeadlineExceeded yield a TimeoutError.
func FromContext(ctx context.Context, timeout time.Duration) error {
	cause := context.Cause(ctx)
	if cause == nil {
		return nil
	}

	if errors.Is(cause, ErrTaskTimeout) || errors.Is(cause, context.DeadlineExceeded) {
		return &TimeoutError{Timeout: timeout, Err: cause}
	}

	return &CancellationError{Reason: cause}
}

// IsTransient reports whether err belongs to a failure class that may succeed
// on a later attempt: a transient spawn failure, an abnormal process exit, or
// a result error whose code is listed in retryableCodes.
//
// Timeouts, cancellations and invalid input are never transient.
func IsTransient(err error, retryableCodes ...string) bool {
	switch KindOf(err) {
	case FailureSpawn:
		spawnErr, _ := errors.AsType[*SpawnError](err)

		return spawnErr.Transient
	case FailureProcess:
		return true
	case FailureResult:
		resultErr, _ := errors.AsType[*ResultError](err)

		return slices.Contains(retryableCodes, resultErr.Code)
	default:
		return false
	}
}
