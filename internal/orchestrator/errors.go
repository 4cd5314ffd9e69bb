package orchestrator

import (
	"fmt"

	"github.com/wagiedev/claudeflow-go/internal/errors"
	"github.com/wagiedev/claudeflow-go/internal/message"
)

var (
	_ errors.FlowError = (*TaskError)(nil)
	_ errors.FlowError = (*StageError)(nil)
)

// TaskError is the failure of one orchestrated task. Partial holds the
// messages received during the last attempt.
type TaskError struct {
	Kind     errors.FailureKind
	Task     string
	Attempts int
	Partial  []*message.Message
	Err      error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s failed after %d attempt(s): %v", e.Task, e.Attempts, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// IsFlowError implements errors.FlowError.
func (e *TaskError) IsFlowError() bool { return true }

// StageError identifies the pipeline stage that stopped a pipeline.
type StageError struct {
	Stage int
	Name  string
	Err   error
}

func (e *StageError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("pipeline stage %d (%s): %v", e.Stage, e.Name, e.Err)
	}

	return fmt.Sprintf("pipeline stage %d: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsFlowError implements errors.FlowError.
func (e *StageError) IsFlowError() bool { return true }
