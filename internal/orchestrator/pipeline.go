package orchestrator

import (
	"context"
	"fmt"
	"time"
)

// Stage is one step of a pipeline.
type Stage struct {
	Spec

	// Input builds the stage prompt from the previous stage's outcome. It is
	// not called for the first stage. Nil means DefaultInput.
	Input func(prompt string, prev Outcome) (string, error)
}

// DefaultInput appends the previous stage's text to prompt, separated by a
// blank line.
func DefaultInput(prompt string, prev Outcome) (string, error) {
	text := prev.Text()

	switch {
	case text == "":
		return prompt, nil
	case prompt == "":
		return text, nil
	default:
		return prompt + "\n\n" + text, nil
	}
}

// PipelineConfig controls pipeline execution.
type PipelineConfig struct {
	// StageTimeout bounds each stage including its retries. Zero means none.
	StageTimeout time.Duration

	// Retry is applied to every stage.
	Retry RetryPolicy
}

// PipelineResult holds the outcomes of the stages that ran, in order.
type PipelineResult struct {
	Outcomes []Outcome
}

// Final returns the outcome of the last stage that ran.
func (r *PipelineResult) Final() (Outcome, bool) {
	if r == nil || len(r.Outcomes) == 0 {
		return Outcome{}, false
	}

	return r.Outcomes[len(r.Outcomes)-1], true
}

// Text returns the text of the last stage that ran.
func (r *PipelineResult) Text() string {
	final, _ := r.Final()

	return final.Text()
}

// Pipeline runs stages in order, feeding each stage's output into the next
// stage's prompt. It stops at the first failure and returns a *StageError
// naming that stage; later stages are never launched.
func (o *Orchestrator) Pipeline(ctx context.Context, stages []Stage, cfg PipelineConfig) (*PipelineResult, error) {
	result := &PipelineResult{Outcomes: make([]Outcome, 0, len(stages))}

	o.log.Info("Starting pipeline", "stages", len(stages))

	for i, stage := range stages {
		spec := stage.Spec

		if i > 0 {
			input := stage.Input
			if input == nil {
				input = DefaultInput
			}

			prompt, err := input(spec.Prompt, result.Outcomes[i-1])
			if err != nil {
				return result, &StageError{Stage: i, Name: spec.Name, Err: fmt.Errorf("build input: %w", err)}
			}

			spec.Prompt = prompt
		}

		stageCtx, cancel := withTaskTimeout(ctx, cfg.StageTimeout)
		out := o.execute(stageCtx, newTaskID(), i, spec, cfg.Retry, nil)
		cancel()

		result.Outcomes = append(result.Outcomes, out)

		if !out.Succeeded() {
			o.log.Warn("Pipeline stopped", "stage", i, "name", spec.Name, "error", out.Err)

			return result, &StageError{Stage: i, Name: spec.Name, Err: out.Err}
		}
	}

	return result, nil
}
