package orchestrator

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/claudeflow-go/internal/config"
	"github.com/wagiedev/claudeflow-go/internal/errors"
	"github.com/wagiedev/claudeflow-go/internal/message"
)

// Spec describes one agent run.
type Spec struct {
	// Name labels the task in logs, errors and metrics. Optional.
	Name string

	// Prompt is the user prompt.
	Prompt string

	// Options configures the agent session. Nil means defaults.
	Options *config.Options
}

// Source is an open message stream of one session. Close must terminate the
// session if it is still running. *stream.Stream implements it.
type Source interface {
	Next(ctx context.Context) (*message.Message, error)
	Close() error
}

// Launcher starts a session for spec. The session must be bound to ctx.
type Launcher func(ctx context.Context, spec Spec) (Source, error)

// Status is the lifecycle state of a task.
type Status string

const (
	// StatusPending means the task waits for a concurrency slot.
	StatusPending Status = "pending"
	// StatusRunning means an attempt is in progress.
	StatusRunning Status = "running"
	// StatusRetrying means the task waits before its next attempt.
	StatusRetrying Status = "retrying"
	// StatusSucceeded is terminal.
	StatusSucceeded Status = "succeeded"
	// StatusFailed is terminal.
	StatusFailed Status = "failed"
)

// Done reports whether s is terminal.
func (s Status) Done() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Outcome is the result of one task.
type Outcome struct {
	TaskID string
	Index  int
	Name   string
	Status Status

	// Messages are the messages of the last attempt.
	Messages []*message.Message

	// Result is the terminal result message of the last attempt, if any.
	Result *message.Message

	// Err is a *TaskError when Status is StatusFailed.
	Err error

	Attempts int
	Backoffs []time.Duration
	Duration time.Duration
}

// Succeeded reports whether the task succeeded.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSucceeded
}

// Text returns the assistant text of the outcome, falling back to the
// result text when the agent produced no assistant text.
func (o Outcome) Text() string {
	if text := message.AssistantText(o.Messages); text != "" {
		return text
	}

	if o.Result != nil {
		return o.Result.ResultText()
	}

	return ""
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// Orchestrator runs specs through a Launcher.
type Orchestrator struct {
	log     *slog.Logger
	launch  Launcher
	metrics *Metrics
	sleep   Sleeper
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics reports task activity to m.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithSleeper replaces the wait between retry attempts.
func WithSleeper(sleep Sleeper) Option {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}

// New creates an Orchestrator.
func New(log *slog.Logger, launch Launcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		log:    log.With("component", "orchestrator"),
		launch: launch,
		sleep:  sleepContext,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Run executes spec once.
func (o *Orchestrator) Run(ctx context.Context, spec Spec) Outcome {
	return o.execute(ctx, newTaskID(), 0, spec, RetryPolicy{MaxAttempts: 1}, nil)
}

func newTaskID() string {
	return ulid.Make().String()
}

// execute runs spec under policy. onStatus, if set, observes status changes.
func (o *Orchestrator) execute(
	ctx context.Context,
	id string,
	index int,
	spec Spec,
	policy RetryPolicy,
	onStatus func(Status),
) Outcome {
	setStatus := func(s Status) {
		if onStatus != nil {
			onStatus(s)
		}
	}

	log := o.log.With("task_id", id)
	if spec.Name != "" {
		log = log.With("task", spec.Name)
	}

	policy = policy.withDefaults()
	schedule := policy.backOff()
	start := time.Now()

	out := Outcome{TaskID: id, Index: index, Name: spec.Name}

	o.metrics.IncActiveTasks()
	defer o.metrics.DecActiveTasks()

	var err error

	for attempt := 1; ; attempt++ {
		setStatus(StatusRunning)
		log.Debug("Starting attempt", "attempt", attempt)

		out.Attempts = attempt
		out.Messages, out.Result, err = o.attempt(ctx, spec)

		if err == nil {
			break
		}

		if !errors.IsTransient(err, policy.RetryableCodes...) {
			break
		}

		delay := schedule.NextBackOff()
		if delay == backoff.Stop {
			log.Warn("Retry attempts exhausted", "attempts", attempt, "error", err)

			break
		}

		log.Info("Retrying after transient failure", "attempt", attempt, "delay", delay, "error", err)
		setStatus(StatusRetrying)
		o.metrics.IncRetry(string(errors.KindOf(err)))

		out.Backoffs = append(out.Backoffs, delay)

		if sleepErr := o.sleep(ctx, delay); sleepErr != nil {
			err = contextError(ctx, sleepErr)

			break
		}
	}

	out.Duration = time.Since(start)

	if err != nil {
		taskErr := &TaskError{
			Kind:     errors.KindOf(err),
			Task:     taskLabel(id, spec),
			Attempts: out.Attempts,
			Partial:  out.Messages,
			Err:      err,
		}

		out.Status = StatusFailed
		out.Err = taskErr

		log.Warn("Task failed", "kind", taskErr.Kind, "attempts", out.Attempts, "error", err)
		o.metrics.IncFailure(string(taskErr.Kind))
	} else {
		out.Status = StatusSucceeded

		log.Info("Task succeeded", "attempts", out.Attempts, "duration", out.Duration)
	}

	o.metrics.ObserveDuration(string(out.Status), out.Duration)
	setStatus(out.Status)

	return out
}

func taskLabel(id string, spec Spec) string {
	if spec.Name != "" {
		return spec.Name
	}

	return id
}

// attempt opens one session and drains it. It succeeds only when the output
// ends cleanly after a successful result.
func (o *Orchestrator) attempt(ctx context.Context, spec Spec) ([]*message.Message, *message.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, contextError(ctx, err)
	}

	src, err := o.launch(ctx, spec)
	if err != nil {
		return nil, nil, contextError(ctx, err)
	}

	defer func() { _ = src.Close() }()

	var (
		msgs   []*message.Message
		result *message.Message
	)

	for {
		msg, err := src.Next(ctx)
		if stderrors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return msgs, result, contextError(ctx, err)
		}

		msgs = append(msgs, msg)

		if msg.Kind.IsResult() {
			result = msg
		}
	}

	// A session terminated by ctx ends its output cleanly.
	if ctx.Err() != nil {
		return msgs, result, contextError(ctx, ctx.Err())
	}

	switch {
	case result == nil:
		return msgs, nil, &errors.ProcessError{Err: errors.ErrNoResult}
	case result.Kind == message.KindResultError:
		return msgs, result, &errors.ResultError{Code: result.ErrorCode(), Message: result.ResultText()}
	default:
		return msgs, result, nil
	}
}

// contextError replaces err with a timeout or cancellation error when ctx is
// done, keeping err otherwise.
func contextError(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return err
	}

	// Only a task timeout has a known duration; a caller's deadline does not.
	var timeout time.Duration
	if stderrors.Is(context.Cause(ctx), errors.ErrTaskTimeout) {
		timeout, _ = ctx.Value(timeoutKey{}).(time.Duration)
	}

	if ctxErr := errors.FromContext(ctx, timeout); ctxErr != nil {
		return ctxErr
	}

	return err
}

// timeoutKey carries the configured task timeout for error reporting.
type timeoutKey struct{}

// withTaskTimeout bounds ctx by d, if positive. Expiry is reported with
// errors.ErrTaskTimeout as the cause.
func withTaskTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}

	ctx = context.WithValue(ctx, timeoutKey{}, d)

	return context.WithTimeoutCause(ctx, d, errors.ErrTaskTimeout)
}
