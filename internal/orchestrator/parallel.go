package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/wagiedev/claudeflow-go/internal/config"
	"github.com/wagiedev/claudeflow-go/internal/errors"
)

// ParallelConfig controls fan-out execution.
type ParallelConfig struct {
	// MaxConcurrency bounds the number of live sessions. Zero means unbounded.
	MaxConcurrency int

	// FailFast cancels every unfinished task after the first failure.
	FailFast bool

	// TaskTimeout bounds each task including its retries. Zero means none.
	TaskTimeout time.Duration

	// Retry is applied to every task.
	Retry RetryPolicy
}

// ConfigFromFile converts config file orchestration settings.
func ConfigFromFile(o config.Orchestration) ParallelConfig {
	return ParallelConfig{
		MaxConcurrency: o.MaxConcurrency,
		FailFast:       o.FailFast,
		TaskTimeout:    o.TaskTimeout,
		Retry:          PolicyFromConfig(o.Retry),
	}
}

// TaskInfo identifies a submitted task.
type TaskInfo struct {
	ID    string
	Index int
	Name  string
}

// Batch is a set of tasks submitted together.
type Batch struct {
	tasks    []TaskInfo
	table    *SessionTable
	cancel   context.CancelCauseFunc
	done     chan struct{}
	outcomes []Outcome
}

// Parallel runs specs concurrently and returns their outcomes in submission
// order. It blocks until every task finished.
func (o *Orchestrator) Parallel(ctx context.Context, specs []Spec, cfg ParallelConfig) []Outcome {
	return o.Submit(ctx, specs, cfg).Wait()
}

// Submit starts specs and returns immediately. Tasks acquire concurrency
// slots in submission order.
func (o *Orchestrator) Submit(ctx context.Context, specs []Spec, cfg ParallelConfig) *Batch {
	batchCtx, cancel := context.WithCancelCause(ctx)
	group, groupCtx := errgroup.WithContext(batchCtx)

	b := &Batch{
		tasks:    make([]TaskInfo, len(specs)),
		table:    NewSessionTable(),
		cancel:   cancel,
		done:     make(chan struct{}),
		outcomes: make([]Outcome, len(specs)),
	}

	taskCtxs := make([]context.Context, len(specs))

	for i, spec := range specs {
		id := newTaskID()
		taskCtx, taskCancel := context.WithCancelCause(groupCtx)

		taskCtxs[i] = taskCtx
		b.tasks[i] = TaskInfo{ID: id, Index: i, Name: spec.Name}
		b.table.Add(id, i, spec.Name, taskCancel)
	}

	o.log.Info("Submitted batch", "tasks", len(specs), "max_concurrency", cfg.MaxConcurrency, "fail_fast", cfg.FailFast)

	var sem *semaphore.Weighted
	if cfg.MaxConcurrency > 0 {
		sem = semaphore.NewWeighted(int64(cfg.MaxConcurrency))
	}

	go func() {
		defer close(b.done)
		defer cancel(nil)

		for i, spec := range specs {
			info := b.tasks[i]
			taskCtx := taskCtxs[i]

			if sem != nil {
				if err := sem.Acquire(taskCtx, 1); err != nil {
					b.skip(info, contextError(taskCtx, err))

					continue
				}
			}

			// Acquire may succeed on a done context.
			if err := taskCtx.Err(); err != nil {
				if sem != nil {
					sem.Release(1)
				}

				b.skip(info, contextError(taskCtx, err))

				continue
			}

			group.Go(func() error {
				if sem != nil {
					defer sem.Release(1)
				}

				runCtx, stop := withTaskTimeout(taskCtx, cfg.TaskTimeout)
				defer stop()

				out := o.execute(runCtx, info.ID, info.Index, spec, cfg.Retry, func(s Status) {
					b.table.SetStatus(info.ID, s)
				})

				b.outcomes[info.Index] = out

				// A task cancelled through Batch.Cancel does not fail its siblings.
				if cfg.FailFast && !out.Succeeded() && !stderrors.Is(out.Err, errors.ErrTaskCancelled) {
					err := fmt.Errorf("%w: task %s: %v", errors.ErrFailFast, taskLabel(info.ID, spec), out.Err)

					// Siblings must observe the failure before the slot is released.
					cancel(err)

					return err
				}

				return nil
			})
		}

		_ = group.Wait()

		for _, info := range b.tasks {
			_ = b.table.Cancel(info.ID, nil)
		}
	}()

	return b
}

// skip records a task that was cancelled before it started.
func (b *Batch) skip(info TaskInfo, err error) {
	b.outcomes[info.Index] = Outcome{
		TaskID: info.ID,
		Index:  info.Index,
		Name:   info.Name,
		Status: StatusFailed,
		Err: &TaskError{
			Kind: errors.KindOf(err),
			Task: taskLabel(info.ID, Spec{Name: info.Name}),
			Err:  err,
		},
	}

	b.table.SetStatus(info.ID, StatusFailed)
}

// Tasks returns the submitted tasks in submission order.
func (b *Batch) Tasks() []TaskInfo {
	return append([]TaskInfo(nil), b.tasks...)
}

// Status returns the current status of a task.
func (b *Batch) Status(taskID string) (Status, error) {
	return b.table.Status(taskID)
}

// Active returns the number of unfinished tasks.
func (b *Batch) Active() int {
	return b.table.Active()
}

// Cancel cancels one task. Its session is terminated and its outcome records
// a cancellation; other tasks are unaffected.
func (b *Batch) Cancel(taskID string) error {
	return b.table.Cancel(taskID, errors.ErrTaskCancelled)
}

// CancelAll cancels every unfinished task. Completed outcomes are kept.
func (b *Batch) CancelAll() {
	b.cancel(errors.ErrBatchCancelled)
}

// Done is closed once every task finished.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until every task finished and returns the outcomes in
// submission order.
func (b *Batch) Wait() []Outcome {
	<-b.done

	return append([]Outcome(nil), b.outcomes...)
}
