package orchestrator

import (
	"context"
	"slices"
	"sync"

	"github.com/wagiedev/claudeflow-go/internal/errors"
)

// SessionTable tracks the tasks of one batch by ID. It holds each task's
// status and the cancel function of its context.
type SessionTable struct {
	mu      sync.RWMutex
	entries map[string]*tableEntry
	order   []string
}

type tableEntry struct {
	index  int
	name   string
	status Status
	cancel context.CancelCauseFunc
}

// NewSessionTable creates an empty table.
func NewSessionTable() *SessionTable {
	return &SessionTable{entries: make(map[string]*tableEntry)}
}

// Add registers a pending task.
func (t *SessionTable) Add(id string, index int, name string, cancel context.CancelCauseFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[id] = &tableEntry{index: index, name: name, status: StatusPending, cancel: cancel}
	t.order = append(t.order, id)
}

// SetStatus updates the status of id. Terminal statuses are never replaced.
func (t *SessionTable) SetStatus(id string, status Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.entries[id]; ok && !entry.status.Done() {
		entry.status = status
	}
}

// Status returns the status of id.
func (t *SessionTable) Status(id string) (Status, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, ok := t.entries[id]
	if !ok {
		return "", errors.ErrUnknownTask
	}

	return entry.status, nil
}

// Cancel cancels the context of id with cause. Cancelling a finished task
// has no effect.
func (t *SessionTable) Cancel(id string, cause error) error {
	t.mu.RLock()
	entry, ok := t.entries[id]
	t.mu.RUnlock()

	if !ok {
		return errors.ErrUnknownTask
	}

	entry.cancel(cause)

	return nil
}

// IDs returns task IDs in submission order.
func (t *SessionTable) IDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return slices.Clone(t.order)
}

// Active returns the number of tasks that have not finished.
func (t *SessionTable) Active() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0

	for _, entry := range t.entries {
		if !entry.status.Done() {
			n++
		}
	}

	return n
}
