package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wagiedev/claudeflow-go/internal/decode"
	"github.com/wagiedev/claudeflow-go/internal/message"
)

// script is the behavior of one fake session.
type script struct {
	lines []string
	end   error
	// block makes the session wait for its context after the lines.
	block bool
	// delay is spent before each message.
	delay time.Duration
}

func succeed(text string) script {
	return script{lines: []string{
		`{"type":"system","subtype":"init","session_id":"abc"}`,
		`{"type":"assistant","message":{"content":"` + text + `"}}`,
		`{"type":"result","subtype":"success","result":"` + text + `"}`,
	}}
}

func failWith(subtype string) script {
	return script{lines: []string{
		`{"type":"system","subtype":"init"}`,
		`{"type":"result","subtype":"` + subtype + `","is_error":true,"result":"failed"}`,
	}}
}

type fakeSource struct {
	script
	onClose func()
	once    sync.Once
}

func (f *fakeSource) Next(ctx context.Context) (*message.Message, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if len(f.lines) == 0 {
		if f.block {
			<-ctx.Done()

			return nil, ctx.Err()
		}

		if f.end != nil {
			return nil, f.end
		}

		return nil, io.EOF
	}

	line := f.lines[0]
	f.lines = f.lines[1:]

	return message.Classify(slog.Default(), decode.Parse(line)), nil
}

func (f *fakeSource) Close() error {
	f.once.Do(f.onClose)

	return nil
}

// fakeLauncher opens fake sessions. plan decides the behavior of each
// attempt of a spec; attempt counts from 1.
type fakeLauncher struct {
	plan func(spec Spec, attempt int) (script, error)

	mu       sync.Mutex
	attempts map[string]int
	launched []string
	prompts  []string

	live    atomic.Int32
	maxLive atomic.Int32
	closed  atomic.Int32
}

func newFakeLauncher(plan func(spec Spec, attempt int) (script, error)) *fakeLauncher {
	return &fakeLauncher{plan: plan, attempts: make(map[string]int)}
}

func (f *fakeLauncher) Launch(_ context.Context, spec Spec) (Source, error) {
	f.mu.Lock()
	f.attempts[spec.Name]++
	attempt := f.attempts[spec.Name]
	f.launched = append(f.launched, spec.Name)
	f.prompts = append(f.prompts, spec.Prompt)
	f.mu.Unlock()

	s, err := f.plan(spec, attempt)
	if err != nil {
		return nil, err
	}

	live := f.live.Add(1)
	for {
		prev := f.maxLive.Load()
		if live <= prev || f.maxLive.CompareAndSwap(prev, live) {
			break
		}
	}

	return &fakeSource{
		script: s,
		onClose: func() {
			f.live.Add(-1)
			f.closed.Add(1)
		},
	}, nil
}

func (f *fakeLauncher) Launched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.launched...)
}

func (f *fakeLauncher) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.prompts...)
}

func (f *fakeLauncher) Attempts(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.attempts[name]
}

// recordingSleeper records retry delays without waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()

	return context.Cause(ctx)
}

func (r *recordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]time.Duration(nil), r.delays...)
}

func newTestOrchestrator(l *fakeLauncher, opts ...Option) *Orchestrator {
	return New(slog.Default(), l.Launch, opts...)
}
