package subprocess

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/wagiedev/claudeflow-go/internal/decode"
	"github.com/wagiedev/claudeflow-go/internal/errors"
	"github.com/wagiedev/claudeflow-go/internal/procattr"
)

const (
	// DefaultGracePeriod is how long Terminate waits after SIGTERM before
	// escalating to SIGKILL.
	DefaultGracePeriod = 2 * time.Second

	// ExitCodeKilled is the exit code recorded for a process that was ended by
	// a signal and never reported its own status.
	ExitCodeKilled = -1
)

// State is the lifecycle state of a Session.
type State int32

const (
	// StateNotStarted is the initial state.
	StateNotStarted State = iota
	// StateRunning means the process has been spawned and not yet reaped.
	StateRunning
	// StateTerminated is final. The exit code is available.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config describes the process a Session runs.
type Config struct {
	// Path is the executable to run.
	Path string

	// Args are passed to the executable in order.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env holds KEY=VALUE overrides appended to the parent environment.
	Env []string

	// GracePeriod bounds the wait between SIGTERM and SIGKILL.
	// Zero means DefaultGracePeriod.
	GracePeriod time.Duration

	// Stderr, if set, receives every stderr line as it arrives.
	Stderr func(string)
}

// Session owns exactly one agent subprocess and its pipes.
//
// Stdout is decoded into records and handed out through Next; stderr is
// captured separately and never mixed into the record stream. A Session is
// single-use: once terminated it cannot be started again.
type Session struct {
	log *slog.Logger
	cfg Config

	mu          sync.Mutex // protects state, cmd, terminating
	state       State
	started     bool
	terminating bool
	cmd         *exec.Cmd

	stdinMu     sync.Mutex // serializes stdin writers
	stdin       io.WriteCloser
	stdinClosed atomic.Bool

	records chan decode.Record
	readErr error // set before records is closed

	stop     chan struct{}
	stopOnce sync.Once

	done     chan struct{} // closed once the process is reaped
	exitCode int
	exitErr  error
	killed   atomic.Bool

	stderr *stderrBuffer
}

// New creates a Session in the not-started state.
func New(log *slog.Logger, cfg Config) *Session {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}

	return &Session{
		log:     log.With("component", "subprocess"),
		cfg:     cfg,
		records: make(chan decode.Record),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		stderr:  newStderrBuffer(maxStderrBufferSize),
	}
}

// Start spawns the process and returns without waiting for output.
//
// The process lifetime is bound to ctx: cancelling ctx terminates the
// session. Start returns *errors.SpawnError if the process cannot be
// launched, and ErrSessionStarted or ErrSessionTerminated if the session
// already left the not-started state.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateRunning:
		return errors.ErrSessionStarted
	case StateTerminated:
		return errors.ErrSessionTerminated
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if s.cfg.Path == "" {
		return &errors.SpawnError{Err: exec.ErrNotFound}
	}

	if s.cfg.Dir != "" {
		if err := checkDir(s.cfg.Dir); err != nil {
			s.log.Error("Invalid working directory", "dir", s.cfg.Dir, "error", err)

			return &errors.SpawnError{Path: s.cfg.Path, Err: err}
		}
	}

	s.log.Info("Starting agent subprocess", "path", s.cfg.Path)
	s.log.Debug("Subprocess arguments", "args", s.cfg.Args, "dir", s.cfg.Dir)

	//nolint:gosec // G204: launching the agent CLI with dynamic args is the point
	cmd := exec.Command(s.cfg.Path, s.cfg.Args...)
	cmd.Dir = s.cfg.Dir
	cmd.Env = append(os.Environ(), s.cfg.Env...)
	procattr.Apply(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return s.spawnError(fmt.Errorf("stdin pipe: %w", err))
	}

	// Output pipes are created here rather than through StdoutPipe so that
	// reaping the process never races with reading its remaining output.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()

		return s.spawnError(fmt.Errorf("stdout pipe: %w", err))
	}

	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		closeAll(stdoutR, stdoutW)

		return s.spawnError(fmt.Errorf("stderr pipe: %w", err))
	}

	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		closeAll(stdoutR, stdoutW, stderrR, stderrW)

		return s.spawnError(err)
	}

	// The child holds its own copies of the write ends.
	closeAll(stdoutW, stderrW)

	s.cmd = cmd
	s.stdin = stdin
	s.state = StateRunning
	s.started = true

	s.log.Info("Agent subprocess started", "pid", cmd.Process.Pid)

	stopAfter := context.AfterFunc(ctx, func() {
		s.log.Debug("Context done, terminating subprocess", "cause", context.Cause(ctx))

		_ = s.Terminate()
	})

	stderrDone := make(chan struct{})

	go func() {
		defer close(stderrDone)

		s.stderr.readFrom(s.log, stderrR, s.cfg.Stderr)
	}()

	go s.readStdout(stdoutR)
	go s.wait(stderrR, stderrDone, stopAfter)

	return nil
}

// spawnError classifies a launch failure. Missing binaries, permission
// problems and bad executables are permanent; anything else may succeed on
// a later attempt.
func (s *Session) spawnError(err error) error {
	s.log.Error("Failed to start agent subprocess", "path", s.cfg.Path, "error", err)

	permanent := stderrors.Is(err, fs.ErrNotExist) ||
		stderrors.Is(err, fs.ErrPermission) ||
		stderrors.Is(err, exec.ErrNotFound) ||
		stderrors.Is(err, exec.ErrDot) ||
		stderrors.Is(err, syscall.ENOEXEC) ||
		stderrors.Is(err, syscall.ENOTDIR)

	return &errors.SpawnError{Path: s.cfg.Path, Err: err, Transient: !permanent}
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("working directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("working directory %s: %w", dir, syscall.ENOTDIR)
	}

	return nil
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

// readStdout decodes stdout into records until EOF or until the session is
// stopped. The records channel is unbuffered so the process is only read as
// fast as the consumer pulls.
func (s *Session) readStdout(r *os.File) {
	defer close(s.records)
	defer r.Close()
	defer s.log.Debug("Stdout reader stopped")

	reader := decode.NewReader(r)
	count := 0

	for {
		rec, err := reader.Next()
		if err != nil {
			if !stderrors.Is(err, io.EOF) && !stderrors.Is(err, os.ErrClosed) && !s.isTerminating() {
				s.log.Error("Failed reading agent output", "error", err)

				s.readErr = fmt.Errorf("read stdout: %w", err)
			}

			return
		}

		count++
		s.log.Debug("Received line from agent", "line_count", count, "valid", rec.Valid())

		select {
		case s.records <- rec:
		case <-s.stop:
			return
		}
	}
}

// wait reaps the process and records its exit status.
func (s *Session) wait(stderrR *os.File, stderrDone <-chan struct{}, stopAfter func() bool) {
	err := s.cmd.Wait()

	// A descendant that escaped the process group can hold stderr open
	// after the agent itself exited.
	select {
	case <-stderrDone:
	case <-time.After(s.cfg.GracePeriod):
		s.log.Warn("Stderr still open after agent exit, closing")

		_ = stderrR.Close()
		<-stderrDone
	}

	stopAfter()

	exitCode := ExitCodeKilled
	if state := s.cmd.ProcessState; state != nil {
		exitCode = state.ExitCode()
	}

	s.mu.Lock()
	terminating := s.terminating
	s.mu.Unlock()

	switch {
	case err == nil:
		s.log.Info("Agent subprocess exited", "exit_code", exitCode)
	case terminating:
		s.log.Debug("Agent subprocess ended during termination", "exit_code", exitCode, "killed", s.killed.Load())
	default:
		stderrText := s.Stderr()

		s.log.Error("Agent subprocess exited with error", "exit_code", exitCode, "stderr", stderrText)

		s.exitErr = &errors.ProcessError{ExitCode: exitCode, Stderr: stderrText, Err: err}
	}

	s.exitCode = exitCode

	s.mu.Lock()
	s.state = StateTerminated
	s.mu.Unlock()

	_ = s.closeStdin()
	close(s.done)
}

func (s *Session) isTerminating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.terminating
}

// Next returns the next stdout record. It blocks until a record arrives,
// the output ends or ctx is done.
//
// At the end of output Next waits for the process to be reaped and then
// returns io.EOF, or *errors.ProcessError if the process exited abnormally
// without being asked to terminate.
func (s *Session) Next(ctx context.Context) (decode.Record, error) {
	s.mu.Lock()
	started := s.started
	state := s.state
	s.mu.Unlock()

	if !started {
		if state == StateTerminated {
			return decode.Record{}, errors.ErrSessionTerminated
		}

		return decode.Record{}, errors.ErrNotStarted
	}

	select {
	case rec, ok := <-s.records:
		if ok {
			return rec, nil
		}
	case <-ctx.Done():
		return decode.Record{}, ctx.Err()
	}

	select {
	case <-s.done:
	case <-ctx.Done():
		return decode.Record{}, ctx.Err()
	}

	if s.readErr != nil {
		return decode.Record{}, s.readErr
	}

	if s.exitErr != nil {
		return decode.Record{}, s.exitErr
	}

	return decode.Record{}, io.EOF
}

// Send writes one newline-terminated message to the process's stdin.
//
// Writes are serialized. If ctx is cancelled while a write is blocked,
// stdin is closed to unblock it and later calls return ErrInputClosed.
func (s *Session) Send(ctx context.Context, data []byte) error {
	s.stdinMu.Lock()
	defer s.stdinMu.Unlock()

	if s.stdin == nil {
		return errors.ErrNotStarted
	}

	if s.stdinClosed.Load() {
		return errors.ErrInputClosed
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.log.Debug("Sending message to agent", "data_len", len(data))

	// Copy rather than append so the caller's backing array is never touched.
	if len(data) == 0 || data[len(data)-1] != '\n' {
		framed := make([]byte, len(data)+1)
		copy(framed, data)
		framed[len(data)] = '\n'
		data = framed
	}

	written := make(chan error, 1)

	go func() {
		_, err := s.stdin.Write(data)
		written <- err
	}()

	select {
	case err := <-written:
		if err != nil {
			s.log.Error("Failed to write to agent stdin", "error", err)

			return fmt.Errorf("write to stdin: %w", err)
		}

		return nil
	case <-ctx.Done():
		s.log.Debug("Context cancelled during write, closing stdin")

		s.closeStdin()

		select {
		case <-written:
		case <-time.After(time.Second):
			s.log.Warn("Write goroutine did not exit after stdin close")
		}

		return ctx.Err()
	}
}

// CloseInput closes stdin, signalling end of input. It is idempotent.
func (s *Session) CloseInput() error {
	if s.Pid() == 0 {
		return errors.ErrNotStarted
	}

	s.log.Debug("Closing stdin pipe")

	return s.closeStdin()
}

// closeStdin does not take stdinMu so it can unblock a writer stuck on a
// full pipe.
func (s *Session) closeStdin() error {
	if s.stdin == nil || !s.stdinClosed.CompareAndSwap(false, true) {
		return nil
	}

	return s.stdin.Close()
}

// Terminate stops the process: SIGTERM to its process group, then SIGKILL
// if it is still alive after the grace period. It returns once the process
// has been reaped. Terminate is idempotent and safe for concurrent use; on a
// session that was never started it moves straight to terminated.
func (s *Session) Terminate() error {
	s.mu.Lock()

	switch {
	case s.state == StateNotStarted:
		s.state = StateTerminated
		s.exitCode = ExitCodeKilled
		close(s.done)
		s.mu.Unlock()

		return nil
	case s.state == StateTerminated && !s.terminating:
		s.mu.Unlock()

		return nil
	case s.terminating:
		s.mu.Unlock()
		<-s.done

		return nil
	}

	s.terminating = true
	proc := s.cmd.Process
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.stop) })
	_ = s.closeStdin()

	s.log.Debug("Terminating agent subprocess", "pid", proc.Pid, "grace_period", s.cfg.GracePeriod)

	if err := procattr.Interrupt(proc); err != nil {
		s.log.Debug("Failed to signal process group", "pid", proc.Pid, "error", err)
	}

	timer := time.NewTimer(s.cfg.GracePeriod)
	defer timer.Stop()

	select {
	case <-s.done:
		return nil
	case <-timer.C:
	}

	s.log.Warn("Agent subprocess ignored SIGTERM, killing", "pid", proc.Pid)

	s.killed.Store(true)

	var killErr error
	if err := procattr.Kill(proc); err != nil {
		killErr = fmt.Errorf("kill agent process (pid %d): %w", proc.Pid, err)
	}

	<-s.done

	return killErr
}

// Wait blocks until the process is reaped or ctx is done. It returns the
// exit code and the abnormal-exit error, if any.
func (s *Session) Wait(ctx context.Context) (int, error) {
	select {
	case <-s.done:
		return s.exitCode, s.exitErr
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Done is closed once the session is terminated.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// ExitCode returns the exit code once the session is terminated.
func (s *Session) ExitCode() (int, bool) {
	select {
	case <-s.done:
		return s.exitCode, true
	default:
		return 0, false
	}
}

// Killed reports whether Terminate had to escalate to SIGKILL.
func (s *Session) Killed() bool {
	return s.killed.Load()
}

// Pid returns the process id, or 0 if the process was never started.
func (s *Session) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}

	return s.cmd.Process.Pid
}

// Stderr returns the captured stderr, with Bun source-context lines removed.
func (s *Session) Stderr() string {
	return cleanStderr(s.stderr.String())
}
