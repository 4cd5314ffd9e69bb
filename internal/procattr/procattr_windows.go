//go:build windows

// Package procattr places agent subprocesses in their own process group so a
// session can signal the CLI together with anything it spawned.
package procattr

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// Apply is a no-op on Windows.
func Apply(_ *exec.Cmd) {}

// Signal kills p. Windows has no process-group signals, so every signal is
// treated as a kill.
func Signal(p *os.Process, _ syscall.Signal) error {
	if p == nil {
		return nil
	}

	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}

	return nil
}

// Interrupt kills p.
func Interrupt(p *os.Process) error {
	return Signal(p, syscall.SIGTERM)
}

// Kill kills p.
func Kill(p *os.Process) error {
	return Signal(p, syscall.SIGKILL)
}

// Alive reports whether a process with the given pid still exists.
func Alive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	_ = p.Release()

	return true
}
