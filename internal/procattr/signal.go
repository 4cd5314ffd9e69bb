//go:build unix

package procattr

import (
	"errors"
	"os"
	"syscall"
)

// Signal delivers sig to the process group led by p. A nil process or a
// group that has already exited is not an error.
func Signal(p *os.Process, sig syscall.Signal) error {
	if p == nil {
		return nil
	}

	err := syscall.Kill(-p.Pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}

	return err
}

// Interrupt asks the process group led by p to shut down.
func Interrupt(p *os.Process) error {
	return Signal(p, syscall.SIGTERM)
}

// Kill forcibly stops the process group led by p.
func Kill(p *os.Process) error {
	return Signal(p, syscall.SIGKILL)
}

// Alive reports whether a process with the given pid still exists.
// Zombies that have not been reaped count as alive.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}

	err := syscall.Kill(pid, 0)

	return err == nil || errors.Is(err, syscall.EPERM)
}
