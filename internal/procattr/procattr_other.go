//go:build unix && !linux

// Package procattr places agent subprocesses in their own process group so a
// session can signal the CLI together with anything it spawned.
package procattr

import (
	"os/exec"
	"syscall"
)

// Apply puts cmd in a new process group. Pdeathsig is Linux-only.
func Apply(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}

	cmd.SysProcAttr.Setpgid = true
}
