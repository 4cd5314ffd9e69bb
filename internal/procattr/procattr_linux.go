//go:build linux

// Package procattr places agent subprocesses in their own process group so a
// session can signal the CLI together with anything it spawned.
package procattr

import (
	"os/exec"
	"syscall"
)

// Apply puts cmd in a new process group. On Linux the child also receives
// SIGTERM if the parent dies, so agents are not orphaned by a crashed host.
func Apply(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}

	cmd.SysProcAttr.Setpgid = true
	cmd.SysProcAttr.Pdeathsig = syscall.SIGTERM
}
