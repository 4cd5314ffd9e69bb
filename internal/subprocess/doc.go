// Package subprocess runs the agent CLI as a child process.
//
// A Session owns one process and its three pipes. Stdout is framed and
// decoded into records for a single consumer, stderr is captured for
// diagnostics, and termination escalates from SIGTERM to SIGKILL after a
// grace period so no session outlives its owner.
package subprocess
