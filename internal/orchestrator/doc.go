// Package orchestrator runs many independent agent sessions.
//
// Three modes are provided:
//
//   - Parallel and Submit fan a list of specs out under a concurrency bound,
//     with optional fail-fast and per-task timeouts. Submit returns a Batch
//     whose tasks can be cancelled individually or together.
//   - Pipeline runs stages in order, building each stage's prompt from the
//     previous stage's output, and stops at the first failure.
//   - Retry re-runs a spec on transient failures with exponential backoff.
//
// Sessions are opened through a Launcher, so the package is independent of
// how agent processes are spawned. Each attempt is judged by its output: it
// succeeds only when the agent reports a successful result and the output
// ends cleanly.
package orchestrator
