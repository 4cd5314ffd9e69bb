// Package errors defines error types for claudeflow.
//
// This package provides structured error types that cover every failure
// scenario of a subprocess session and of an orchestration run: spawning the
// agent CLI, decoding its output, abnormal process exits, unsuccessful
// results reported by the agent, deadlines and caller cancellation. All error
// types support unwrapping and can be checked using errors.Is, errors.As and
// errors.AsType.
package errors
