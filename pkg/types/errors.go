// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrNotRunning indicates the pool has not been started or has been terminated
	ErrNotRunning = errors.New("pool is not running")

	// ErrPoolTerminated indicates the task was still queued when the pool terminated
	ErrPoolTerminated = errors.New("pool terminated before task dispatch")

	// ErrTTLExpired indicates a queued task waited past its deadline without
	// being dispatched to a worker
	ErrTTLExpired = errors.New("task ttl expired before dispatch")

	// ErrWorkerCrashed indicates the worker execution context died while the
	// task was bound to it
	ErrWorkerCrashed = errors.New("worker crashed")

	// ErrFuncNotFound indicates the dispatched function name is not registered
	ErrFuncNotFound = errors.New("function not registered")

	// ErrBufferDetached indicates access to a buffer whose ownership has been
	// transferred away
	ErrBufferDetached = errors.New("buffer is detached")

	// ErrThreadTerminated indicates the persistent thread was terminated by
	// the caller
	ErrThreadTerminated = errors.New("thread terminated")
)

// TaskError represents a failure raised by a submitted task function. It
// preserves the original message and, when the failure was a panic, the
// stack trace captured inside the worker execution context.
type TaskError struct {
	// Message is the original failure message
	Message string

	// Stack is the stack trace captured in the execution context, if any
	Stack string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *TaskError) Error() string {
	return fmt.Sprintf("task error: %s", e.Message)
}

// Unwrap returns the underlying error
func (e *TaskError) Unwrap() error {
	return e.Cause
}

// NewTaskError creates a task error from an underlying cause
func NewTaskError(cause error) *TaskError {
	return &TaskError{
		Message: cause.Error(),
		Cause:   cause,
	}
}

// WithStack attaches a captured stack trace
func (e *TaskError) WithStack(stack string) *TaskError {
	e.Stack = stack
	return e
}

// CrashError represents a worker-level crash: the execution context itself
// died, as opposed to the submitted function failing.
type CrashError struct {
	// WorkerID identifies the crashed execution context
	WorkerID string

	// Cause is the recovered crash value, if one was observed
	Cause error
}

// Error implements the error interface
func (e *CrashError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("worker %s crashed: %v", e.WorkerID, e.Cause)
	}
	return fmt.Sprintf("worker %s crashed", e.WorkerID)
}

// Unwrap tags the crash so callers can match with errors.Is(err, ErrWorkerCrashed)
func (e *CrashError) Unwrap() error {
	return ErrWorkerCrashed
}

// NewCrashError creates a crash error for the given worker
func NewCrashError(workerID string, cause error) *CrashError {
	return &CrashError{WorkerID: workerID, Cause: cause}
}

// ErrorHandler defines an error observation hook. The returned error, if
// non-nil, replaces the original before it is surfaced to the caller.
type ErrorHandler func(error) error
