// Package types defines the message protocol between the scheduler and
// worker execution contexts
package types

import "context"

// TaskFunc is the task payload contract: a registered function executed
// inside a worker execution context. The context has no access to the
// caller's lexical scope; every input must travel through args.
type TaskFunc func(ctx context.Context, args []any) (any, error)

// Mode selects the dispatch protocol for a task
type Mode int

const (
	// ModeExecute runs the task once and settles a single future
	ModeExecute Mode = iota
	// ModePersistent launches the task without a join; errors are delivered
	// through registered callbacks instead of a future
	ModePersistent
)

// String returns the string representation of Mode
func (m Mode) String() string {
	switch m {
	case ModeExecute:
		return "execute"
	case ModePersistent:
		return "persistent"
	default:
		return "unknown"
	}
}

// Transferable is a buffer-like value whose backing memory can be moved
// into a worker execution context instead of copied. Detach revokes the
// sender's access at dispatch; Attach adopts ownership on the receiving
// side before the task body runs.
type Transferable interface {
	Detach() error
	Attach() error
}

// Dispatch is the message sent to a worker execution context. Transfers
// carries the precomputed transferable set so the transport moves rather
// than copies those buffers.
type Dispatch struct {
	Mode      Mode
	Fn        string
	Args      []any
	Transfers []Transferable
}

// ResultKind discriminates worker response messages
type ResultKind int

const (
	// ResultSuccess carries the task's return value
	ResultSuccess ResultKind = iota
	// ResultTaskError carries a task-level failure; the worker stays healthy
	ResultTaskError
	// ResultPersistentError carries an ongoing failure from a persistent
	// task, delivered via callbacks rather than a future
	ResultPersistentError
	// ResultCrash signals the execution context itself died
	ResultCrash
)

// String returns the string representation of ResultKind
func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultTaskError:
		return "task-error"
	case ResultPersistentError:
		return "persistent-error"
	case ResultCrash:
		return "crash"
	default:
		return "unknown"
	}
}

// Result is the tagged response message posted back by a worker execution
// context. Consumers must switch exhaustively over Kind.
type Result struct {
	Kind  ResultKind
	Value any
	Err   error
}

// PoolStats is a point-in-time snapshot of scheduler state. All fields are
// O(1) reads; BusyWorkers == TotalWorkers - AvailableWorkers always.
type PoolStats struct {
	TotalWorkers     int
	AvailableWorkers int
	BusyWorkers      int
	QueuedTasks      int
}
