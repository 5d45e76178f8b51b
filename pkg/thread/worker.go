package thread

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goworkers/threadpool/pkg/types"
)

// workerState defines the lifecycle state of a worker execution context
type workerState int32

const (
	// workerAvailable means the context is idle and dispatchable
	workerAvailable workerState = iota
	// workerBusy means a task is bound to the context
	workerBusy
	// workerCrashed means the context died abnormally
	workerCrashed
	// workerTerminated means the context was shut down deliberately
	workerTerminated
)

// String returns the string representation of workerState
func (ws workerState) String() string {
	switch ws {
	case workerAvailable:
		return "available"
	case workerBusy:
		return "busy"
	case workerCrashed:
		return "crashed"
	case workerTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// worker is an isolated execution context driven over a message-passing
// protocol. The owning scheduler sends Dispatch messages and consumes
// tagged Result messages through the sink; the worker never touches
// scheduler state directly.
type worker struct {
	id       string
	registry *Registry
	dispatch chan *types.Dispatch
	quit     chan struct{}
	done     chan struct{}
	state    int32 // atomic workerState

	// statistics
	processed int64
	failed    int64

	clock  types.Clock
	logger *zap.Logger

	// sink receives result messages; settable so a reserve-pooled context
	// can serve successive owners
	mu   sync.RWMutex
	sink func(*worker, types.Result)
}

// newWorker creates a worker execution context. Call start to run it.
func newWorker(registry *Registry, clock types.Clock, logger *zap.Logger) *worker {
	if clock == nil {
		clock = types.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &worker{
		id:       uuid.NewString(),
		registry: registry,
		dispatch: make(chan *types.Dispatch, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		clock:    clock,
		logger:   logger,
	}
}

// ID returns the context identity
func (w *worker) ID() string {
	return w.id
}

// State returns the current lifecycle state
func (w *worker) State() workerState {
	return workerState(atomic.LoadInt32(&w.state))
}

// setSink installs the result message consumer
func (w *worker) setSink(sink func(*worker, types.Result)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sink = sink
}

// emit posts a result message to the current sink
func (w *worker) emit(res types.Result) {
	w.mu.RLock()
	sink := w.sink
	w.mu.RUnlock()

	if sink != nil {
		sink(w, res)
	}
}

// start launches the context's goroutine
func (w *worker) start(ctx context.Context) {
	go w.run(ctx)
}

// send hands a dispatch message to the context. The scheduler binds at
// most one task per worker, so the buffered channel never blocks.
func (w *worker) send(d *types.Dispatch) {
	w.dispatch <- d
}

// run is the context's message pump. Exiting without a quit or context
// signal is a crash: a task body escaped the recovery barrier (for example
// via runtime.Goexit) or the pump itself panicked. The deferred detector
// converts that into a crash message for the scheduler.
func (w *worker) run(ctx context.Context) {
	// task bodies resolve the owning worker's clock via
	// types.ClockFromContext, so time stays mockable inside tasks
	ctx = types.WithClock(ctx, w.clock)

	normal := false
	defer func() {
		r := recover()
		if normal {
			close(w.done)
			return
		}

		atomic.StoreInt32(&w.state, int32(workerCrashed))
		var cause error
		if r != nil {
			cause = fmt.Errorf("panic: %v", r)
		}
		w.logger.Warn("worker crashed",
			zap.String("worker_id", w.id),
			zap.Error(cause))
		w.emit(types.Result{Kind: types.ResultCrash, Err: types.NewCrashError(w.id, cause)})
		close(w.done)
	}()

	for {
		select {
		case <-ctx.Done():
			normal = true
			atomic.StoreInt32(&w.state, int32(workerTerminated))
			return
		case <-w.quit:
			normal = true
			atomic.StoreInt32(&w.state, int32(workerTerminated))
			return
		case d := <-w.dispatch:
			w.process(ctx, d)
		}
	}
}

// process executes one dispatch message and posts the response
func (w *worker) process(ctx context.Context, d *types.Dispatch) {
	atomic.StoreInt32(&w.state, int32(workerBusy))
	defer atomic.StoreInt32(&w.state, int32(workerAvailable))

	res := w.invoke(ctx, d)

	if res.Kind == types.ResultSuccess {
		atomic.AddInt64(&w.processed, 1)
	} else {
		atomic.AddInt64(&w.failed, 1)
	}

	w.emit(res)
}

// invoke runs the task body behind a panic recovery barrier. A panic is a
// task-level failure with a captured stack; the context stays healthy.
func (w *worker) invoke(ctx context.Context, d *types.Dispatch) (res types.Result) {
	defer func() {
		if r := recover(); r != nil {
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)

			var cause error
			switch v := r.(type) {
			case error:
				cause = v
			default:
				cause = fmt.Errorf("panic: %v", v)
			}

			te := types.NewTaskError(cause).WithStack(string(buf[:n]))
			res = types.Result{Kind: failureKind(d.Mode), Err: te}
		}
	}()

	// adopt transferred buffers before the body runs
	for _, tr := range d.Transfers {
		if err := tr.Attach(); err != nil {
			return types.Result{Kind: failureKind(d.Mode), Err: types.NewTaskError(err)}
		}
	}

	fn, ok := w.registry.Lookup(d.Fn)
	if !ok {
		err := fmt.Errorf("%w: %q", types.ErrFuncNotFound, d.Fn)
		return types.Result{Kind: failureKind(d.Mode), Err: types.NewTaskError(err)}
	}

	value, err := fn(ctx, d.Args)
	if err != nil {
		return types.Result{Kind: failureKind(d.Mode), Err: types.NewTaskError(err)}
	}
	return types.Result{Kind: types.ResultSuccess, Value: value}
}

// failureKind maps a dispatch mode to its failure message shape. Persistent
// tasks have no future to reject, so their failures travel as a distinct
// variant.
func failureKind(m types.Mode) types.ResultKind {
	if m == types.ModePersistent {
		return types.ResultPersistentError
	}
	return types.ResultTaskError
}

// stop shuts the context down and waits for the pump to drain
func (w *worker) stop(timeout time.Duration) error {
	select {
	case <-w.quit:
		// already stopping
	default:
		close(w.quit)
	}

	select {
	case <-w.done:
		return nil
	case <-w.clock.After(timeout):
		return fmt.Errorf("worker %s stop timeout", w.id)
	}
}

// Stats reports the context's task counters
func (w *worker) Stats() (processed, failed int64) {
	return atomic.LoadInt64(&w.processed), atomic.LoadInt64(&w.failed)
}
