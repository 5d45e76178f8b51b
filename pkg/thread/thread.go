package thread

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	interrors "github.com/goworkers/threadpool/internal/errors"
	"github.com/goworkers/threadpool/pkg/buffer"
	"github.com/goworkers/threadpool/pkg/types"
)

// ThreadConfig defines configuration for the single-task wrapper
type ThreadConfig struct {
	// Registry resolves dispatched function names (required)
	Registry *Registry

	// Reserve is an optional shared prewarm reserve; when set, one-shot
	// runs draw execution contexts from it and return them afterward
	Reserve *Reserve

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Logger for structured events (optional, defaults to no-op)
	Logger *zap.Logger

	// StopTimeout bounds the wait for a context to drain on release
	StopTimeout time.Duration
}

// Thread is the ergonomic one-shot entry point: a degenerate pool of size
// one reusing the scheduler's dispatch and transfer logic. Each Run
// acquires a single execution context, sends exactly one task, settles one
// future, and either returns the context to the shared reserve or stops it.
type Thread struct {
	registry    *Registry
	reserve     *Reserve
	clock       types.Clock
	logger      *zap.Logger
	stopTimeout time.Duration
}

// NewThread creates a single-task wrapper
func NewThread(config *ThreadConfig) (*Thread, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Registry == nil {
		return nil, fmt.Errorf("registry must be provided")
	}

	clock := config.Clock
	if clock == nil {
		clock = types.NewRealClock()
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	stopTimeout := config.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = 5 * time.Second
	}

	return &Thread{
		registry:    config.Registry,
		reserve:     config.Reserve,
		clock:       clock,
		logger:      logger,
		stopTimeout: stopTimeout,
	}, nil
}

// Run executes one task on a dedicated execution context and returns a
// join-style future. The TTL option bounds the hasn't-started-yet phase;
// there is no queue here, so with a free context the timer is disarmed
// immediately after acquisition.
func (t *Thread) Run(fn string, args []any, opts ...ExecOption) *Future[any] {
	o := &execOptions{}
	for _, opt := range opts {
		opt(o)
	}

	tk := newTask(fn, args)

	if o.ttl > 0 {
		ttl := o.ttl
		tk.ttlTimer = t.clock.AfterFunc(ttl, func() {
			if atomic.CompareAndSwapInt32(&tk.state, taskQueued, taskCancelled) {
				tk.future.reject(fmt.Errorf("%w: waited %v", types.ErrTTLExpired, ttl))
			}
		})
	}

	w, fromReserve := t.acquire()

	if !atomic.CompareAndSwapInt32(&tk.state, taskQueued, taskDispatched) {
		// ttl fired while the context was being acquired
		t.release(w, fromReserve, false)
		return tk.future
	}
	if tk.ttlTimer != nil {
		tk.ttlTimer.Stop()
		tk.ttlTimer = nil
	}

	if err := detachAll(tk.transfers); err != nil {
		atomic.StoreInt32(&tk.state, taskSettled)
		tk.future.reject(types.NewTaskError(err))
		t.release(w, fromReserve, false)
		return tk.future
	}

	w.setSink(func(w *worker, res types.Result) {
		atomic.StoreInt32(&tk.state, taskSettled)
		crashed := false

		switch res.Kind {
		case types.ResultSuccess:
			tk.future.resolve(res.Value)
		case types.ResultTaskError, types.ResultPersistentError:
			tk.future.reject(res.Err)
		case types.ResultCrash:
			crashed = true
			tk.future.reject(res.Err)
		}

		// release from a fresh goroutine: the sink runs on the worker's
		// own goroutine, which must return before the context can drain
		go t.release(w, fromReserve, crashed)
	})

	w.send(&types.Dispatch{
		Mode:      types.ModeExecute,
		Fn:        tk.fn,
		Args:      tk.args,
		Transfers: asTransferables(tk.transfers),
	})

	return tk.future
}

// acquire takes an execution context from the shared reserve when one is
// available, otherwise creates a fresh one
func (t *Thread) acquire() (*worker, bool) {
	if t.reserve != nil {
		if w, ok := t.reserve.take(); ok {
			return w, true
		}
	}
	w := newWorker(t.registry, t.clock, t.logger)
	w.start(context.Background())
	return w, false
}

// release returns a healthy reserve-owned context to the reserve and stops
// everything else. Crashed contexts are never reused.
func (t *Thread) release(w *worker, fromReserve, crashed bool) {
	if fromReserve && !crashed && t.reserve != nil {
		w.setSink(nil)
		t.reserve.put(w)
		return
	}
	if crashed {
		return // the goroutine is already gone
	}
	if err := w.stop(t.stopTimeout); err != nil {
		t.logger.Warn("thread worker stop failed",
			zap.String("worker_id", w.id),
			zap.Error(err))
	}
}

// PersistentHandle controls a task launched without a join. Ongoing errors
// are delivered to every registered callback; there is no single future to
// reject.
type PersistentHandle struct {
	worker   *worker
	thread   *Thread
	cancel   context.CancelFunc
	handlers *interrors.Chain
	errCbs   *interrors.CallbackHandler
	done     int32 // atomic
}

// LaunchPersistent starts a task that is never joined. The execution
// context is always freshly created: a persistent context is terminated
// explicitly by the caller and never returned to a reserve, so prewarming
// gains nothing.
func (t *Thread) LaunchPersistent(fn string, args []any) *PersistentHandle {
	ctx, cancel := context.WithCancel(context.Background())

	w := newWorker(t.registry, t.clock, t.logger)

	cbs := interrors.NewCallbackHandler()
	chain := interrors.NewChain(
		interrors.NewLoggingHandler(t.logger),
		cbs,
	)

	h := &PersistentHandle{
		worker:   w,
		thread:   t,
		cancel:   cancel,
		handlers: chain,
		errCbs:   cbs,
	}

	w.setSink(func(w *worker, res types.Result) {
		switch res.Kind {
		case types.ResultSuccess:
			// a persistent task returning normally has nothing to deliver
		case types.ResultTaskError, types.ResultPersistentError, types.ResultCrash:
			if atomic.LoadInt32(&h.done) == 1 {
				return
			}
			_ = chain.HandleError(context.Background(), &interrors.ErrorContext{
				Err:       res.Err,
				WorkerID:  w.id,
				Source:    res.Kind.String(),
				Timestamp: t.clock.Now(),
			})
		}
	})

	w.start(ctx)

	transfers := buffer.ExtractArgs(args)
	if err := detachAll(transfers); err != nil {
		// surfaced like any other ongoing error
		_ = chain.HandleError(context.Background(), &interrors.ErrorContext{
			Err:       types.NewTaskError(err),
			WorkerID:  w.id,
			Source:    "transfer",
			Timestamp: t.clock.Now(),
		})
		return h
	}

	w.send(&types.Dispatch{
		Mode:      types.ModePersistent,
		Fn:        fn,
		Args:      args,
		Transfers: asTransferables(transfers),
	})

	return h
}

// OnError registers a callback for ongoing errors. Chainable; every
// registered callback is invoked for every error.
func (h *PersistentHandle) OnError(cb func(error)) *PersistentHandle {
	h.errCbs.Add(cb)
	return h
}

// Terminate stops the persistent execution context. Idempotent.
func (h *PersistentHandle) Terminate() {
	if !atomic.CompareAndSwapInt32(&h.done, 0, 1) {
		return
	}
	h.cancel()
	go func() {
		if err := h.worker.stop(h.thread.stopTimeout); err != nil {
			h.thread.logger.Warn("persistent worker stop failed",
				zap.String("worker_id", h.worker.id),
				zap.Error(err))
		}
	}()
}
