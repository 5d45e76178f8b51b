package thread

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/goworkers/threadpool/pkg/buffer"
	"github.com/goworkers/threadpool/pkg/queue"
	"github.com/goworkers/threadpool/pkg/types"
)

// taskIDCounter is the global task ID counter
var taskIDCounter int64

// task states
const (
	taskQueued int32 = iota
	taskDispatched
	taskCancelled
	taskSettled
)

// task is one unit of work admitted to the scheduler. The transfer set is
// extracted once at admission and reused on dispatch.
type task struct {
	id        string
	fn        string
	args      []any
	transfers []*buffer.Buffer
	future    *Future[any]
	ttlTimer  types.Timer
	state     int32 // atomic
}

func newTask(fn string, args []any) *task {
	id := atomic.AddInt64(&taskIDCounter, 1)
	return &task{
		id:        fmt.Sprintf("task-%d", id),
		fn:        fn,
		args:      args,
		transfers: buffer.ExtractArgs(args),
		future:    newFuture[any](),
	}
}

// execOptions holds per-submission options
type execOptions struct {
	ttl time.Duration
}

// ExecOption configures a single submission
type ExecOption func(*execOptions)

// WithTTL bounds how long the task may wait in queue before being rejected.
// The deadline applies to queueing only; once dispatched the task runs to
// completion. WithTTL(0) disables the pool default for this submission.
func WithTTL(d time.Duration) ExecOption {
	return func(o *execOptions) {
		o.ttl = d
	}
}

// pool states
const (
	stateRunning int32 = iota + 1
	stateTerminated
)

// Config defines configuration for a worker pool
type Config struct {
	// Size is the fixed number of worker execution contexts
	Size int

	// DefaultTTL bounds queueing latency for submissions that don't set
	// their own TTL; zero means queued tasks wait indefinitely
	DefaultTTL time.Duration

	// Registry resolves dispatched function names (required)
	Registry *Registry

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Logger for structured events (optional, defaults to no-op)
	Logger *zap.Logger

	// ErrorHandler observes task errors and crashes before they settle a
	// future; a non-nil return value replaces the original error
	ErrorHandler types.ErrorHandler

	// StopTimeout bounds the per-worker wait during Terminate
	StopTimeout time.Duration
}

// DefaultConfig returns default configuration. Registry must still be set
// by the caller.
func DefaultConfig() *Config {
	return &Config{
		Size:        runtime.NumCPU(),
		Clock:       types.NewRealClock(),
		StopTimeout: 5 * time.Second,
	}
}

// Pool is the admission-control and dispatch state machine: it owns a fixed
// set of worker execution contexts, admits tasks into a FIFO queue,
// dispatches to free workers, applies per-task queueing TTLs, and replaces
// crashed workers 1:1 so the configured size self-heals.
//
// All bookkeeping runs under one mutex, so admission, dispatch, completion,
// and crash handling are mutually exclusive by construction.
type Pool struct {
	config   *Config
	registry *Registry
	clock    types.Clock
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	workers   map[string]*worker
	available []*worker
	binding   map[string]*task // busy worker ID -> bound task
	taskQueue *queue.Queue[*task]

	state    int32 // atomic
	termOnce sync.Once
}

// New creates and starts a worker pool
func New(config *Config) (*Pool, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Size <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", config.Size)
	}
	if config.Registry == nil {
		return nil, fmt.Errorf("registry must be provided")
	}
	if config.Clock == nil {
		config.Clock = types.NewRealClock()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		config:    config,
		registry:  config.Registry,
		clock:     config.Clock,
		logger:    config.Logger,
		ctx:       ctx,
		cancel:    cancel,
		workers:   make(map[string]*worker),
		available: make([]*worker, 0, config.Size),
		binding:   make(map[string]*task),
		taskQueue: queue.New[*task](),
		state:     stateRunning,
	}

	for i := 0; i < config.Size; i++ {
		w := p.spawnWorker()
		p.workers[w.id] = w
		p.available = append(p.available, w)
	}

	return p, nil
}

// spawnWorker creates and starts one execution context wired to the pool
func (p *Pool) spawnWorker() *worker {
	w := newWorker(p.registry, p.clock, p.logger)
	w.setSink(p.handleResult)
	w.start(p.ctx)
	return w
}

// Exec admits one task for execution on a free worker. The returned future
// settles exactly once: with the task's value, its error, a TTL expiry, a
// crash, or pool termination. If no worker is free at admission time and a
// TTL applies (explicit or pool default), a timer bounds the queueing wait;
// it is disarmed the instant the task dispatches.
func (p *Pool) Exec(fn string, args []any, opts ...ExecOption) *Future[any] {
	if atomic.LoadInt32(&p.state) != stateRunning {
		return rejected[any](types.ErrNotRunning)
	}

	o := &execOptions{ttl: p.config.DefaultTTL}
	for _, opt := range opts {
		opt(o)
	}

	t := newTask(fn, args)

	p.mu.Lock()
	defer p.mu.Unlock()

	// terminate may have won the race since the fast check
	if atomic.LoadInt32(&p.state) != stateRunning {
		t.future.reject(types.ErrNotRunning)
		return t.future
	}

	p.taskQueue.Enqueue(t)

	if len(p.available) == 0 && o.ttl > 0 {
		ttl := o.ttl
		t.ttlTimer = p.clock.AfterFunc(ttl, func() {
			p.expire(t, ttl)
		})
	}

	p.processQueue()
	return t.future
}

// Map fans out one task per item and resolves with the results in the
// caller's item order, regardless of completion order. The first failure
// fails the whole operation; there is no partial-results mode.
func (p *Pool) Map(fn string, items []any, opts ...ExecOption) *Future[[]any] {
	futures := make([]*Future[any], len(items))
	for i, item := range items {
		futures[i] = p.Exec(fn, []any{item}, opts...)
	}

	out := newFuture[[]any]()
	go func() {
		results := make([]any, len(futures))
		for i, f := range futures {
			v, err := f.Await(context.Background())
			if err != nil {
				out.reject(err)
				return
			}
			results[i] = v
		}
		out.resolve(results)
	}()
	return out
}

// expire fires when a task waited past its TTL without being dispatched.
// The task stays in the queue and is skipped lazily on its FIFO turn.
func (p *Pool) expire(t *task, ttl time.Duration) {
	if atomic.CompareAndSwapInt32(&t.state, taskQueued, taskCancelled) {
		p.logger.Debug("task ttl expired in queue",
			zap.String("task_id", t.id),
			zap.Duration("ttl", ttl))
		t.future.reject(fmt.Errorf("%w: waited %v", types.ErrTTLExpired, ttl))
	}
}

// processQueue is the sole dispatch site. It runs under the pool mutex
// after every admission, completion, and crash, so the queue continuously
// drains as capacity frees up. Tasks cancelled by TTL while queued are
// skipped on their turn.
func (p *Pool) processQueue() {
	for len(p.available) > 0 {
		t, ok := p.taskQueue.Dequeue()
		if !ok {
			return
		}
		if !atomic.CompareAndSwapInt32(&t.state, taskQueued, taskDispatched) {
			// expired while queued; the worker stays available
			continue
		}
		if t.ttlTimer != nil {
			t.ttlTimer.Stop()
			t.ttlTimer = nil
		}

		// move buffer ownership out of the caller's hands
		if err := detachAll(t.transfers); err != nil {
			atomic.StoreInt32(&t.state, taskSettled)
			t.future.reject(types.NewTaskError(err))
			continue
		}

		n := len(p.available) - 1
		w := p.available[n]
		p.available[n] = nil
		p.available = p.available[:n]
		p.binding[w.id] = t

		w.send(&types.Dispatch{
			Mode:      types.ModeExecute,
			Fn:        t.fn,
			Args:      t.args,
			Transfers: asTransferables(t.transfers),
		})
	}
}

// handleResult consumes a worker's tagged response message
func (p *Pool) handleResult(w *worker, res types.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if atomic.LoadInt32(&p.state) != stateRunning {
		return
	}

	t := p.binding[w.id]
	delete(p.binding, w.id)

	switch res.Kind {
	case types.ResultSuccess:
		p.available = append(p.available, w)
		if t != nil {
			atomic.StoreInt32(&t.state, taskSettled)
			t.future.resolve(res.Value)
		}

	case types.ResultTaskError, types.ResultPersistentError:
		// the task failed; the worker itself stays healthy and reusable
		p.available = append(p.available, w)
		if t != nil {
			atomic.StoreInt32(&t.state, taskSettled)
			t.future.reject(p.applyHandler(res.Err))
		}

	case types.ResultCrash:
		delete(p.workers, w.id)
		p.removeAvailable(w)

		// 1:1 synchronous replacement keeps the configured size
		nw := p.spawnWorker()
		p.workers[nw.id] = nw
		p.available = append(p.available, nw)
		p.logger.Info("worker replaced after crash",
			zap.String("crashed_id", w.id),
			zap.String("replacement_id", nw.id))

		if t != nil {
			atomic.StoreInt32(&t.state, taskSettled)
			t.future.reject(p.applyHandler(res.Err))
		}
	}

	p.processQueue()
}

// applyHandler runs the configured error observation hook
func (p *Pool) applyHandler(err error) error {
	if p.config.ErrorHandler == nil {
		return err
	}
	if replaced := p.config.ErrorHandler(err); replaced != nil {
		return replaced
	}
	return err
}

// removeAvailable drops w from the available list if present (a worker can
// crash between unbinding and redispatch)
func (p *Pool) removeAvailable(w *worker) {
	for i, aw := range p.available {
		if aw == w {
			p.available = append(p.available[:i], p.available[i+1:]...)
			return
		}
	}
}

// Stats returns a point-in-time snapshot of pool state. All reads are O(1)
// and taken under the scheduler lock, so the size invariant holds at every
// observation point.
func (p *Pool) Stats() types.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := len(p.workers)
	avail := len(p.available)
	return types.PoolStats{
		TotalWorkers:     total,
		AvailableWorkers: avail,
		BusyWorkers:      total - avail,
		QueuedTasks:      p.taskQueue.Len(),
	}
}

// Size returns the configured pool size
func (p *Pool) Size() int {
	return p.config.Size
}

// IsRunning reports whether the pool accepts submissions
func (p *Pool) IsRunning() bool {
	return atomic.LoadInt32(&p.state) == stateRunning
}

// Terminate shuts the pool down: every outstanding TTL timer is cleared,
// every unsettled task is rejected with ErrPoolTerminated, and every worker
// execution context is stopped. Afterward TotalWorkers is zero and no
// further dispatch is possible. Terminate is idempotent.
func (p *Pool) Terminate() error {
	var stopErr error

	p.termOnce.Do(func() {
		atomic.StoreInt32(&p.state, stateTerminated)

		p.mu.Lock()

		for {
			t, ok := p.taskQueue.Dequeue()
			if !ok {
				break
			}
			if t.ttlTimer != nil {
				t.ttlTimer.Stop()
				t.ttlTimer = nil
			}
			if atomic.CompareAndSwapInt32(&t.state, taskQueued, taskCancelled) {
				t.future.reject(types.ErrPoolTerminated)
			}
		}
		p.taskQueue.Clear()

		// dispatched-but-unsettled tasks are rejected too; a result that
		// still arrives from a stopping worker is a no-op on the future
		for _, t := range p.binding {
			if t.ttlTimer != nil {
				t.ttlTimer.Stop()
				t.ttlTimer = nil
			}
			atomic.StoreInt32(&t.state, taskSettled)
			t.future.reject(types.ErrPoolTerminated)
		}

		workers := make([]*worker, 0, len(p.workers))
		for _, w := range p.workers {
			workers = append(workers, w)
		}
		p.workers = make(map[string]*worker)
		p.available = nil
		p.binding = make(map[string]*task)

		p.mu.Unlock()

		p.cancel()

		var wg sync.WaitGroup
		errCh := make(chan error, len(workers))
		for _, w := range workers {
			wg.Add(1)
			go func(w *worker) {
				defer wg.Done()
				if err := w.stop(p.config.StopTimeout); err != nil {
					errCh <- err
				}
			}(w)
		}
		wg.Wait()
		close(errCh)

		var errs []error
		for err := range errCh {
			errs = append(errs, err)
		}
		stopErr = errors.Join(errs...)

		p.logger.Info("pool terminated", zap.Int("workers_stopped", len(workers)))
	})

	return stopErr
}

// detachAll revokes caller access to the transfer set. On failure the
// already-detached buffers are re-attached so admission-time state is
// restored before the task is rejected.
func detachAll(transfers []*buffer.Buffer) error {
	for i, b := range transfers {
		if err := b.Detach(); err != nil {
			for j := 0; j < i; j++ {
				_ = transfers[j].Attach()
			}
			return fmt.Errorf("transfer of buffer %d: %w", i, err)
		}
	}
	return nil
}

func asTransferables(bufs []*buffer.Buffer) []types.Transferable {
	if len(bufs) == 0 {
		return nil
	}
	out := make([]types.Transferable, len(bufs))
	for i, b := range bufs {
		out[i] = b
	}
	return out
}
