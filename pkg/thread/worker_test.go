package thread

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goworkers/threadpool/pkg/types"
)

// resultSink collects worker messages for assertions
type resultSink struct {
	mu      sync.Mutex
	results []types.Result
	notify  chan struct{}
}

func newResultSink() *resultSink {
	return &resultSink{notify: make(chan struct{}, 16)}
}

func (s *resultSink) sink(_ *worker, res types.Result) {
	s.mu.Lock()
	s.results = append(s.results, res)
	s.mu.Unlock()
	s.notify <- struct{}{}
}

func (s *resultSink) wait(t *testing.T) types.Result {
	t.Helper()
	select {
	case <-s.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for worker result")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results[len(s.results)-1]
}

func testWorkerRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	r.MustRegister("double", func(ctx context.Context, args []any) (any, error) {
		return args[0].(int) * 2, nil
	})
	r.MustRegister("fail", func(ctx context.Context, args []any) (any, error) {
		return nil, errors.New("deliberate failure")
	})
	r.MustRegister("panic", func(ctx context.Context, args []any) (any, error) {
		panic("deliberate panic")
	})
	r.MustRegister("goexit", func(ctx context.Context, args []any) (any, error) {
		runtime.Goexit()
		return nil, nil
	})
	return r
}

func startTestWorker(t *testing.T, reg *Registry) (*worker, *resultSink) {
	t.Helper()
	s := newResultSink()
	w := newWorker(reg, nil, nil)
	w.setSink(s.sink)
	w.start(context.Background())
	return w, s
}

func TestWorker_Success(t *testing.T) {
	w, s := startTestWorker(t, testWorkerRegistry(t))
	defer w.stop(time.Second)

	w.send(&types.Dispatch{Mode: types.ModeExecute, Fn: "double", Args: []any{21}})

	res := s.wait(t)
	assert.Equal(t, types.ResultSuccess, res.Kind)
	assert.Equal(t, 42, res.Value)

	processed, failed := w.Stats()
	assert.Equal(t, int64(1), processed)
	assert.Equal(t, int64(0), failed)
}

func TestWorker_TaskError(t *testing.T) {
	w, s := startTestWorker(t, testWorkerRegistry(t))
	defer w.stop(time.Second)

	w.send(&types.Dispatch{Mode: types.ModeExecute, Fn: "fail", Args: nil})

	res := s.wait(t)
	assert.Equal(t, types.ResultTaskError, res.Kind)

	var te *types.TaskError
	require.ErrorAs(t, res.Err, &te)
	assert.Equal(t, "deliberate failure", te.Message)

	// the context survives a task error
	w.send(&types.Dispatch{Mode: types.ModeExecute, Fn: "double", Args: []any{1}})
	res = s.wait(t)
	assert.Equal(t, types.ResultSuccess, res.Kind)
}

func TestWorker_PanicBecomesTaskError(t *testing.T) {
	w, s := startTestWorker(t, testWorkerRegistry(t))
	defer w.stop(time.Second)

	w.send(&types.Dispatch{Mode: types.ModeExecute, Fn: "panic", Args: nil})

	res := s.wait(t)
	assert.Equal(t, types.ResultTaskError, res.Kind)

	var te *types.TaskError
	require.ErrorAs(t, res.Err, &te)
	assert.Contains(t, te.Message, "deliberate panic")
	assert.NotEmpty(t, te.Stack, "panic must capture a stack trace")
}

func TestWorker_UnknownFunction(t *testing.T) {
	w, s := startTestWorker(t, testWorkerRegistry(t))
	defer w.stop(time.Second)

	w.send(&types.Dispatch{Mode: types.ModeExecute, Fn: "ghost", Args: nil})

	res := s.wait(t)
	assert.Equal(t, types.ResultTaskError, res.Kind)
	assert.ErrorIs(t, res.Err, types.ErrFuncNotFound)
}

func TestWorker_PersistentFailureShape(t *testing.T) {
	w, s := startTestWorker(t, testWorkerRegistry(t))
	defer w.stop(time.Second)

	w.send(&types.Dispatch{Mode: types.ModePersistent, Fn: "fail", Args: nil})

	res := s.wait(t)
	assert.Equal(t, types.ResultPersistentError, res.Kind,
		"persistent failures use a distinct variant: there is no future to reject")
}

func TestWorker_GoexitIsCrash(t *testing.T) {
	w, s := startTestWorker(t, testWorkerRegistry(t))

	w.send(&types.Dispatch{Mode: types.ModeExecute, Fn: "goexit", Args: nil})

	res := s.wait(t)
	assert.Equal(t, types.ResultCrash, res.Kind)
	assert.ErrorIs(t, res.Err, types.ErrWorkerCrashed)
	assert.Equal(t, workerCrashed, w.State())

	// the goroutine is gone; done is closed
	select {
	case <-w.done:
	case <-time.After(time.Second):
		t.Fatal("crashed worker must close done")
	}
}

func TestWorker_StopIdempotent(t *testing.T) {
	w, _ := startTestWorker(t, testWorkerRegistry(t))

	require.NoError(t, w.stop(time.Second))
	require.NoError(t, w.stop(time.Second))
	assert.Equal(t, workerTerminated, w.State())
}

func TestWorker_ContextCancelStops(t *testing.T) {
	s := newResultSink()
	w := newWorker(testWorkerRegistry(t), nil, nil)
	w.setSink(s.sink)

	ctx, cancel := context.WithCancel(context.Background())
	w.start(ctx)
	cancel()

	select {
	case <-w.done:
	case <-time.After(time.Second):
		t.Fatal("context cancellation must stop the worker")
	}
	assert.Equal(t, workerTerminated, w.State())
}

func TestWorker_UniqueIDs(t *testing.T) {
	reg := testWorkerRegistry(t)
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		w := newWorker(reg, nil, nil)
		require.False(t, seen[w.ID()], fmt.Sprintf("duplicate worker id %s", w.ID()))
		seen[w.ID()] = true
	}
}
