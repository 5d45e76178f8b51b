package thread

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goworkers/threadpool/pkg/types"
)

// ReserveConfig defines configuration for a prewarm reserve
type ReserveConfig struct {
	// Registry resolves dispatched function names (required)
	Registry *Registry

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Logger for structured events (optional, defaults to no-op)
	Logger *zap.Logger

	// StopTimeout bounds the per-context wait during Clear
	StopTimeout time.Duration
}

// Reserve is an explicitly owned pool of pre-created, idle execution
// contexts. It amortizes context startup cost across many one-shot runs.
// Callers wanting isolation construct their own Reserve instance; there is
// no package-level singleton.
type Reserve struct {
	registry    *Registry
	clock       types.Clock
	logger      *zap.Logger
	stopTimeout time.Duration

	mu   sync.Mutex
	idle []*worker
}

// NewReserve creates an empty reserve
func NewReserve(config *ReserveConfig) (*Reserve, error) {
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

	return &Reserve{
		registry:    config.Registry,
		clock:       clock,
		logger:      logger,
		stopTimeout: stopTimeout,
	}, nil
}

// Prewarm eagerly creates count idle execution contexts
func (r *Reserve) Prewarm(count int) {
	fresh := make([]*worker, 0, count)
	for i := 0; i < count; i++ {
		w := newWorker(r.registry, r.clock, r.logger)
		w.start(context.Background())
		fresh = append(fresh, w)
	}

	r.mu.Lock()
	r.idle = append(r.idle, fresh...)
	r.mu.Unlock()

	r.logger.Debug("reserve prewarmed", zap.Int("count", count))
}

// Size returns the number of idle contexts currently held
func (r *Reserve) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.idle)
}

// Clear stops every idle context and empties the reserve
func (r *Reserve) Clear() error {
	r.mu.Lock()
	workers := r.idle
	r.idle = nil
	r.mu.Unlock()

	var errs []error
	for _, w := range workers {
		if err := w.stop(r.stopTimeout); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// take removes one idle context, LIFO for warmth
func (r *Reserve) take() (*worker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.idle)
	if n == 0 {
		return nil, false
	}
	w := r.idle[n-1]
	r.idle[n-1] = nil
	r.idle = r.idle[:n-1]
	return w, true
}

// put returns a healthy context to the reserve
func (r *Reserve) put(w *worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idle = append(r.idle, w)
}
