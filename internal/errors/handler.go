// Package errors provides error handling strategies for task failures
package errors

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrorContext carries the circumstances of a task or worker failure
type ErrorContext struct {
	// Err is the failure being handled
	Err error

	// WorkerID identifies the execution context the failure came from
	WorkerID string

	// Source classifies the failure (task-error, persistent-error, crash)
	Source string

	// Timestamp when the failure was observed
	Timestamp time.Time

	// Metadata contains additional information
	Metadata map[string]any
}

// Handler defines an error handling strategy
type Handler interface {
	// HandleError handles the failure; a non-nil return aborts the chain
	HandleError(ctx context.Context, ec *ErrorContext) error

	// Name returns the handler's name
	Name() string
}

// Chain runs handlers in registration order. The first handler returning a
// non-nil error stops the chain and that error is returned.
type Chain struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewChain creates a handler chain
func NewChain(handlers ...Handler) *Chain {
	return &Chain{handlers: handlers}
}

// Add appends a handler to the chain
func (c *Chain) Add(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// HandleError implements the Handler interface
func (c *Chain) HandleError(ctx context.Context, ec *ErrorContext) error {
	c.mu.RLock()
	handlers := make([]Handler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.RUnlock()

	for _, h := range handlers {
		if err := h.HandleError(ctx, ec); err != nil {
			return err
		}
	}
	return nil
}

// Name implements the Handler interface
func (c *Chain) Name() string {
	return "Chain"
}

// LoggingHandler records failures on a structured logger and always lets
// the chain continue
type LoggingHandler struct {
	logger *zap.Logger
}

// NewLoggingHandler creates a logging handler
func NewLoggingHandler(logger *zap.Logger) *LoggingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingHandler{logger: logger}
}

// HandleError implements the Handler interface
func (h *LoggingHandler) HandleError(_ context.Context, ec *ErrorContext) error {
	h.logger.Warn("task failure",
		zap.String("worker_id", ec.WorkerID),
		zap.String("source", ec.Source),
		zap.Time("at", ec.Timestamp),
		zap.Error(ec.Err))
	return nil
}

// Name implements the Handler interface
func (h *LoggingHandler) Name() string {
	return "Logging"
}

// CallbackHandler fans a failure out to every registered callback. Used for
// persistent-mode error delivery, where there is no future to reject.
//
// An error arriving before any callback is registered is held and replayed
// to every callback registered afterward, so a failure raised between launch
// and a chained registration is never lost.
type CallbackHandler struct {
	mu        sync.RWMutex
	callbacks []func(error)
	pending   []error
}

// NewCallbackHandler creates an empty callback handler
func NewCallbackHandler() *CallbackHandler {
	return &CallbackHandler{}
}

// Add registers a callback. Errors held from before the first registration
// are replayed to it immediately, in arrival order.
func (h *CallbackHandler) Add(cb func(error)) {
	if cb == nil {
		return
	}
	h.mu.Lock()
	h.callbacks = append(h.callbacks, cb)
	replay := make([]error, len(h.pending))
	copy(replay, h.pending)
	h.mu.Unlock()

	for _, err := range replay {
		cb(err)
	}
}

// Len returns the number of registered callbacks
func (h *CallbackHandler) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.callbacks)
}

// HandleError implements the Handler interface; every callback is invoked.
// With no callbacks registered yet, the error is held for replay.
func (h *CallbackHandler) HandleError(_ context.Context, ec *ErrorContext) error {
	h.mu.Lock()
	if len(h.callbacks) == 0 {
		h.pending = append(h.pending, ec.Err)
		h.mu.Unlock()
		return nil
	}
	callbacks := make([]func(error), len(h.callbacks))
	copy(callbacks, h.callbacks)
	h.mu.Unlock()

	for _, cb := range callbacks {
		cb(ec.Err)
	}
	return nil
}

// Name implements the Handler interface
func (h *CallbackHandler) Name() string {
	return "Callback"
}
