package thread

import (
	"fmt"
	"sync"

	"github.com/goworkers/threadpool/pkg/types"
)

// Registry maps names to task functions. It is the task-payload contract
// between callers and worker execution contexts: a dispatch message carries
// a registered name, and the execution context reconstitutes the function
// by lookup. Nothing from the caller's lexical scope crosses the boundary;
// every input must be an explicit argument.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	fns map[string]types.TaskFunc
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]types.TaskFunc)}
}

// Register binds name to fn. Registering a nil function or reusing a name
// is an error.
func (r *Registry) Register(name string, fn types.TaskFunc) error {
	if name == "" {
		return fmt.Errorf("function name cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("function %q cannot be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.fns[name]; exists {
		return fmt.Errorf("function %q already registered", name)
	}
	r.fns[name] = fn
	return nil
}

// MustRegister is Register that panics on error, for package-level setup
func (r *Registry) MustRegister(name string, fn types.TaskFunc) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the function bound to name
func (r *Registry) Lookup(name string) (types.TaskFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.fns[name]
	return fn, ok
}

// Len returns the number of registered functions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fns)
}
