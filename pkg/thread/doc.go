/*
Package thread provides a task-parallelism layer over pooled worker
execution contexts: callers submit registered functions plus arguments for
isolated concurrent execution and collect results through futures.

# Overview

This package implements:
- Fixed-size pools of isolated worker execution contexts
- FIFO task admission with TTL-bounded queueing
- Zero-copy ownership transfer of buffer arguments
- Transparent crash recovery with 1:1 worker replacement
- A single-task Thread wrapper with a shared prewarm reserve

# Core Components

## Pool

The central admission-control and dispatch state machine:
- Admits tasks into an unbounded FIFO queue
- Dispatches to free workers in admission order
- Applies per-task TTL expiry to the queueing phase only
- Replaces crashed workers synchronously, keeping pool size fixed
- Exposes O(1) statistics

## Worker execution context

A long-lived goroutine driven over a message-passing protocol:
- Receives dispatch messages carrying a function name, arguments, and a
  precomputed transferable set
- Reconstitutes the function by registry lookup
- Posts back tagged success, task-error, persistent-error, or crash messages
- Converts task panics into task errors with captured stack traces; the
  context itself stays healthy

## Registry

The task-payload contract. A dispatched message names a registered
function; nothing from the caller's lexical scope crosses the boundary.

## Thread

A degenerate pool of size one with ergonomic one-shot semantics, plus a
persistent mode whose errors are delivered through callbacks rather than a
future. A Reserve amortizes context startup across many one-shot runs.

# Error Handling

Failures are never swallowed:
- A task error rejects only its own future; the worker is reused
- A worker crash rejects the bound task and self-heals the pool
- TTL expiry and pool termination reject with distinct sentinel errors so
  callers can tell "your code failed" from "the pool could not schedule you"

# Usage

	reg := thread.NewRegistry()
	reg.MustRegister("square", func(ctx context.Context, args []any) (any, error) {
		n := args[0].(int)
		return n * n, nil
	})

	pool, err := thread.New(&thread.Config{Size: 4, Registry: reg})
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Terminate()

	fut := pool.Exec("square", []any{7})
	v, err := fut.Await(context.Background())

Fan-out over a collection, results in input order:

	fut := pool.Map("square", []any{1, 2, 3})

Bound queueing latency:

	fut := pool.Exec("square", []any{7}, thread.WithTTL(50*time.Millisecond))
*/
package thread
