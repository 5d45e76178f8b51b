// Package queue provides the FIFO admission buffer used by the scheduler
package queue

// Queue is a double-ended FIFO buffer with O(1) amortized operations.
// Elements are appended to an incoming slice and popped from an outgoing
// slice; when the outgoing slice drains, the incoming slice is
// reverse-transferred in one pass, so each element moves at most twice
// over its lifetime regardless of access pattern.
//
// Queue is not safe for concurrent use; the owning scheduler serializes
// access under its own lock.
type Queue[T any] struct {
	in  []T
	out []T
}

// New creates an empty queue
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Enqueue appends item to the logical tail
func (q *Queue[T]) Enqueue(item T) {
	q.in = append(q.in, item)
}

// Dequeue removes and returns the logical head. The second return value is
// false when the queue is empty; an empty queue is not an error.
func (q *Queue[T]) Dequeue() (T, bool) {
	if !q.shift() {
		var zero T
		return zero, false
	}
	n := len(q.out) - 1
	item := q.out[n]
	var zero T
	q.out[n] = zero // release the reference
	q.out = q.out[:n]
	return item, true
}

// Peek returns the logical head without removing it
func (q *Queue[T]) Peek() (T, bool) {
	if !q.shift() {
		var zero T
		return zero, false
	}
	return q.out[len(q.out)-1], true
}

// shift reverse-transfers the incoming slice into the outgoing slice when
// the outgoing slice is empty. Reports whether any element is available.
func (q *Queue[T]) shift() bool {
	if len(q.out) > 0 {
		return true
	}
	if len(q.in) == 0 {
		return false
	}
	for i := len(q.in) - 1; i >= 0; i-- {
		q.out = append(q.out, q.in[i])
	}
	q.in = q.in[:0]
	return true
}

// Len returns the number of queued elements
func (q *Queue[T]) Len() int {
	return len(q.in) + len(q.out)
}

// IsEmpty reports whether the queue holds no elements
func (q *Queue[T]) IsEmpty() bool {
	return q.Len() == 0
}

// Clear removes all elements and releases their references
func (q *Queue[T]) Clear() {
	q.in = nil
	q.out = nil
}
