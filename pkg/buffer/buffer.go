// Package buffer provides the transferable and shared memory primitives
// used by task arguments.
//
// A Buffer is an exclusive byte region: its ownership moves to the worker
// execution context at dispatch instead of being copied, and the sender's
// access is revoked while the transfer is in flight. A SharedBuffer is the
// opposite contract: a word-aligned region designed for concurrent atomic
// access from multiple execution contexts, which must never be transferred.
package buffer

import (
	"sync/atomic"

	"github.com/goworkers/threadpool/pkg/types"
)

const (
	stateAttached int32 = iota
	stateDetached
)

// Buffer is an exclusively-owned byte region eligible for zero-copy
// ownership transfer between execution contexts.
type Buffer struct {
	data  []byte
	state int32 // atomic: stateAttached or stateDetached
}

// New creates an attached buffer of the given size
func New(size int) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

// FromBytes creates an attached buffer wrapping the given bytes. The caller
// must not retain the slice.
func FromBytes(b []byte) *Buffer {
	return &Buffer{data: b}
}

// Bytes returns the backing bytes, or ErrBufferDetached when ownership has
// been transferred away.
func (b *Buffer) Bytes() ([]byte, error) {
	if atomic.LoadInt32(&b.state) != stateAttached {
		return nil, types.ErrBufferDetached
	}
	return b.data, nil
}

// Len returns the buffer length in bytes. Valid even while detached.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Detach revokes access at the sending side. Detaching an already-detached
// buffer fails: the same memory region cannot be transferred twice.
func (b *Buffer) Detach() error {
	if !atomic.CompareAndSwapInt32(&b.state, stateAttached, stateDetached) {
		return types.ErrBufferDetached
	}
	return nil
}

// Attach adopts ownership at the receiving side. The backing bytes are
// never copied; only the ownership state moves.
func (b *Buffer) Attach() error {
	atomic.StoreInt32(&b.state, stateAttached)
	return nil
}

// IsDetached reports whether ownership is currently transferred away
func (b *Buffer) IsDetached() bool {
	return atomic.LoadInt32(&b.state) == stateDetached
}

// compile-time protocol check
var _ types.Transferable = (*Buffer)(nil)

// SharedBuffer is a fixed-size region of 32-bit words safe for concurrent
// atomic access from multiple execution contexts. It is intentionally not
// a Transferable: transferring it would revoke the sender's access, which
// defeats its purpose.
type SharedBuffer struct {
	words []uint32
}

// NewShared creates a shared buffer holding the given number of words
func NewShared(words int) *SharedBuffer {
	return &SharedBuffer{words: make([]uint32, words)}
}

// Words returns the number of 32-bit words
func (s *SharedBuffer) Words() int {
	return len(s.words)
}

// Load atomically reads word i
func (s *SharedBuffer) Load(i int) uint32 {
	return atomic.LoadUint32(&s.words[i])
}

// Store atomically writes word i
func (s *SharedBuffer) Store(i int, v uint32) {
	atomic.StoreUint32(&s.words[i], v)
}

// Add atomically adds delta to word i and returns the new value
func (s *SharedBuffer) Add(i int, delta uint32) uint32 {
	return atomic.AddUint32(&s.words[i], delta)
}

// CompareAndSwap atomically swaps word i from old to new
func (s *SharedBuffer) CompareAndSwap(i int, old, new uint32) bool {
	return atomic.CompareAndSwapUint32(&s.words[i], old, new)
}
