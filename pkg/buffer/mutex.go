package buffer

import "runtime"

const (
	mutexUnlocked uint32 = 0
	mutexLocked   uint32 = 1
)

// Mutex is a caller-constructed mutual-exclusion lock over one word of a
// SharedBuffer. It lets task bodies running in different execution contexts
// coordinate over a shared region the caller intentionally did not
// transfer. Acquisition spins on an atomic compare-and-swap, yielding the
// processor between attempts; release is a plain atomic store.
type Mutex struct {
	sb   *SharedBuffer
	word int
}

// NewMutex creates a mutex over the given word of sb. The word must be
// reserved for the lock and start at zero.
func NewMutex(sb *SharedBuffer, word int) *Mutex {
	return &Mutex{sb: sb, word: word}
}

// Lock acquires the mutex, spinning until it is free
func (m *Mutex) Lock() {
	for !m.sb.CompareAndSwap(m.word, mutexUnlocked, mutexLocked) {
		runtime.Gosched()
	}
}

// TryLock attempts to acquire the mutex without spinning
func (m *Mutex) TryLock() bool {
	return m.sb.CompareAndSwap(m.word, mutexUnlocked, mutexLocked)
}

// Unlock releases the mutex. Unlocking a free mutex panics: it indicates
// two contexts believed they held the lock.
func (m *Mutex) Unlock() {
	if !m.sb.CompareAndSwap(m.word, mutexLocked, mutexUnlocked) {
		panic("buffer: unlock of unlocked mutex")
	}
}
