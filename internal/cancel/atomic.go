package cancel

import "sync/atomic"

// AtomicCanceler is a cancellation flag for polling loops.
//
// Done is a single atomic load, so a producer can check it on every Push
// without measurable cost. Nothing blocks on it; use ContextCanceler (or
// Bind a context to it) when a parked consumer must be woken.
type AtomicCanceler struct {
	done atomic.Bool
}

// NewAtomic creates a new AtomicCanceler.
func NewAtomic() *AtomicCanceler {
	return &AtomicCanceler{}
}

// Done returns true if cancellation has been triggered.
func (a *AtomicCanceler) Done() bool {
	return a.done.Load()
}

// Cancel triggers cancellation. Subsequent calls are no-ops.
func (a *AtomicCanceler) Cancel() {
	a.done.Store(true)
}

// Reset clears the flag so the canceler can be reused between runs.
// Not safe to call concurrently with Done() or Cancel().
func (a *AtomicCanceler) Reset() {
	a.done.Store(false)
}
