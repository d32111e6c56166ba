// Package cancel provides cooperative cancellation signals for queue
// producers and consumers.
//
// Two implementations of the Canceler interface are offered:
//   - ContextCanceler: backed by context.Context. Its Context is what a
//     consumer passes to WaitAndPop, so Cancel wakes a parked consumer.
//   - AtomicCanceler: a single atomic flag. Cheap enough to poll on every
//     iteration of a producer hot loop, but it cannot wake a sleeper.
//
// Bind connects the two: it asserts an AtomicCanceler when a context ends,
// letting producers poll a flag while shutdown is still driven by context.
package cancel

import "context"

// Canceler provides cancellation signaling to workers.
//
// Implementations must be safe for concurrent use:
//   - Multiple goroutines may call Done() concurrently
//   - Cancel() may be called concurrently with Done()
type Canceler interface {
	// Done returns true if cancellation has been triggered.
	Done() bool

	// Cancel triggers cancellation. Safe to call multiple times.
	Cancel()
}

// Bind calls c.Cancel() once ctx is done. The returned stop function
// detaches the binding; it reports whether the binding was detached before
// firing.
func Bind(ctx context.Context, c Canceler) (stop func() bool) {
	return context.AfterFunc(ctx, c.Cancel)
}
