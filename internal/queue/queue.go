// Package queue provides bounded, thread-safe producer/consumer queues with a
// drop-oldest overflow policy.
//
// Two implementations satisfy the Queue interface:
//   - BlockingRing: circular buffer guarded by a mutex and condition variable
//   - ChannelQueue: buffered channel with serialized producers
//
// # Overflow
//
// Push never blocks and never fails. When the queue is full, the oldest
// buffered item is overwritten and reported as a drop (Statistics.Drops and
// the optional DropCallback). Consumers therefore see items in push order,
// with gaps where items were dropped.
//
// # Waiting
//
// WaitAndPop is the only call that suspends. It returns as soon as an item
// is available, or with ok == false once its context is done. A cancelled
// wait is a normal outcome, not an error.
//
// Len and Cap are advisory snapshots. Under concurrent use they must not be
// used to predict whether a later Push drops or a later TryPop succeeds.
package queue

import (
	"context"
	"errors"
	"fmt"
)

// MaxCapacity is the largest capacity a queue accepts after rounding.
const MaxCapacity = 1 << 30

var (
	// ErrInvalidCapacity is returned when the requested capacity is zero,
	// negative, or rounds above MaxCapacity.
	ErrInvalidCapacity = errors.New("invalid capacity")

	// ErrUnknownKind is returned by New for an unrecognized Kind.
	ErrUnknownKind = errors.New("unknown queue kind")
)

// Queue is a bounded multi-producer multi-consumer FIFO.
type Queue[T any] interface {
	// Push adds an item, overwriting the oldest item when full.
	Push(T)

	// TryPop removes and returns the oldest item.
	// Returns false if the queue is empty (non-blocking).
	TryPop() (T, bool)

	// WaitAndPop removes and returns the oldest item, waiting for one if the
	// queue is empty. Returns false if ctx is done before an item arrives.
	WaitAndPop(ctx context.Context) (T, bool)

	// Len returns the number of buffered items.
	Len() int

	// Cap returns the realized (power of two) capacity.
	Cap() int

	// Stats returns the queue's statistics.
	Stats() *Statistics
}

// Kind selects a Queue implementation.
type Kind string

const (
	// KindCond selects BlockingRing.
	KindCond Kind = "cond"
	// KindChannel selects ChannelQueue.
	KindChannel Kind = "channel"
)

// New creates a queue of the given kind.
func New[T any](kind Kind, capacity int, opts ...Option[T]) (Queue[T], error) {
	switch kind {
	case KindCond, "":
		return NewBlocking[T](capacity, opts...)
	case KindChannel:
		return NewChannel[T](capacity, opts...)
	default:
		return nil, fmt.Errorf("queue.New: select kind failed: %w: %q", ErrUnknownKind, kind)
	}
}

// RoundUpPow2 returns the smallest power of two >= n, or an error wrapping
// ErrInvalidCapacity if n is not in [1, MaxCapacity].
func RoundUpPow2(n int) (int, error) {
	if n <= 0 || n > MaxCapacity {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCapacity, n)
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p, nil
}
