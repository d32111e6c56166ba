package queue

import (
	"context"
	"fmt"
	"sync"
)

// BlockingRing is a bounded MPMC queue backed by a circular buffer.
//
// All state is guarded by a single mutex; consumers that find the queue empty
// park on a condition variable tied to that mutex. Producers never wait: a
// Push on a full ring overwrites the oldest item.
//
// Capacity is rounded up to a power of two so indices wrap with a mask.
type BlockingRing[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond

	buf   []T
	mask  int
	head  int // next slot to read
	tail  int // next slot to write
	count int

	obs *observer[T]
}

// NewBlocking creates a BlockingRing holding at least capacity items.
// Returns an error wrapping ErrInvalidCapacity if capacity is not positive.
func NewBlocking[T any](capacity int, opts ...Option[T]) (*BlockingRing[T], error) {
	n, err := RoundUpPow2(capacity)
	if err != nil {
		return nil, fmt.Errorf("queue.NewBlocking: validate capacity failed: %w", err)
	}

	o := applyOptions(opts...)
	obs, err := newObserver(string(KindCond), capacity, n, o)
	if err != nil {
		return nil, fmt.Errorf("queue.NewBlocking: register metrics failed: %w", err)
	}

	q := &BlockingRing[T]{
		buf:  make([]T, n),
		mask: n - 1,
		obs:  obs,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	return q, nil
}

// Push adds v at the tail. If the ring is full the oldest item is
// overwritten and passed to the drop callback, if one is set.
func (q *BlockingRing[T]) Push(v T) {
	var (
		old     T
		dropped bool
	)

	q.mu.Lock()
	if q.count == len(q.buf) {
		// tail == head here: the write below lands on the oldest item.
		old = q.buf[q.head]
		dropped = true
		q.head = (q.head + 1) & q.mask
	} else {
		q.count++
	}
	q.buf[q.tail] = v
	q.tail = (q.tail + 1) & q.mask
	q.obs.pushed(q.count, dropped)
	q.notEmpty.Signal()
	q.mu.Unlock()

	if dropped {
		q.obs.drop(old)
	}
}

// TryPop removes and returns the oldest item without waiting.
func (q *BlockingRing[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.take(), true
}

// WaitAndPop removes and returns the oldest item, waiting while the ring is
// empty. It returns false only if ctx is done and no item is buffered; a
// buffered item is returned even when ctx is already cancelled.
//
// A nil ctx waits indefinitely.
func (q *BlockingRing[T]) WaitAndPop(ctx context.Context) (T, bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	q.mu.Lock()
	if q.count == 0 && ctx.Done() != nil {
		// The callback takes the lock before broadcasting, so it cannot run
		// between a waiter's ctx check and its Wait.
		stop := context.AfterFunc(ctx, func() {
			q.mu.Lock()
			q.notEmpty.Broadcast()
			q.mu.Unlock()
		})
		defer stop()
	}

	waited := false
	for q.count == 0 {
		if ctx.Err() != nil {
			q.mu.Unlock()
			q.obs.cancelled()
			var zero T
			return zero, false
		}
		if !waited {
			waited = true
			q.obs.waited()
		}
		q.notEmpty.Wait()
	}

	v := q.take()
	q.mu.Unlock()
	return v, true
}

// take reads the item at head and clears the slot. Caller holds q.mu and
// has checked count > 0.
func (q *BlockingRing[T]) take() T {
	var zero T
	v := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) & q.mask
	q.count--
	q.obs.popped(q.count)
	return v
}

// Len returns the number of buffered items. Advisory under concurrency.
func (q *BlockingRing[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the realized capacity.
func (q *BlockingRing[T]) Cap() int {
	return len(q.buf)
}

// Stats returns the ring's statistics.
func (q *BlockingRing[T]) Stats() *Statistics {
	return q.obs.stats
}
