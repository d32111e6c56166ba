package queue

import (
	"context"
	"fmt"
	"sync"
)

// ChannelQueue implements Queue on a buffered channel.
//
// Consumers receive straight from the channel. Producers are serialized by a
// mutex so that "full, evict the oldest, send" is one step from every other
// producer's point of view; consumers may still race the eviction, in which
// case the producer simply finds room.
type ChannelQueue[T any] struct {
	ch     chan T
	pushMu sync.Mutex
	obs    *observer[T]
}

// NewChannel creates a ChannelQueue holding at least capacity items.
// Capacity is rounded up to a power of two to match BlockingRing.
func NewChannel[T any](capacity int, opts ...Option[T]) (*ChannelQueue[T], error) {
	n, err := RoundUpPow2(capacity)
	if err != nil {
		return nil, fmt.Errorf("queue.NewChannel: validate capacity failed: %w", err)
	}

	o := applyOptions(opts...)
	obs, err := newObserver(string(KindChannel), capacity, n, o)
	if err != nil {
		return nil, fmt.Errorf("queue.NewChannel: register metrics failed: %w", err)
	}

	return &ChannelQueue[T]{
		ch:  make(chan T, n),
		obs: obs,
	}, nil
}

// Push adds v, evicting the oldest item if the channel is full.
func (q *ChannelQueue[T]) Push(v T) {
	var (
		old     T
		dropped bool
	)

	q.pushMu.Lock()
	for {
		select {
		case q.ch <- v:
			q.obs.pushed(len(q.ch), dropped)
			q.pushMu.Unlock()
			if dropped {
				q.obs.drop(old)
			}
			return
		default:
		}

		// Full. Only producers add, and we hold pushMu, so after one
		// receive (ours or a consumer's) the next send has room.
		select {
		case old = <-q.ch:
			dropped = true
		default:
		}
	}
}

// TryPop removes and returns the oldest item.
// Returns false if the queue is empty (non-blocking).
func (q *ChannelQueue[T]) TryPop() (T, bool) {
	select {
	case v := <-q.ch:
		q.obs.popped(len(q.ch))
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// WaitAndPop removes and returns the oldest item, waiting while the queue is
// empty. A buffered item wins over a done ctx. A nil ctx waits indefinitely.
func (q *ChannelQueue[T]) WaitAndPop(ctx context.Context) (T, bool) {
	if v, ok := q.TryPop(); ok {
		return v, true
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		q.obs.cancelled()
		var zero T
		return zero, false
	}

	q.obs.waited()
	select {
	case v := <-q.ch:
		q.obs.popped(len(q.ch))
		return v, true
	case <-ctx.Done():
		// Same preference as BlockingRing: an item that raced the cancel
		// is still delivered.
		if v, ok := q.TryPop(); ok {
			return v, true
		}
		q.obs.cancelled()
		var zero T
		return zero, false
	}
}

// Len returns the current number of items in the queue.
func (q *ChannelQueue[T]) Len() int {
	return len(q.ch)
}

// Cap returns the capacity of the queue.
func (q *ChannelQueue[T]) Cap() int {
	return cap(q.ch)
}

// Stats returns the queue's statistics.
func (q *ChannelQueue[T]) Stats() *Statistics {
	return q.obs.stats
}
