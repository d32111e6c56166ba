package tick

import (
	"sync/atomic"
	"time"
)

// AtomicTicker compares monotonic elapsed nanoseconds against the last tick.
//
// Safe for concurrent polling: when several producers share one ticker, the
// CAS lets exactly one of them observe each tick.
type AtomicTicker struct {
	epoch    time.Time // carries the monotonic clock reading
	interval int64
	lastTick atomic.Int64 // nanoseconds since epoch
}

// NewAtomicTicker creates an AtomicTicker with the specified interval.
func NewAtomicTicker(interval time.Duration) *AtomicTicker {
	return &AtomicTicker{
		epoch:    time.Now(),
		interval: int64(interval),
	}
}

func (a *AtomicTicker) now() int64 {
	return int64(time.Since(a.epoch))
}

// Tick returns true if the interval has elapsed since the last tick.
func (a *AtomicTicker) Tick() bool {
	now := a.now()
	last := a.lastTick.Load()

	if now-last >= a.interval {
		return a.lastTick.CompareAndSwap(last, now)
	}
	return false
}

// Reset restarts the interval from now.
func (a *AtomicTicker) Reset() {
	a.lastTick.Store(a.now())
}

// Stop is a no-op.
func (a *AtomicTicker) Stop() {}

// Interval returns the ticker's interval.
func (a *AtomicTicker) Interval() time.Duration {
	return time.Duration(a.interval)
}
