package tick

import "time"

// BatchTicker reads the clock only on every Nth call to Tick.
//
// Not safe for concurrent use; give each producer its own.
type BatchTicker struct {
	interval time.Duration
	every    int
	count    int
	lastTick time.Time
}

// NewBatch creates a BatchTicker that checks the time every N calls.
// every < 1 is treated as 1.
func NewBatch(interval time.Duration, every int) *BatchTicker {
	if every < 1 {
		every = 1
	}
	return &BatchTicker{
		interval: interval,
		every:    every,
		lastTick: time.Now(),
	}
}

// Tick returns true if the interval has elapsed. Between clock reads it
// returns false without looking at the time.
func (b *BatchTicker) Tick() bool {
	b.count++
	if b.count < b.every {
		return false
	}
	b.count = 0

	if now := time.Now(); now.Sub(b.lastTick) >= b.interval {
		b.lastTick = now
		return true
	}
	return false
}

// Reset restarts the interval and the call counter.
func (b *BatchTicker) Reset() {
	b.count = 0
	b.lastTick = time.Now()
}

// Stop is a no-op.
func (b *BatchTicker) Stop() {}

// Every returns the batch size.
func (b *BatchTicker) Every() int {
	return b.every
}

// Interval returns the ticker's interval.
func (b *BatchTicker) Interval() time.Duration {
	return b.interval
}
