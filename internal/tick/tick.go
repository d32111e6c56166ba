// Package tick provides periodic triggers cheap enough to poll from a
// producer's push loop.
//
// Implementations of the Ticker interface:
//   - StdTicker: time.Ticker wrapper, one channel select per poll
//   - AtomicTicker: CAS on a monotonic nanosecond timestamp
//   - BatchTicker: reads the clock only every N polls
//
// The pipeline uses a Ticker to decide when a producer should log progress,
// without a separate reporting goroutine.
package tick

import (
	"errors"
	"fmt"
	"time"
)

// Ticker signals when a time interval has elapsed.
type Ticker interface {
	// Tick returns true if the interval has elapsed since the last tick.
	// This is a non-blocking check.
	Tick() bool

	// Reset starts a new interval from now.
	Reset()

	// Stop releases any resources held by the ticker.
	// After Stop, the ticker should not be used.
	Stop()
}

// DefaultInterval is the progress interval used when none is configured.
const DefaultInterval = time.Second

// Kind names a Ticker implementation.
type Kind string

const (
	KindStd    Kind = "std"
	KindAtomic Kind = "atomic"
	KindBatch  Kind = "batch"
)

// ErrUnknownKind is returned by New for an unrecognized Kind.
var ErrUnknownKind = errors.New("unknown ticker kind")

// New creates a ticker of the given kind. every is only used by KindBatch.
// A non-positive interval falls back to DefaultInterval.
func New(kind Kind, interval time.Duration, every int) (Ticker, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	switch kind {
	case KindStd:
		return NewTicker(interval), nil
	case KindAtomic, "":
		return NewAtomicTicker(interval), nil
	case KindBatch:
		return NewBatch(interval, every), nil
	default:
		return nil, fmt.Errorf("tick.New: select kind failed: %w: %q", ErrUnknownKind, kind)
	}
}
