package tick

import "time"

// StdTicker wraps time.Ticker for the Ticker interface.
type StdTicker struct {
	ticker   *time.Ticker
	interval time.Duration
}

// NewTicker creates a StdTicker with the specified interval.
func NewTicker(interval time.Duration) *StdTicker {
	return &StdTicker{
		ticker:   time.NewTicker(interval),
		interval: interval,
	}
}

// Tick returns true if the ticker channel has fired since the last call.
func (t *StdTicker) Tick() bool {
	select {
	case <-t.ticker.C:
		return true
	default:
		return false
	}
}

// Reset restarts the interval from now.
func (t *StdTicker) Reset() {
	t.ticker.Reset(t.interval)
}

// Stop stops the underlying time.Ticker.
func (t *StdTicker) Stop() {
	t.ticker.Stop()
}

// Interval returns the ticker's interval.
func (t *StdTicker) Interval() time.Duration {
	return t.interval
}
