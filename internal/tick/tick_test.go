package tick_test

import (
	"errors"
	"testing"
	"time"

	"github.com/randomizedcoder/ringqueue/internal/tick"
)

const testInterval = 50 * time.Millisecond

func TestTickerInterface(t *testing.T) {
	// Factory functions to create fresh tickers for each test
	testCases := []struct {
		name   string
		create func() tick.Ticker
	}{
		{"StdTicker", func() tick.Ticker { return tick.NewTicker(testInterval) }},
		{"AtomicTicker", func() tick.Ticker { return tick.NewAtomicTicker(testInterval) }},
		{"BatchTicker", func() tick.Ticker { return tick.NewBatch(testInterval, 1) }}, // every=1 so it checks time on every call
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ticker := tc.create()
			defer ticker.Stop()

			if ticker.Tick() {
				t.Error("expected Tick() = false immediately")
			}

			time.Sleep(testInterval + 20*time.Millisecond)

			if !ticker.Tick() {
				t.Error("expected Tick() = true after interval")
			}
			if ticker.Tick() {
				t.Error("expected Tick() = false immediately after tick")
			}
		})

		t.Run(tc.name+"/Reset", func(t *testing.T) {
			ticker := tc.create()
			defer ticker.Stop()

			time.Sleep(testInterval + 20*time.Millisecond)
			ticker.Reset()

			if ticker.Tick() {
				t.Error("expected Tick() = false after Reset()")
			}
		})
	}
}

func TestBatchTicker_ChecksEveryN(t *testing.T) {
	every := 10
	ticker := tick.NewBatch(testInterval, every)
	defer ticker.Stop()

	time.Sleep(testInterval + 20*time.Millisecond)

	// The interval has passed, but the clock is only read on the Nth call.
	for i := 0; i < every-1; i++ {
		if ticker.Tick() {
			t.Fatalf("expected Tick() = false on call %d (before batch)", i+1)
		}
	}
	if !ticker.Tick() {
		t.Error("expected Tick() = true on the batch boundary")
	}
	if ticker.Every() != every {
		t.Errorf("expected Every() = %d, got %d", every, ticker.Every())
	}
}

func TestAtomicTicker_OneWinnerPerTick(t *testing.T) {
	ticker := tick.NewAtomicTicker(testInterval)
	time.Sleep(testInterval + 20*time.Millisecond)

	wins := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		go func() { wins <- ticker.Tick() }()
	}

	n := 0
	for i := 0; i < 8; i++ {
		if <-wins {
			n++
		}
	}
	if n != 1 {
		t.Errorf("expected exactly one goroutine to observe the tick, got %d", n)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		kind    tick.Kind
		wantErr bool
	}{
		{tick.KindStd, false},
		{tick.KindAtomic, false},
		{tick.KindBatch, false},
		{"", false},
		{"tsc", true},
	}

	for _, tt := range tests {
		ticker, err := tick.New(tt.kind, 0, 100)
		if tt.wantErr {
			if !errors.Is(err, tick.ErrUnknownKind) {
				t.Errorf("New(%q): expected ErrUnknownKind, got %v", tt.kind, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("New(%q): %v", tt.kind, err)
		}
		if ticker.Tick() {
			t.Errorf("New(%q): expected Tick() = false with the default interval", tt.kind)
		}
		ticker.Stop()
	}
}
