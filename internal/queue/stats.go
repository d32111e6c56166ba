package queue

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/ringqueue/internal/metrics"
)

// Statistics tracks queue activity. It is always collected; all methods are
// safe for concurrent use.
type Statistics struct {
	pushes         atomic.Int64
	pops           atomic.Int64
	drops          atomic.Int64
	waits          atomic.Int64
	cancelledWaits atomic.Int64
	currentSize    atomic.Int64
	maxSize        atomic.Int64
	startNanos     atomic.Int64
}

// NewStatistics creates a statistics tracker starting now.
func NewStatistics() *Statistics {
	s := &Statistics{}
	s.startNanos.Store(time.Now().UnixNano())
	return s
}

func (s *Statistics) updateSize(size int) {
	n := int64(size)
	s.currentSize.Store(n)
	for {
		peak := s.maxSize.Load()
		if n <= peak || s.maxSize.CompareAndSwap(peak, n) {
			return
		}
	}
}

// Pushes returns the number of Push calls.
func (s *Statistics) Pushes() int64 { return s.pushes.Load() }

// Pops returns the number of items delivered to consumers.
func (s *Statistics) Pops() int64 { return s.pops.Load() }

// Drops returns the number of items discarded by overwriting pushes.
func (s *Statistics) Drops() int64 { return s.drops.Load() }

// Waits returns how many WaitAndPop calls found the queue empty with ctx
// still live and went to wait. Each call counts at most once, however many
// times it is woken.
func (s *Statistics) Waits() int64 { return s.waits.Load() }

// CancelledWaits returns how many WaitAndPop calls returned without an item.
func (s *Statistics) CancelledWaits() int64 { return s.cancelledWaits.Load() }

// CurrentSize returns the size recorded by the most recent operation.
func (s *Statistics) CurrentSize() int64 { return s.currentSize.Load() }

// MaxSize returns the largest size observed.
func (s *Statistics) MaxSize() int64 { return s.maxSize.Load() }

// Uptime returns the time since creation or the last Reset.
func (s *Statistics) Uptime() time.Duration {
	return time.Since(time.Unix(0, s.startNanos.Load()))
}

// DropRate returns drops per push (0.0 to 1.0).
func (s *Statistics) DropRate() float64 {
	pushes := s.Pushes()
	if pushes == 0 {
		return 0
	}
	return float64(s.Drops()) / float64(pushes)
}

// Reset zeroes all counters. Not atomic with respect to concurrent updates.
func (s *Statistics) Reset() {
	s.pushes.Store(0)
	s.pops.Store(0)
	s.drops.Store(0)
	s.waits.Store(0)
	s.cancelledWaits.Store(0)
	s.currentSize.Store(0)
	s.maxSize.Store(0)
	s.startNanos.Store(time.Now().UnixNano())
}

// StatsSummary is a point-in-time copy of Statistics.
type StatsSummary struct {
	Pushes         int64         `json:"pushes"`
	Pops           int64         `json:"pops"`
	Drops          int64         `json:"drops"`
	Waits          int64         `json:"waits"`
	CancelledWaits int64         `json:"cancelled_waits"`
	CurrentSize    int64         `json:"current_size"`
	MaxSize        int64         `json:"max_size"`
	DropRate       float64       `json:"drop_rate"`
	Uptime         time.Duration `json:"uptime"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Pushes:         s.Pushes(),
		Pops:           s.Pops(),
		Drops:          s.Drops(),
		Waits:          s.Waits(),
		CancelledWaits: s.CancelledWaits(),
		CurrentSize:    s.CurrentSize(),
		MaxSize:        s.MaxSize(),
		DropRate:       s.DropRate(),
		Uptime:         s.Uptime(),
	}
}

// queueMetrics mirrors Statistics into Prometheus.
type queueMetrics struct {
	pushes         prometheus.Counter
	pops           prometheus.Counter
	drops          prometheus.Counter
	cancelledWaits prometheus.Counter
	size           prometheus.Gauge
	utilization    prometheus.Gauge
}

func newQueueMetrics(reg *metrics.Registry, name string) (*queueMetrics, error) {
	labels := prometheus.Labels{"queue": name}
	counter := func(metric, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metrics.Namespace,
			Subsystem:   "queue",
			Name:        metric,
			Help:        help,
			ConstLabels: labels,
		})
	}
	gauge := func(metric, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metrics.Namespace,
			Subsystem:   "queue",
			Name:        metric,
			Help:        help,
			ConstLabels: labels,
		})
	}

	m := &queueMetrics{
		pushes:         counter("pushes_total", "Total number of push operations"),
		pops:           counter("pops_total", "Total number of items delivered to consumers"),
		drops:          counter("drops_total", "Total number of items overwritten before delivery"),
		cancelledWaits: counter("cancelled_waits_total", "Total number of waits that returned without an item"),
		size:           gauge("size", "Current number of buffered items"),
		utilization:    gauge("utilization", "Buffered items as a fraction of capacity (0.0 to 1.0)"),
	}

	for _, c := range []struct {
		key string
		c   prometheus.Counter
	}{
		{"pushes", m.pushes},
		{"pops", m.pops},
		{"drops", m.drops},
		{"cancelled_waits", m.cancelledWaits},
	} {
		if err := reg.RegisterCounter(name, c.key, c.c); err != nil {
			return nil, err
		}
	}
	if err := reg.RegisterGauge(name, "size", m.size); err != nil {
		return nil, err
	}
	if err := reg.RegisterGauge(name, "utilization", m.utilization); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *queueMetrics) setSize(size, capacity int) {
	m.size.Set(float64(size))
	m.utilization.Set(float64(size) / float64(capacity))
}

// observer bundles the bookkeeping shared by both queue implementations.
type observer[T any] struct {
	stats    *Statistics
	metrics  *queueMetrics
	onDrop   DropCallback[T]
	capacity int
}

func newObserver[T any](kind string, requested, capacity int, o *options[T]) (*observer[T], error) {
	obs := &observer[T]{
		stats:    NewStatistics(),
		onDrop:   o.onDrop,
		capacity: capacity,
	}
	if o.registry != nil {
		m, err := newQueueMetrics(o.registry, o.name)
		if err != nil {
			return nil, err
		}
		obs.metrics = m
	}
	if requested != capacity {
		o.logger.Debug("queue capacity rounded up",
			"kind", kind, "requested", requested, "capacity", capacity)
	}
	return obs, nil
}

// pushed records a push. size is the buffered count after the push.
func (o *observer[T]) pushed(size int, dropped bool) {
	o.stats.pushes.Add(1)
	if dropped {
		o.stats.drops.Add(1)
	}
	o.stats.updateSize(size)
	if o.metrics != nil {
		o.metrics.pushes.Inc()
		if dropped {
			o.metrics.drops.Inc()
		}
		o.metrics.setSize(size, o.capacity)
	}
}

func (o *observer[T]) popped(size int) {
	o.stats.pops.Add(1)
	o.stats.updateSize(size)
	if o.metrics != nil {
		o.metrics.pops.Inc()
		o.metrics.setSize(size, o.capacity)
	}
}

func (o *observer[T]) waited() {
	o.stats.waits.Add(1)
}

func (o *observer[T]) cancelled() {
	o.stats.cancelledWaits.Add(1)
	if o.metrics != nil {
		o.metrics.cancelledWaits.Inc()
	}
}

func (o *observer[T]) drop(item T) {
	if o.onDrop != nil {
		o.onDrop(item)
	}
}
