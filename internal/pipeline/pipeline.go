// Package pipeline runs producers and consumers against a drop-oldest queue
// and reports how many items were delivered, dropped or reordered.
//
// Producers push uniquely identified, per-producer sequenced items, optionally
// paced by a token bucket. Consumers block in WaitAndPop until the producers
// finish, then drain whatever is left with TryPop, so a completed run always
// satisfies Produced == Consumed + Dropped.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/randomizedcoder/ringqueue/internal/cancel"
	"github.com/randomizedcoder/ringqueue/internal/config"
	"github.com/randomizedcoder/ringqueue/internal/metrics"
	"github.com/randomizedcoder/ringqueue/internal/queue"
	"github.com/randomizedcoder/ringqueue/internal/tick"
)

// ErrNilQueue is returned by New when no queue is supplied.
var ErrNilQueue = errors.New("nil queue")

// Item is the unit of work moved through the queue.
type Item struct {
	ID       uuid.UUID
	Producer int
	Seq      uint64 // starts at 1 for every producer
	Created  time.Time
}

// Report summarises a run.
type Report struct {
	Produced        int64              `json:"produced"`
	Consumed        int64              `json:"consumed"`
	Dropped         int64              `json:"dropped"`
	OrderViolations int64              `json:"order_violations"`
	Elapsed         time.Duration      `json:"elapsed"`
	Queue           queue.StatsSummary `json:"queue"`
}

// LogValue renders the report as a slog group.
func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("produced", r.Produced),
		slog.Int64("consumed", r.Consumed),
		slog.Int64("dropped", r.Dropped),
		slog.Int64("order_violations", r.OrderViolations),
		slog.Duration("elapsed", r.Elapsed),
		slog.Float64("drop_rate", r.Queue.DropRate),
		slog.Int64("max_size", r.Queue.MaxSize),
	)
}

// Pipeline wires producers and consumers to one queue.
type Pipeline struct {
	cfg     config.Config
	q       queue.Queue[Item]
	logger  *slog.Logger
	latency prometheus.Histogram

	produced   atomic.Int64
	consumed   atomic.Int64
	violations atomic.Int64
}

// New validates cfg and builds a pipeline around q. A nil logger means
// slog.Default(); a nil registry disables the latency histogram.
func New(cfg config.Config, q queue.Queue[Item], logger *slog.Logger, reg *metrics.Registry) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline.New: validate config failed: %w", err)
	}
	if q == nil {
		return nil, fmt.Errorf("pipeline.New: %w", ErrNilQueue)
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{
		cfg:    cfg,
		q:      q,
		logger: logger.With("component", "pipeline"),
	}

	if reg != nil {
		p.latency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "pipeline",
			Name:      "item_latency_seconds",
			Help:      "Time from push to delivery for consumed items",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		})
		if err := reg.RegisterHistogram("pipeline", "item_latency", p.latency); err != nil {
			return nil, fmt.Errorf("pipeline.New: register latency histogram failed: %w", err)
		}
	}

	return p, nil
}

// Run starts the consumers, then the producers, and returns once every
// producer has finished (or ctx is cancelled) and the queue is drained.
// Cancellation of ctx is a normal stop, not an error.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	startDrops := p.q.Stats().Drops()
	p.produced.Store(0)
	p.consumed.Store(0)
	p.violations.Store(0)

	stop := cancel.NewAtomic()
	unbind := cancel.Bind(ctx, stop)
	defer unbind()

	consumerStop := cancel.NewContext(context.WithoutCancel(ctx))
	defer consumerStop.Cancel()

	p.logger.Info("pipeline starting",
		"producers", p.cfg.Producers,
		"consumers", p.cfg.Consumers,
		"items_per_producer", p.cfg.ItemsPerProducer,
		"capacity", p.q.Cap(),
		"rate", p.cfg.Rate)

	var consumers errgroup.Group
	for c := range p.cfg.Consumers {
		consumers.Go(func() error {
			p.consume(consumerStop, c)
			return nil
		})
	}

	var producers errgroup.Group
	for id := range p.cfg.Producers {
		producers.Go(func() error {
			return p.produce(ctx, stop, id)
		})
	}

	perr := producers.Wait()
	consumerStop.Cancel()
	cerr := consumers.Wait()

	report := Report{
		Produced:        p.produced.Load(),
		Consumed:        p.consumed.Load(),
		Dropped:         p.q.Stats().Drops() - startDrops,
		OrderViolations: p.violations.Load(),
		Elapsed:         time.Since(start),
		Queue:           p.q.Stats().Summary(),
	}

	if err := errors.Join(perr, cerr); err != nil {
		return report, fmt.Errorf("pipeline.Run: %w", err)
	}
	return report, nil
}

// produce pushes ItemsPerProducer items, or until stopped when that is 0.
func (p *Pipeline) produce(ctx context.Context, stop cancel.Canceler, id int) error {
	ticker, err := tick.New(p.cfg.Report.Ticker, p.cfg.Report.Interval, p.cfg.Report.Every)
	if err != nil {
		return fmt.Errorf("pipeline.produce: create ticker failed: %w", err)
	}
	defer ticker.Stop()

	var limiter *rate.Limiter
	if p.cfg.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(p.cfg.Rate), p.cfg.Burst)
	}

	limit := uint64(p.cfg.ItemsPerProducer)
	for seq := uint64(1); limit == 0 || seq <= limit; seq++ {
		if stop.Done() {
			return nil
		}
		if limiter != nil {
			// Burst >= 1 is validated, so Wait only fails when ctx is done
			// or its deadline falls before the next token.
			if err := limiter.Wait(ctx); err != nil {
				p.logger.Debug("producer stopped waiting for rate limiter",
					"producer", id, "seq", seq, "error", err)
				return nil
			}
		}

		p.q.Push(Item{
			ID:       uuid.New(),
			Producer: id,
			Seq:      seq,
			Created:  time.Now(),
		})
		p.produced.Add(1)

		if ticker.Tick() {
			p.logger.Info("producer progress",
				"producer", id,
				"seq", seq,
				"queue_len", p.q.Len(),
				"drops", p.q.Stats().Drops())
		}
	}
	return nil
}

// consume blocks until stop fires, then drains the queue.
func (p *Pipeline) consume(stop *cancel.ContextCanceler, id int) {
	last := make([]uint64, p.cfg.Producers)

	for {
		it, ok := p.q.WaitAndPop(stop.Context())
		if !ok {
			break
		}
		p.observe(it, last, id)
	}

	for {
		it, ok := p.q.TryPop()
		if !ok {
			return
		}
		p.observe(it, last, id)
	}
}

func (p *Pipeline) observe(it Item, last []uint64, consumer int) {
	p.consumed.Add(1)
	if p.latency != nil {
		p.latency.Observe(time.Since(it.Created).Seconds())
	}

	if it.Producer < 0 || it.Producer >= len(last) {
		p.violations.Add(1)
		return
	}
	if it.Seq <= last[it.Producer] {
		p.violations.Add(1)
		p.logger.Warn("out of order item",
			"consumer", consumer,
			"producer", it.Producer,
			"seq", it.Seq,
			"last", last[it.Producer],
			"id", it.ID)
		return
	}
	last[it.Producer] = it.Seq
}
