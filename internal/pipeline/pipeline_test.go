package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randomizedcoder/ringqueue/internal/config"
	"github.com/randomizedcoder/ringqueue/internal/metrics"
	"github.com/randomizedcoder/ringqueue/internal/pipeline"
	"github.com/randomizedcoder/ringqueue/internal/queue"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(kind queue.Kind, capacity int) config.Config {
	cfg := config.Default()
	cfg.Queue.Kind = kind
	cfg.Queue.Capacity = capacity
	cfg.Report.Interval = 5 * time.Millisecond
	return cfg
}

func newPipeline(t *testing.T, cfg config.Config, reg *metrics.Registry) (*pipeline.Pipeline, queue.Queue[pipeline.Item]) {
	t.Helper()
	q, err := queue.New[pipeline.Item](cfg.Queue.Kind, cfg.Queue.Capacity)
	require.NoError(t, err)
	p, err := pipeline.New(cfg, q, discardLogger(), reg)
	require.NoError(t, err)
	return p, q
}

func eachKind(t *testing.T, fn func(t *testing.T, kind queue.Kind)) {
	t.Helper()
	for _, kind := range []queue.Kind{queue.KindCond, queue.KindChannel} {
		t.Run(string(kind), func(t *testing.T) {
			fn(t, kind)
		})
	}
}

func TestRun_EveryItemAccounted(t *testing.T) {
	eachKind(t, func(t *testing.T, kind queue.Kind) {
		cfg := testConfig(kind, 8)
		cfg.Producers = 4
		cfg.Consumers = 2
		cfg.ItemsPerProducer = 5000
		p, q := newPipeline(t, cfg, nil)

		report, err := p.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, int64(20000), report.Produced)
		assert.Equal(t, report.Produced, report.Consumed+report.Dropped)
		assert.Zero(t, report.OrderViolations)
		assert.Zero(t, q.Len(), "queue drained")
		assert.Equal(t, report.Produced, report.Queue.Pushes)
	})
}

func TestRun_NoDropsWhenQueueHoldsEverything(t *testing.T) {
	eachKind(t, func(t *testing.T, kind queue.Kind) {
		cfg := testConfig(kind, 1024)
		cfg.Producers = 2
		cfg.Consumers = 1
		cfg.ItemsPerProducer = 500
		p, _ := newPipeline(t, cfg, nil)

		report, err := p.Run(context.Background())
		require.NoError(t, err)

		assert.Zero(t, report.Dropped)
		assert.Equal(t, int64(1000), report.Consumed)
	})
}

func TestRun_UnlimitedStopsOnCancel(t *testing.T) {
	eachKind(t, func(t *testing.T, kind queue.Kind) {
		cfg := testConfig(kind, 64)
		cfg.ItemsPerProducer = 0
		p, _ := newPipeline(t, cfg, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		done := make(chan pipeline.Report, 1)
		go func() {
			report, err := p.Run(ctx)
			assert.NoError(t, err)
			done <- report
		}()

		select {
		case report := <-done:
			assert.Positive(t, report.Produced)
			assert.Equal(t, report.Produced, report.Consumed+report.Dropped)
		case <-time.After(5 * time.Second):
			t.Fatal("pipeline did not stop after cancellation")
		}
	})
}

func TestRun_RateLimited(t *testing.T) {
	cfg := testConfig(queue.KindCond, 64)
	cfg.Producers = 1
	cfg.Consumers = 1
	cfg.ItemsPerProducer = 50
	cfg.Rate = 1000
	cfg.Burst = 1
	p, _ := newPipeline(t, cfg, nil)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(50), report.Produced)
	assert.GreaterOrEqual(t, report.Elapsed, 40*time.Millisecond)
}

func TestRun_RateLimitedCancel(t *testing.T) {
	cfg := testConfig(queue.KindCond, 64)
	cfg.Producers = 2
	cfg.ItemsPerProducer = 1_000_000
	cfg.Rate = 10
	cfg.Burst = 1
	p, _ := newPipeline(t, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	report, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Less(t, report.Produced, int64(100))
}

func TestRun_LatencyHistogram(t *testing.T) {
	reg := metrics.NewBareRegistry()
	cfg := testConfig(queue.KindCond, 256)
	cfg.Producers = 2
	cfg.Consumers = 2
	cfg.ItemsPerProducer = 100
	p, _ := newPipeline(t, cfg, reg)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	families, err := reg.PrometheusRegistry().Gather()
	require.NoError(t, err)

	var samples uint64
	for _, mf := range families {
		if mf.GetName() == "ringqueue_pipeline_item_latency_seconds" {
			samples = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(report.Consumed), samples)
}

func TestRun_Repeatable(t *testing.T) {
	cfg := testConfig(queue.KindChannel, 16)
	cfg.ItemsPerProducer = 100
	p, _ := newPipeline(t, cfg, nil)

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	second, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Produced, second.Produced)
	assert.Equal(t, second.Produced, second.Consumed+second.Dropped)
}

func TestNew_Errors(t *testing.T) {
	q, err := queue.New[pipeline.Item](queue.KindCond, 4)
	require.NoError(t, err)

	bad := config.Default()
	bad.Consumers = 0
	_, err = pipeline.New(bad, q, nil, nil)
	require.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = pipeline.New(config.Default(), nil, nil, nil)
	require.ErrorIs(t, err, pipeline.ErrNilQueue)

	reg := metrics.NewBareRegistry()
	_, err = pipeline.New(config.Default(), q, nil, reg)
	require.NoError(t, err)
	_, err = pipeline.New(config.Default(), q, nil, reg)
	require.ErrorIs(t, err, metrics.ErrDuplicate)
}

func TestReport_LogValue(t *testing.T) {
	r := pipeline.Report{Produced: 10, Consumed: 7, Dropped: 3}
	v := r.LogValue()
	require.Equal(t, slog.KindGroup, v.Kind())

	got := map[string]slog.Value{}
	for _, a := range v.Group() {
		got[a.Key] = a.Value
	}
	assert.Equal(t, int64(10), got["produced"].Int64())
	assert.Equal(t, int64(3), got["dropped"].Int64())
}
