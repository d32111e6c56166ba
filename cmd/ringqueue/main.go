// Command ringqueue runs a producer/consumer pipeline over a drop-oldest
// queue and logs how many items were delivered and dropped.
//
// Usage:
//
//	go run ./cmd/ringqueue -producers 8 -consumers 2 -capacity 256 -n 1000000
//	go run ./cmd/ringqueue -config ringqueue.yaml -metrics-addr :9090
//
// Flags that are set explicitly override values from the config file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/randomizedcoder/ringqueue/internal/config"
	"github.com/randomizedcoder/ringqueue/internal/metrics"
	"github.com/randomizedcoder/ringqueue/internal/pipeline"
	"github.com/randomizedcoder/ringqueue/internal/queue"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ringqueue: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("ringqueue", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file")
	kind := fs.String("kind", string(queue.KindCond), "queue implementation: cond or channel")
	capacity := fs.Int("capacity", 1024, "queue capacity (rounded up to a power of two)")
	producers := fs.Int("producers", 4, "number of producers")
	consumers := fs.Int("consumers", 2, "number of consumers")
	items := fs.Int("n", 100_000, "items per producer, 0 runs until interrupted")
	rateLimit := fs.Float64("rate", 0, "items per second per producer, 0 is unlimited")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "kind":
			cfg.Queue.Kind = queue.Kind(*kind)
		case "capacity":
			cfg.Queue.Capacity = *capacity
		case "producers":
			cfg.Producers = *producers
		case "consumers":
			cfg.Consumers = *consumers
		case "n":
			cfg.ItemsPerProducer = *items
		case "rate":
			cfg.Rate = *rateLimit
		case "metrics-addr":
			cfg.Metrics.Enabled = *metricsAddr != ""
			cfg.Metrics.Addr = *metricsAddr
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	q, err := queue.New[pipeline.Item](cfg.Queue.Kind, cfg.Queue.Capacity,
		queue.WithLogger[pipeline.Item](logger),
		queue.WithMetrics[pipeline.Item](reg, "pipeline"),
	)
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg, q, logger, reg)
	if err != nil {
		return err
	}

	if !cfg.Metrics.Enabled {
		return runPipeline(ctx, p, logger)
	}

	srv := metrics.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path, reg, logger)
	if err := srv.Listen(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Serve)
	g.Go(func() error {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown failed", "error", err)
			}
		}()
		return runPipeline(gctx, p, logger)
	})
	return g.Wait()
}

func runPipeline(ctx context.Context, p *pipeline.Pipeline, logger *slog.Logger) error {
	report, err := p.Run(ctx)
	if err != nil {
		return err
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		logger.Info("pipeline interrupted")
	}
	logger.Info("pipeline finished", "report", report)
	if report.OrderViolations > 0 {
		return fmt.Errorf("pipeline reported %d order violations", report.OrderViolations)
	}
	return nil
}
