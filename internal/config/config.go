// Package config loads and validates ringqueue pipeline configuration.
//
// Configuration comes from an optional YAML file layered over Default();
// the CLI then overrides individual fields from flags. Validate reports
// every problem at once, joined, each wrapping ErrInvalidConfig.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/randomizedcoder/ringqueue/internal/queue"
	"github.com/randomizedcoder/ringqueue/internal/tick"
)

// ErrInvalidConfig marks a configuration validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full pipeline configuration.
type Config struct {
	Queue            QueueConfig   `yaml:"queue"`
	Producers        int           `yaml:"producers"`
	Consumers        int           `yaml:"consumers"`
	ItemsPerProducer int           `yaml:"items_per_producer"` // 0 = until cancelled
	Rate             float64       `yaml:"rate"`               // items/s per producer, 0 = unlimited
	Burst            int           `yaml:"burst"`
	Report           ReportConfig  `yaml:"report"`
	Metrics          MetricsConfig `yaml:"metrics"`
	Log              LogConfig     `yaml:"log"`
}

// QueueConfig selects and sizes the queue.
type QueueConfig struct {
	Kind     queue.Kind `yaml:"kind"`
	Capacity int        `yaml:"capacity"`
}

// ReportConfig controls producer progress logging.
type ReportConfig struct {
	Interval time.Duration `yaml:"interval"`
	Ticker   tick.Kind     `yaml:"ticker"`
	Every    int           `yaml:"every"` // clock read period for the batch ticker
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LogConfig controls the slog handler built by the CLI.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns a configuration that runs a small pipeline locally.
func Default() Config {
	return Config{
		Queue: QueueConfig{
			Kind:     queue.KindCond,
			Capacity: 1024,
		},
		Producers:        4,
		Consumers:        2,
		ItemsPerProducer: 100_000,
		Burst:            1,
		Report: ReportConfig{
			Interval: tick.DefaultInterval,
			Ticker:   tick.KindAtomic,
			Every:    1000,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML file over Default(). Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config.Load: read %s failed: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config.Load: parse %s failed: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default(). Empty input yields Default().
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config.Parse: decode failed: %w", err)
	}
	return cfg, nil
}

// Validate checks every field and returns all problems joined.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	switch c.Queue.Kind {
	case queue.KindCond, queue.KindChannel:
	default:
		add("queue.kind %q (want %q or %q)", c.Queue.Kind, queue.KindCond, queue.KindChannel)
	}
	if c.Queue.Capacity <= 0 || c.Queue.Capacity > queue.MaxCapacity {
		add("queue.capacity %d out of range [1, %d]", c.Queue.Capacity, queue.MaxCapacity)
	}
	if c.Producers < 1 {
		add("producers %d must be at least 1", c.Producers)
	}
	if c.Consumers < 1 {
		add("consumers %d must be at least 1", c.Consumers)
	}
	if c.ItemsPerProducer < 0 {
		add("items_per_producer %d must not be negative", c.ItemsPerProducer)
	}
	if c.Rate < 0 {
		add("rate %g must not be negative", c.Rate)
	}
	if c.Rate > 0 && c.Burst < 1 {
		add("burst %d must be at least 1 when rate is set", c.Burst)
	}
	switch c.Report.Ticker {
	case tick.KindStd, tick.KindAtomic, tick.KindBatch:
	default:
		add("report.ticker %q (want std, atomic or batch)", c.Report.Ticker)
	}
	if c.Report.Interval <= 0 {
		add("report.interval %s must be positive", c.Report.Interval)
	}
	if c.Metrics.Enabled {
		if c.Metrics.Addr == "" {
			add("metrics.addr must be set when metrics are enabled")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			add("metrics.path %q must start with /", c.Metrics.Path)
		}
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		add("log.format %q (want text or json)", c.Log.Format)
	}

	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalidConfig, s)
	}
	return level, nil
}

// NewLogger builds the logger described by c, writing to w.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
