package queue

import (
	"log/slog"

	"github.com/randomizedcoder/ringqueue/internal/metrics"
)

// DropCallback is called with each item discarded by an overwriting Push.
// It runs on the producer's goroutine after the queue lock is released.
type DropCallback[T any] func(item T)

// Option configures a queue.
type Option[T any] func(*options[T])

type options[T any] struct {
	registry *metrics.Registry
	name     string
	onDrop   DropCallback[T]
	logger   *slog.Logger
}

// WithMetrics exports the queue's statistics to registry, labelled with
// name. Ignored if registry is nil or name is empty.
func WithMetrics[T any](registry *metrics.Registry, name string) Option[T] {
	return func(o *options[T]) {
		if registry != nil && name != "" {
			o.registry = registry
			o.name = name
		}
	}
}

// WithDropCallback sets the function called for every dropped item.
func WithDropCallback[T any](fn DropCallback[T]) Option[T] {
	return func(o *options[T]) {
		o.onDrop = fn
	}
}

// WithLogger sets the logger used for construction-time messages.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(o *options[T]) {
		o.logger = logger
	}
}

func applyOptions[T any](opts ...Option[T]) *options[T] {
	o := &options[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
