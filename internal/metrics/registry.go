// Package metrics wraps a Prometheus registry for ringqueue components and
// serves it over HTTP.
//
// Components register their collectors under an owner name (a queue name,
// "pipeline", ...). The (owner, name) pair must be unique within a Registry;
// a second registration of the same pair fails with ErrDuplicate instead of
// panicking the way prometheus.MustRegister would.
package metrics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Namespace prefixes every metric exported by this module.
const Namespace = "ringqueue"

// ErrDuplicate is returned when an (owner, name) pair is registered twice.
var ErrDuplicate = errors.New("metric already registered")

// Registry manages the registration and lifecycle of metrics.
type Registry struct {
	prom       *prometheus.Registry
	mu         sync.Mutex
	registered map[string]prometheus.Collector
}

// NewRegistry creates a registry preloaded with Go runtime and process
// collectors.
func NewRegistry() *Registry {
	r := newRegistry()
	r.prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// NewBareRegistry creates a registry without runtime collectors. Tests use it
// to gather only what they registered.
func NewBareRegistry() *Registry {
	return newRegistry()
}

func newRegistry() *Registry {
	return &Registry{
		prom:       prometheus.NewRegistry(),
		registered: make(map[string]prometheus.Collector),
	}
}

// PrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prom
}

// RegisterCounter registers a counter for owner.
func (r *Registry) RegisterCounter(owner, name string, c prometheus.Counter) error {
	return r.register("RegisterCounter", owner, name, c)
}

// RegisterGauge registers a gauge for owner.
func (r *Registry) RegisterGauge(owner, name string, g prometheus.Gauge) error {
	return r.register("RegisterGauge", owner, name, g)
}

// RegisterHistogram registers a histogram for owner.
func (r *Registry) RegisterHistogram(owner, name string, h prometheus.Histogram) error {
	return r.register("RegisterHistogram", owner, name, h)
}

// Unregister removes a previously registered collector. It reports whether
// anything was removed.
func (r *Registry) Unregister(owner, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := owner + "." + name
	c, ok := r.registered[key]
	if !ok {
		return false
	}
	delete(r.registered, key)
	return r.prom.Unregister(c)
}

func (r *Registry) register(method, owner, name string, c prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := owner + "." + name
	if _, exists := r.registered[key]; exists {
		return fmt.Errorf("Registry.%s: register %s failed: %w", method, key, ErrDuplicate)
	}

	if err := r.prom.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return fmt.Errorf("Registry.%s: register %s failed: %w: %w", method, key, ErrDuplicate, err)
		}
		return fmt.Errorf("Registry.%s: register %s failed: %w", method, key, err)
	}

	r.registered[key] = c
	return nil
}
