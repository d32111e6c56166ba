package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultPath is where metrics are served when no path is configured.
const DefaultPath = "/metrics"

// Server exposes a Registry over HTTP.
type Server struct {
	addr     string
	path     string
	registry *Registry
	logger   *slog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	closed   bool
}

// NewServer creates a metrics server. An empty path defaults to DefaultPath;
// a nil logger falls back to slog.Default().
func NewServer(addr, path string, registry *Registry, logger *slog.Logger) *Server {
	if path == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:     addr,
		path:     path,
		registry: registry,
		logger:   logger.With("component", "metrics-server"),
	}
}

// Listen binds the listening socket without serving. Calling it before Serve
// lets callers learn the bound address (useful with ":0").
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registry == nil {
		return errors.New("Server.Listen: validate registry failed: nil registry")
	}
	if s.closed {
		return errors.New("Server.Listen: bind failed: server shut down")
	}
	if s.listener != nil {
		return errors.New("Server.Listen: bind failed: already listening")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("Server.Listen: bind %s failed: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.Handle(s.path, promhttp.HandlerFor(s.registry.PrometheusRegistry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

// Serve blocks serving HTTP until Shutdown is called. It binds first if
// Listen has not been called, and returns nil at once after Shutdown.
func (s *Server) Serve() error {
	s.mu.Lock()
	bound, closed := s.listener != nil, s.closed
	s.mu.Unlock()
	if closed {
		return nil
	}
	if !bound {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	srv, ln := s.server, s.listener
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.logger.Info("serving metrics", "addr", ln.Addr().String(), "path", s.path)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("Server.Serve: serve failed: %w", err)
	}
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Path returns the metrics path.
func (s *Server) Path() string {
	return s.path
}

// Shutdown gracefully stops the server. The server cannot be restarted
// afterwards.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, ln := s.server, s.listener
	s.server = nil
	s.listener = nil
	s.closed = true
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	// Shutdown only closes listeners that Serve picked up.
	_ = ln.Close()
	if err != nil {
		return fmt.Errorf("Server.Shutdown: stop failed: %w", err)
	}
	return nil
}
