package metric

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360/canlink/errors"
	"github.com/c360/canlink/health"
)

// Server exposes the metrics registry and health monitor over HTTP.
type Server struct {
	addr     string
	path     string
	server   *http.Server
	registry *Registry
	monitor  *health.Monitor
	mu       sync.Mutex // protects server field
}

// NewServer creates a new metrics server with the provided registry. The
// monitor may be nil, in which case /healthz reports healthy unconditionally.
func NewServer(addr, path string, registry *Registry, monitor *health.Monitor) *Server {
	if path == "" {
		path = "/metrics"
	}
	if addr == "" {
		addr = ":9100"
	}

	return &Server{
		addr:     addr,
		path:     path,
		registry: registry,
		monitor:  monitor,
	}
}

// Start runs the HTTP server and blocks until Stop is called or the listener
// fails. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.mu.Lock()

	if s.server != nil {
		s.mu.Unlock()
		return errors.WrapStart(errors.ErrAlreadyStarted,
			"Server", "Start", "serve metrics")
	}

	if s.registry == nil {
		s.mu.Unlock()
		return errors.WrapStart(
			fmt.Errorf("nil registry"),
			"Server", "Start", "serve metrics")
	}

	mux := http.NewServeMux()

	handler := promhttp.HandlerFor(
		s.registry.PrometheusRegistry(),
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	)
	mux.Handle(s.path, handler)
	mux.HandleFunc("/healthz", s.handleHealthz)

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprintf(w, `<html>
<head><title>CANLink Metrics</title></head>
<body>
<h1>CANLink Metrics Server</h1>
<p><a href="%s">Metrics</a></p>
<p><a href="/healthz">Health</a></p>
</body>
</html>`, s.path)
	})

	server := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.server = server

	// ListenAndServe blocks; release the lock so Stop can close the server.
	s.mu.Unlock()

	if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return errors.WrapStart(err, "Server", "Start",
			fmt.Sprintf("listen on %s", s.addr))
	}

	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		err := s.server.Close()
		s.server = nil // reset server field to allow restart
		if err != nil {
			return errors.WrapStop(err, "Server", "Stop", "close HTTP server")
		}
	}
	return nil
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("http://%s%s", s.addr, s.path)
}

// handleHealthz serves the aggregated health status as JSON. Unhealthy
// aggregates answer 503 so load balancers and probes fail over.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.monitor == nil {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
		return
	}

	aggregate := s.monitor.AggregateHealth("canlink")

	code := http.StatusOK
	if aggregate.IsUnhealthy() {
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(aggregate); err != nil {
		// Headers are already written; nothing left to do for this request.
		return
	}
}
