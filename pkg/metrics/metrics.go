// Package metrics exposes the replay client's Prometheus metrics over HTTP.
// The metrics themselves are defined in their packages (client, pagination,
// delivery, sink) and registered with the default registry via promauto.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Handler returns the /metrics HTTP handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server serves /metrics and /health until its context is cancelled.
type Server struct {
	server   *http.Server
	listener net.Listener
	logger   zerolog.Logger
}

// Listen binds addr (e.g. ":9090" or "127.0.0.1:0") for the metrics server.
func Listen(addr string, logger zerolog.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", healthHandler)

	return &Server{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: listener,
		logger:   logger,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks until ctx is cancelled, then shuts the server down.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.Addr()).Msg("Serving metrics")
		errCh <- s.server.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	return nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// Metrics Documentation
//
// Engine Request Metrics (pkg/client):
//   - replay_requests_total{endpoint, status} (Counter): Requests by route template and HTTP status
//   - replay_request_duration_seconds{endpoint} (Histogram): Request duration by route template
//   - replay_errors_total{class} (Counter): Errors by class (client, server, network, decode)
//
// Pagination Metrics (pkg/pagination):
//   - replay_pages_fetched_total{result} (Counter): Pages fetched, result = frames | empty
//   - replay_frames_fetched_total (Counter): Frames fetched
//   - replay_backoff_waits_total (Counter): Backoff waits after an empty page
//
// Delivery Metrics (pkg/delivery):
//   - replay_frames_delivered_total (Counter): Frames handed to the handler
//   - replay_delivery_queue_depth (Gauge): Frames waiting for delivery
//   - replay_delivery_lag_seconds (Histogram): Enqueue-to-delivery latency
//
// Redis Sink Metrics (pkg/sink):
//   - replay_redis_frames_recorded_total (Counter): Frames written to Redis
//   - replay_redis_errors_total{operation} (Counter): Redis errors by operation
//
// Example Prometheus Queries:
//
//   # Share of polls that came back empty (engine lagging behind)
//   rate(replay_pages_fetched_total{result="empty"}[5m]) /
//   sum(rate(replay_pages_fetched_total[5m]))
//
//   # Delivery backlog
//   replay_delivery_queue_depth > 100
//
//   # P95 engine latency
//   histogram_quantile(0.95, rate(replay_request_duration_seconds_bucket[5m]))
