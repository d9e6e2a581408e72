// Package httpstatus exposes operator-facing liveness, readiness, and
// metrics endpoints for the engine. It is ambient observability, not one of
// spec.md's named components; none of the spec's Non-goals exclude a
// health/metrics surface, so it is carried the way the teacher carries its
// own status server.
package httpstatus

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// EngineStatus abstracts the engine's readiness so this package does not
// need to import internal/engine.
type EngineStatus interface {
	Ready() bool
}

// Server serves /healthz, /readyz, and /metrics.
type Server struct {
	srv    *http.Server
	engine EngineStatus
	logger *zap.Logger
}

// NewServer builds the status server. addr is the listen address, e.g.
// "127.0.0.1:9100".
func NewServer(addr string, engine EngineStatus, logger *zap.Logger) *Server {
	s := &Server{
		engine: engine,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	mux.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Start binds the listener and serves in a background goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("status server listening", zap.String("addr", s.srv.Addr))
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("status server error", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	ready := s.engine != nil && s.engine.Ready()

	w.Header().Set("Content-Type", "application/json")
	status := "ready"
	httpStatus := http.StatusOK
	if !ready {
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": map[string]bool{"engine": ready},
	})
}
