package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

// Breaker is a circuit breaker whose state is reported on /health/breakers.
type Breaker interface {
	Name() string
	State() gobreaker.State
}

// HealthServer serves the worker's probe and metrics endpoints:
//
//   - GET /health: liveness, always 200
//   - GET /health/ready: 200 once SetReady(true), 503 before
//   - GET /health/breakers: circuit breaker states, 503 if any is open
//   - GET /metrics: Prometheus exposition of gatherer
type HealthServer struct {
	addr     string
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	isReady  atomic.Bool

	mu       sync.Mutex
	breakers []Breaker
}

type healthResponse struct {
	Status string `json:"status"`
}

type breakerStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

type breakersResponse struct {
	Healthy  bool            `json:"healthy"`
	Breakers []breakerStatus `json:"breakers"`
}

// NewHealthServer creates a server for addr (e.g. ":9091"). A nil gatherer
// exposes the default Prometheus registry. The server starts not ready.
func NewHealthServer(addr string, logger *slog.Logger, gatherer prometheus.Gatherer) *HealthServer {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &HealthServer{addr: addr, logger: logger, gatherer: gatherer}
}

// WatchBreakers adds breakers to the /health/breakers report.
func (h *HealthServer) WatchBreakers(breakers ...Breaker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.breakers = append(h.breakers, breakers...)
}

// Handler returns the server's routes.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleLiveness)
	mux.HandleFunc("GET /health/ready", h.handleReadiness)
	mux.HandleFunc("GET /health/breakers", h.handleBreakers)
	mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Start serves until ctx is cancelled, then shuts down within 5 seconds.
// It returns http.ErrServerClosed after a graceful shutdown.
func (h *HealthServer) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         h.addr,
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		h.logger.Info("health server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("health server failed", slog.Any("error", err))
		}
		return err
	}
}

// SetReady sets the /health/ready state.
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

func (h *HealthServer) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *HealthServer) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if h.isReady.Load() {
		h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
}

func (h *HealthServer) handleBreakers(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	breakers := append([]Breaker(nil), h.breakers...)
	h.mu.Unlock()

	resp := breakersResponse{Healthy: true, Breakers: make([]breakerStatus, 0, len(breakers))}
	for _, b := range breakers {
		state := b.State()
		resp.Breakers = append(resp.Breakers, breakerStatus{Name: b.Name(), State: state.String()})
		if state == gobreaker.StateOpen {
			resp.Healthy = false
		}
	}

	status := http.StatusOK
	if !resp.Healthy {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, resp)
}

func (h *HealthServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode health response", slog.Any("error", err))
	}
}
