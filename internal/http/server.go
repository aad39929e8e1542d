package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"accessify/internal/core"
)

const (
	serviceName = "accessify"
	// shutdownTimeout bounds graceful shutdown once the context is cancelled
	shutdownTimeout = 10 * time.Second
	outcomeOK       = "ok"
	outcomeFailed   = "failed"
)

// ReadinessFunc reports whether the service can run commands right now.
type ReadinessFunc func() bool

// StatusFunc returns a JSON-encodable snapshot of runtime state.
type StatusFunc func() any

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
}

// Metrics holds the collectors on a private registry so several instances can
// coexist in one process.
type Metrics struct {
	registry        *prometheus.Registry
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	TokenRefreshes  *prometheus.CounterVec
	DeviceTransfers *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accessify_commands_total",
				Help: "Total number of playback and library commands by outcome",
			},
			[]string{"command", "outcome"},
		),
		CommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "accessify_command_duration_seconds",
				Help:    "Time spent executing commands against Spotify",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		TokenRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accessify_token_refreshes_total",
				Help: "Total number of silent token refreshes",
			},
			[]string{"outcome"},
		),
		DeviceTransfers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accessify_device_transfers_total",
				Help: "Total number of playback transfers to a device",
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(
		m.CommandsTotal,
		m.CommandDuration,
		m.TokenRefreshes,
		m.DeviceTransfers,
	)

	return m
}

// Registry exposes the private registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordCommand(command, outcome string, duration time.Duration) {
	m.CommandsTotal.WithLabelValues(command, outcome).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func (m *Metrics) RecordTokenRefresh(ok bool) {
	m.TokenRefreshes.WithLabelValues(outcomeLabel(ok)).Inc()
}

func (m *Metrics) RecordDeviceTransfer(ok bool) {
	m.DeviceTransfers.WithLabelValues(outcomeLabel(ok)).Inc()
}

// RegisterQueueDepth publishes the number of actions waiting for a worker.
func (m *Metrics) RegisterQueueDepth(depth func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "accessify_action_queue_depth",
			Help: "Number of user actions waiting for a worker",
		},
		func() float64 { return float64(depth()) },
	))
}

func outcomeLabel(ok bool) string {
	if ok {
		return outcomeOK
	}
	return outcomeFailed
}

func NewServer(config *core.ServerConfig, metrics *Metrics, ready ReadinessFunc, status StatusFunc,
	logger *zap.Logger) *Server {
	mux := setupRoutes(logger, metrics, ready, status)

	return &Server{
		config:  config,
		logger:  logger,
		server:  createHTTPServer(config, mux),
		metrics: metrics,
	}
}

func createHTTPServer(config *core.ServerConfig, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:         config.Host + ":" + strconv.Itoa(config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func setupRoutes(logger *zap.Logger, metrics *Metrics, ready ReadinessFunc, status StatusFunc) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ok", "service": serviceName})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if ready != nil && !ready() {
			writeJSON(w, logger, http.StatusServiceUnavailable,
				map[string]string{"status": "not_authenticated", "service": serviceName})
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ready", "service": serviceName})
	})

	if status != nil {
		mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, logger, http.StatusOK, status())
		})
	}

	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("/", homeHandler(logger))

	return mux
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debug("Failed to write response", zap.Error(err))
	}
}

func homeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`<!DOCTYPE html>
<html lang="en">
<head>
    <title>Accessify</title>
</head>
<body>
    <h1>Accessify</h1>
    <p>Keyboard and screen reader friendly Spotify control.</p>

    <h2>Endpoints</h2>
    <ul>
        <li><a href="/metrics">Metrics</a>: Prometheus metrics</li>
        <li><a href="/healthz">Health</a>: health check</li>
        <li><a href="/readyz">Ready</a>: ready once signed in</li>
        <li><a href="/status">Status</a>: worker and throttle state</li>
    </ul>
</body>
</html>`)); err != nil {
			logger.Debug("Failed to write home page", zap.Error(err))
		}
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting status server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down status server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown status server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server failed: %w", err)
	}

	return nil
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}
