package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"archguard-hq/warden/pkg/config"
	"archguard-hq/warden/pkg/engine"
	"archguard-hq/warden/pkg/history"
	"archguard-hq/warden/pkg/server/middleware"
	"archguard-hq/warden/pkg/telemetry/metrics"
)

// Recorder persists validation outcomes. A nil Recorder disables recording.
type Recorder interface {
	RecordValidation(ctx context.Context, result engine.ValidateResult) error
}

// HistoryReader lists persisted validation runs, newest first. A Recorder
// that also implements it gets the history lookup route.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Record, error)
}

// Server is warden's HTTP API server.
type Server struct {
	config    *config.ServerConfig
	engine    *engine.Engine
	collector *metrics.Collector
	recorder  Recorder
	logger    *slog.Logger

	metricsCfg *config.MetricsConfig

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates the API server. collector and recorder may be nil.
func NewServer(cfg *config.ServerConfig, metricsCfg *config.MetricsConfig, eng *engine.Engine, collector *metrics.Collector, recorder Recorder) *Server {
	return &Server{
		config:       cfg,
		metricsCfg:   metricsCfg,
		engine:       eng,
		collector:    collector,
		recorder:     recorder,
		logger:       slog.Default().With("component", "server"),
		shutdownChan: make(chan struct{}),
	}
}

// Start runs the HTTP server and blocks until shutdown via context
// cancellation, SIGINT/SIGTERM, or Shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting api server", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully stops the server within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("api server stopped")
	})

	return shutdownErr
}

// Handler returns the configured route handler with the middleware chain
// applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/validate_diff", s.handleValidateDiff)
	mux.HandleFunc("GET /api/system_overview", s.handleSystemOverview)
	mux.HandleFunc("GET /api/service_contract/{service}", s.handleServiceContract)
	mux.HandleFunc("GET /api/env_matrix", s.handleEnvMatrix)
	mux.HandleFunc("GET /api/service_urls", s.handleServiceURLs)
	mux.HandleFunc("POST /api/plan_change", s.handlePlanChange)

	if reader, ok := s.recorder.(HistoryReader); ok {
		mux.HandleFunc("GET /api/history", s.handleHistory(reader))
	}

	if s.collector != nil && s.metricsCfg != nil && s.metricsCfg.Enabled {
		mux.Handle("GET "+s.metricsCfg.Path, s.collector.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.Timeout(s.config.WriteTimeout)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Logging(handler)
	handler = middleware.Recovery(handler)
	return handler
}

// IsRunning reports whether the server is accepting requests.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
