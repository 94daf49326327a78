package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"askmeter-hq/askproxy/pkg/config"
	"askmeter-hq/askproxy/pkg/ledger"
	"askmeter-hq/askproxy/pkg/proxy"
	"askmeter-hq/askproxy/pkg/proxy/handlers"
	"askmeter-hq/askproxy/pkg/proxy/middleware"
	"askmeter-hq/askproxy/pkg/telemetry/health"
	"askmeter-hq/askproxy/pkg/telemetry/metrics"
	"askmeter-hq/askproxy/pkg/telemetry/tracing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Dependencies are the components the server routes to.
type Dependencies struct {
	// Asker serves POST /ask.
	Asker handlers.Asker

	// Metrics serves the metrics endpoint.
	Metrics *metrics.Collector

	// Ledger backs the /usage endpoints. Nil when the ledger is disabled.
	Ledger ledger.Storage

	// Health serves /health and /ready. Nil gets a checker with no checks.
	Health *health.Checker

	// Build information for /version.
	Version   string
	Commit    string
	BuildTime string
}

// Server is the askproxy HTTP server.
type Server struct {
	config      *config.ServerConfig
	metricsPath string
	deps        Dependencies
	logger      *slog.Logger

	mu         sync.RWMutex
	httpServer *http.Server
	listener   net.Listener
	isRunning  bool
}

// NewServer creates a server. metricsPath is where the Prometheus
// exposition is mounted.
func NewServer(cfg *config.ServerConfig, metricsPath string, deps Dependencies) *Server {
	if metricsPath == "" {
		metricsPath = config.DefaultMetricsPath
	}
	if deps.Health == nil {
		deps.Health = health.New(0)
	}
	return &Server{
		config:      cfg,
		metricsPath: metricsPath,
		deps:        deps,
		logger:      slog.Default().With("component", "server"),
	}
}

// Start listens on the configured address and serves until ctx is done,
// then shuts down gracefully. It returns nil after a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", s.config.ListenAddress, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}
	s.isRunning = true
	httpServer := s.httpServer
	s.mu.Unlock()

	s.logger.Info("starting server", "address", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errCh:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		if ok {
			return err
		}
		return nil
	}
}

// Shutdown stops accepting connections and waits for in-flight requests,
// bounded by the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	httpServer := s.httpServer
	s.mu.Unlock()

	s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error during server shutdown", "error", err)
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured router with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Outermost first.
	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware)
	r.Use(tracing.HTTPMiddleware)
	if s.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.config.CORS.AllowedOrigins,
			AllowedMethods: s.config.CORS.AllowedMethods,
			AllowedHeaders: s.config.CORS.AllowedHeaders,
			ExposedHeaders: []string{middleware.RequestIDHeader, "X-Trace-ID"},
			MaxAge:         s.config.CORS.MaxAge,
		}))
	}

	r.Get("/", handlers.Home)
	r.Get("/health", s.deps.Health.LivenessHandler())
	r.Get("/ready", s.deps.Health.ReadinessHandler())
	r.Get("/version", health.VersionHandler(s.deps.Version, s.deps.Commit, s.deps.BuildTime))
	r.Handle(s.metricsPath, s.deps.Metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.TimeoutMiddleware(s.config.WriteTimeout))

		r.Method(http.MethodPost, "/ask", handlers.NewAskHandler(s.deps.Asker, s.config.MaxBodyBytes))

		usage := handlers.NewUsageHandler(s.deps.Ledger)
		r.Get("/usage", usage.Summaries)
		r.Get("/usage/records", usage.Records)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		proxy.WriteErrorResponse(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		proxy.WriteErrorResponse(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return r
}
