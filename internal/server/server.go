// Package server runs the gateway's HTTP listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/maltehedderich/steam-api-go/internal/api"
	"github.com/maltehedderich/steam-api-go/internal/config"
	"github.com/maltehedderich/steam-api-go/internal/health"
	"github.com/maltehedderich/steam-api-go/internal/logger"
	"github.com/maltehedderich/steam-api-go/internal/metrics"
	"github.com/maltehedderich/steam-api-go/internal/middleware"
	"github.com/maltehedderich/steam-api-go/internal/tracing"
)

// Server represents the gateway server
type Server struct {
	config        *config.Config
	httpServer    *http.Server
	api           *api.Handler
	apiMiddleware []middleware.Middleware
	healthManager *health.Manager
	logger        *logger.ComponentLogger
}

// New creates a new server instance. apiMiddleware runs on every /v1
// route after metrics are recorded, typically auth then client limits.
func New(cfg *config.Config, handler *api.Handler, healthMgr *health.Manager, apiMiddleware ...middleware.Middleware) *Server {
	return &Server{
		config:        cfg,
		api:           handler,
		apiMiddleware: apiMiddleware,
		healthManager: healthMgr,
		logger:        logger.Get().WithComponent("server"),
	}
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:           net.JoinHostPort(s.config.Server.Host, strconv.Itoa(s.config.Server.HTTPPort)),
		Handler:        s.Handler(),
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 2)

	go func() {
		s.logger.Info("starting HTTP server", logger.Fields{
			"addr": s.httpServer.Addr,
		})
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	go s.handleShutdown(errChan)

	return <-errChan
}

// Handler returns the root handler: observability endpoints plus the API,
// wrapped in Recovery -> CorrelationID -> Tracing -> Logging -> Security
// -> InputValidation.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	obs := s.config.Observability
	mux.HandleFunc("GET "+obs.HealthPath, s.healthManager.HealthHandler())
	mux.HandleFunc("GET "+obs.ReadinessPath, s.healthManager.ReadinessHandler())
	mux.HandleFunc("GET "+obs.LivenessPath, s.healthManager.LivenessHandler())
	if obs.MetricsEnabled {
		metrics.Init()
		mux.Handle("GET "+obs.MetricsPath, metrics.Handler())
	}

	if s.api != nil {
		s.api.Register(mux, s.apiMiddleware...)
	}

	mux.HandleFunc("/", notFound)

	chain := middleware.NewChain(
		middleware.Recovery(),
		middleware.CorrelationID(),
	)
	if obs.Tracing.Enabled {
		chain = chain.Append(tracing.Middleware())
	}
	sec := &s.config.Server.Security
	return chain.Append(
		middleware.Logging(),
		middleware.Security(sec),
		middleware.InputValidation(sec),
	).Then(mux)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSONError(w, r, http.StatusNotFound, "not_found", "No route for "+r.URL.Path)
}

// handleShutdown handles graceful shutdown
func (s *Server) handleShutdown(errChan chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	s.logger.Info("shutdown signal received", logger.Fields{
		"signal": sig.String(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", logger.Fields{
			"error": err.Error(),
		})
	}

	s.logger.Info("server shutdown complete")
	errChan <- nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating server shutdown")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}
	return nil
}
