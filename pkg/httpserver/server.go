package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/timeflowlabs/timeflow/internal/factory"
	"github.com/timeflowlabs/timeflow/internal/registry"
	"github.com/timeflowlabs/timeflow/internal/vault"
	"github.com/timeflowlabs/timeflow/pkg/cache"
	"github.com/timeflowlabs/timeflow/pkg/healthprobe"
	"github.com/timeflowlabs/timeflow/pkg/websocket"
	"go.uber.org/zap"
)

// Server provides the read-only HTTP surface: market configs, order lookups,
// collateral info, the websocket fill feed, metrics and health checks.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Registry      *registry.Registry
	Factory       *factory.Factory
	Vault         *vault.Vault
	Cache         cache.Cache // optional
	CacheTTL      time.Duration
	FillHub       *websocket.Hub // optional
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Routes
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	h := newReadHandler(cfg)
	r.Get("/api/markets/current-id", h.HandleMarketID)
	r.Get("/api/markets/{marketID}", h.HandleMarketInfo)
	r.Get("/api/markets/{marketID}/config", h.HandleMarketConfig)
	r.Get("/api/markets/{marketID}/orders", h.HandleOrders)
	r.Get("/api/markets/{marketID}/orders/{orderID}", h.HandleOrderInfo)
	r.Get("/api/markets/{marketID}/orders/{orderID}/state", h.HandleOrderState)
	r.Get("/api/collateral/{token}", h.HandleCollateralInfo)

	if cfg.FillHub != nil {
		r.Get("/ws", cfg.FillHub.Handler())
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
