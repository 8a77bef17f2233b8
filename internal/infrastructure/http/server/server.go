// Package server provides the HTTP servers of the service: the public
// JSON API and the admin listener for metrics and profiling
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/alchemorsel/recipediff/internal/infrastructure/config"
	"github.com/alchemorsel/recipediff/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/recipediff/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/recipediff/pkg/errors"
	"github.com/alchemorsel/recipediff/pkg/healthcheck"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// Server represents the HTTP API server
type Server struct {
	config *config.Config
	logger *zap.Logger
	router *gin.Engine
	server *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	mw *middleware.Middleware,
	api *handlers.APIHandlers,
	health *healthcheck.HealthCheck,
) (*Server, error) {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config: cfg,
		logger: logger.Named("http"),
	}

	router, err := s.setupRouter(mw, api, health)
	if err != nil {
		return nil, err
	}
	s.router = router

	s.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}

	if cfg.Server.EnableHTTP2 {
		if err := http2.ConfigureServer(s.server, nil); err != nil {
			return nil, fmt.Errorf("failed to configure HTTP/2: %w", err)
		}
	}

	return s, nil
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter(mw *middleware.Middleware, api *handlers.APIHandlers, health *healthcheck.HealthCheck) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(s.config.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	// Global middleware
	r.Use(mw.RequestID())
	r.Use(mw.Logger())
	r.Use(mw.Recovery())
	r.Use(mw.Security())
	r.Use(mw.CORS())
	r.Use(mw.Tracing())
	r.Use(mw.Metrics())
	r.Use(mw.Compression())
	r.Use(mw.ErrorHandler())

	r.NoRoute(func(c *gin.Context) {
		_ = c.Error(errors.NewNotFoundError("Route"))
	})

	// Health endpoints
	r.GET("/health", health.Handler())
	r.GET("/health/live", health.LivenessHandler())
	r.GET("/health/ready", health.ReadinessHandler())

	// API routes
	v1 := r.Group("/api/v1", mw.RateLimit(), mw.BodyLimit(), mw.Timeout(s.config.Server.WriteTimeout))
	api.RegisterRoutes(v1, mw.Auth())

	return r, nil
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the address the server listens on
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr),
		zap.Bool("http2", s.config.Server.EnableHTTP2),
	)
	return s.serve(func() error { return s.server.ListenAndServe() })
}

// Serve accepts connections on l and blocks until the server stops
func (s *Server) Serve(l net.Listener) error {
	return s.serve(func() error { return s.server.Serve(l) })
}

func (s *Server) serve(run func() error) error {
	if err := run(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
