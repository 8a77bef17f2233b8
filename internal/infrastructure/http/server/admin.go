package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/alchemorsel/recipediff/internal/infrastructure/config"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// AdminServer serves Prometheus metrics and pprof on a separate port
type AdminServer struct {
	logger *zap.Logger
	router *chi.Mux
	server *http.Server
}

// NewAdminServer creates the admin server. Profiling is mounted under
// /debug only when enabled.
func NewAdminServer(cfg *config.Config, gatherer prometheus.Gatherer, logger *zap.Logger) *AdminServer {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog:          zap.NewStdLog(logger),
		EnableOpenMetrics: true,
	}))
	if cfg.Monitoring.EnablePprof {
		r.Mount("/debug", chimiddleware.Profiler())
	}

	return &AdminServer{
		logger: logger.Named("admin"),
		router: r,
		server: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Monitoring.MetricsPort)),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the admin router
func (a *AdminServer) Handler() http.Handler {
	return a.router
}

// Start starts the admin server and blocks until it stops
func (a *AdminServer) Start() error {
	a.logger.Info("Starting admin server", zap.String("addr", a.server.Addr))
	if err := a.server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the admin server
func (a *AdminServer) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}
