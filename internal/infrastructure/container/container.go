// Package container provides dependency injection using Uber FX
// This implements the Dependency Inversion Principle from SOLID
package container

import (
	"context"
	"fmt"
	"time"

	appdiff "github.com/alchemorsel/recipediff/internal/application/diff"
	"github.com/alchemorsel/recipediff/internal/application/revision"
	"github.com/alchemorsel/recipediff/internal/domain/diff"
	"github.com/alchemorsel/recipediff/internal/infrastructure/config"
	"github.com/alchemorsel/recipediff/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/recipediff/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/recipediff/internal/infrastructure/http/server"
	"github.com/alchemorsel/recipediff/internal/infrastructure/monitoring"
	"github.com/alchemorsel/recipediff/internal/infrastructure/persistence"
	gormRepo "github.com/alchemorsel/recipediff/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/recipediff/internal/infrastructure/persistence/memory"
	redisCache "github.com/alchemorsel/recipediff/internal/infrastructure/persistence/redis"
	"github.com/alchemorsel/recipediff/internal/infrastructure/security"
	"github.com/alchemorsel/recipediff/internal/ports/inbound"
	"github.com/alchemorsel/recipediff/internal/ports/outbound"
	"github.com/alchemorsel/recipediff/pkg/healthcheck"
	"github.com/alchemorsel/recipediff/pkg/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// connectTimeout bounds connecting to and migrating the database at startup
const connectTimeout = 30 * time.Second

// ConfigPath is the config file to load. Empty searches the default
// locations.
type ConfigPath string

// Module provides all dependency injection modules
var Module = fx.Options(
	// Infrastructure modules
	ConfigModule,
	LoggerModule,
	DatabaseModule,
	CacheModule,
	MonitoringModule,

	// Repository modules
	RepositoryModule,

	// Service modules
	SecurityModule,
	ServiceModule,

	// HTTP modules
	HTTPModule,

	// Lifecycle hooks
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Config, error) {
		return config.Load(string(path))
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*logger.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.Log.Level,
			Format:      cfg.Log.Format,
			Development: cfg.App.Debug,
			File:        cfg.Log.File,
			MaxSizeMB:   cfg.Log.MaxSizeMB,
			MaxBackups:  cfg.Log.MaxBackups,
			MaxAgeDays:  cfg.Log.MaxAgeDays,
			Compress:    cfg.Log.Compress,
		})
	},
	func(l *logger.Logger) *zap.Logger {
		return l.Logger
	},
)

// DatabaseModule provides database connections
var DatabaseModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		db, err := persistence.Open(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return db.Close()
			},
		})
		return db, nil
	},
	func(db *persistence.Database) *gorm.DB {
		return db.DB
	},
)

// CacheModule provides the diff cache selected by cache.provider. The
// "none" provider yields a nil cache and comparisons are always computed.
var CacheModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (outbound.CacheRepository, error) {
		switch cfg.Cache.Provider {
		case "redis":
			client, err := redisCache.NewClient(context.Background(), cfg, log)
			if err != nil {
				return nil, err
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					return client.Close()
				},
			})
			return redisCache.NewCacheRepository(client, log), nil
		case "none":
			log.Info("Diff cache disabled")
			return nil, nil
		default:
			log.Info("Using in-memory diff cache", zap.Int("size", cfg.Cache.Size))
			return memory.NewCacheRepository(cfg.Cache.Size, cfg.Cache.TTL), nil
		}
	},
)

// MonitoringModule provides metrics and tracing
var MonitoringModule = fx.Provide(
	func(db *persistence.Database, log *zap.Logger) *monitoring.MetricsCollector {
		metrics := monitoring.NewMetricsCollector()
		if err := metrics.RegisterDB(db.SQL, db.Driver); err != nil {
			log.Warn("Failed to register database metrics", zap.Error(err))
		}
		return metrics
	},
	fx.Annotate(
		func(m *monitoring.MetricsCollector) *prometheus.Registry { return m.Registry() },
		fx.As(new(prometheus.Gatherer)),
	),
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
		tp, err := monitoring.NewTracingProvider(context.Background(), monitoring.TracingConfig{
			ServiceName:    cfg.App.Name,
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Environment,
			Endpoint:       cfg.Monitoring.OTLPEndpoint,
			Insecure:       cfg.Monitoring.OTLPInsecure,
			SamplingRate:   cfg.Monitoring.SamplingRate,
			Enabled:        cfg.Monitoring.EnableTracing,
		}, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: tp.Shutdown})
		return tp, nil
	},
)

// RepositoryModule provides repository implementations
var RepositoryModule = fx.Provide(
	fx.Annotate(
		gormRepo.NewRevisionRepository,
		fx.As(new(outbound.RevisionRepository)),
	),
)

// SecurityModule provides token verification and input sanitising
var SecurityModule = fx.Provide(
	security.NewTokenVerifier,
	security.NewSanitizer,
)

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	func(
		cfg *config.Config,
		cache outbound.CacheRepository,
		sanitizer *security.Sanitizer,
		metrics *monitoring.MetricsCollector,
		log *zap.Logger,
	) (inbound.DiffService, error) {
		alignment, err := diff.ParseAlignment(cfg.Diff.Alignment)
		if err != nil {
			return nil, err
		}
		return appdiff.NewService(appdiff.Config{
			DefaultAlignment: alignment,
			AddedClass:       cfg.Diff.AddedClass,
			Escape:           cfg.Diff.Escape,
			Sanitize:         cfg.Diff.Sanitize,
			CacheTTL:         cfg.Cache.TTL,
		}, cache, sanitizer, metrics, log), nil
	},
	func(
		revisions outbound.RevisionRepository,
		differ inbound.DiffService,
		metrics *monitoring.MetricsCollector,
		log *zap.Logger,
	) inbound.RevisionService {
		return revision.NewService(revisions, differ, metrics, log)
	},
	func(cfg *config.Config, service inbound.RevisionService, log *zap.Logger) *revision.RetentionScheduler {
		return revision.NewRetentionScheduler(service, cfg.Retention.Interval, cfg.Retention.OlderThan, log)
	},
)

// HTTPModule provides HTTP servers and handlers
var HTTPModule = fx.Provide(
	func(
		cfg *config.Config,
		log *zap.Logger,
		metrics *monitoring.MetricsCollector,
		verifier *security.TokenVerifier,
	) *middleware.Middleware {
		return middleware.New(cfg, log, metrics, verifier)
	},
	handlers.NewAPIHandlers,
	NewHealthCheck,
	server.NewServer,
	server.NewAdminServer,
)

// NewHealthCheck registers the database and, when configured, the cache
// and retention checkers. Only the database is critical.
func NewHealthCheck(
	cfg *config.Config,
	db *persistence.Database,
	cache outbound.CacheRepository,
	retention *revision.RetentionScheduler,
	log *zap.Logger,
) *healthcheck.HealthCheck {
	health := healthcheck.New(cfg.App.Version, log)
	health.Register("database", healthcheck.NewDatabaseChecker(db.SQL))
	if cache != nil {
		health.Register("cache", healthcheck.NewPingChecker(cache, false))
	}
	if cfg.Retention.Enable {
		health.Register("retention", healthcheck.NewCustomChecker("retention", retentionCheck(retention)))
	}
	return health
}

// retentionCheck reports degraded while the latest prune has failed
func retentionCheck(r *revision.RetentionScheduler) func(context.Context) (healthcheck.Status, string, interface{}) {
	return func(context.Context) (healthcheck.Status, string, interface{}) {
		last := r.LastRun()
		if last.At.IsZero() {
			return healthcheck.StatusHealthy, "No prune has run yet", nil
		}

		metadata := map[string]interface{}{
			"last_run": last.At,
			"deleted":  last.Deleted,
		}
		if last.Err != nil {
			return healthcheck.StatusDegraded, last.Err.Error(), metadata
		}
		return healthcheck.StatusHealthy, "Last prune succeeded", metadata
	}
}

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	lg *logger.Logger,
	api *server.Server,
	admin *server.AdminServer,
	retention *revision.RetentionScheduler,
	tracing *monitoring.TracingProvider,
) {
	log := lg.Logger

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting recipe diff service",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.Bool("tracing", tracing.Enabled()),
			)

			go func() {
				if err := api.Start(); err != nil {
					log.Error("HTTP server failed", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()

			if cfg.Monitoring.EnableMetrics {
				go func() {
					if err := admin.Start(); err != nil {
						log.Error("Admin server failed", zap.Error(err))
					}
				}()
			}

			if cfg.Retention.Enable {
				retention.Start()
			}

			cfg.Watch(func(next *config.Config, e fsnotify.Event) {
				lg.SetLevel(next.Log.Level)
				log.Info("Configuration reloaded",
					zap.String("file", e.Name),
					zap.String("log_level", next.Log.Level),
				)
			}, func(err error) {
				log.Warn("Ignoring invalid configuration change", zap.Error(err))
			})

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down recipe diff service")

			retention.Stop()

			if err := api.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}
			if err := admin.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown admin server", zap.Error(err))
			}

			// Flush logs
			_ = log.Sync()

			return nil
		},
	})
}
