// Package postgres provides PostgreSQL database connection and management
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alchemorsel/recipediff/internal/infrastructure/config"
	gormModels "github.com/alchemorsel/recipediff/internal/infrastructure/persistence/gorm"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

// ConnectionManager manages PostgreSQL database connections
type ConnectionManager struct {
	config *config.DatabaseConfig
	logger *zap.Logger
	db     *gorm.DB
	sqlDB  *sql.DB
}

// NewConnectionManager opens the primary connection and registers any
// configured read replicas
func NewConnectionManager(ctx context.Context, cfg *config.Config, log *zap.Logger) (*ConnectionManager, error) {
	cm := &ConnectionManager{
		config: &cfg.Database,
		logger: log.Named("postgres"),
	}

	if err := cm.initializePrimaryConnection(ctx, cfg.GetDSN()); err != nil {
		return nil, fmt.Errorf("failed to initialize primary connection: %w", err)
	}

	// Replicas are optional; reads fall back to the primary
	if err := cm.initializeReadReplicas(); err != nil {
		cm.logger.Warn("Failed to initialize read replicas", zap.Error(err))
	}

	cm.logger.Info("Database connection manager initialized",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
		zap.Duration("conn_max_lifetime", cfg.Database.ConnMaxLifetime),
		zap.Int("replicas", len(cfg.Database.Replicas)),
	)

	return cm, nil
}

// initializePrimaryConnection sets up the primary database connection
func (cm *ConnectionManager) initializePrimaryConnection(ctx context.Context, dsn string) error {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 gormModels.NewLogger(cm.logger, cm.config.LogLevel, cm.config.SlowQueryThreshold),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cm.config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cm.config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cm.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cm.config.ConnMaxIdleTime)

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	cm.db = db
	cm.sqlDB = sqlDB
	return nil
}

// initializeReadReplicas sets up read replica connections
func (cm *ConnectionManager) initializeReadReplicas() error {
	if len(cm.config.Replicas) == 0 {
		return nil
	}

	replicas := make([]gorm.Dialector, len(cm.config.Replicas))
	for i, host := range cm.config.Replicas {
		replicas[i] = postgres.Open(config.PostgresDSN(host, cm.config.Port, *cm.config))
	}

	err := cm.db.Use(dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   dbresolver.RandomPolicy{},
	}).
		SetMaxOpenConns(cm.config.MaxOpenConns).
		SetMaxIdleConns(cm.config.MaxIdleConns).
		SetConnMaxLifetime(cm.config.ConnMaxLifetime))
	if err != nil {
		return fmt.Errorf("failed to register read replicas: %w", err)
	}

	cm.logger.Info("Read replicas configured", zap.Int("replica_count", len(replicas)))
	return nil
}

// GetDB returns the main database connection
func (cm *ConnectionManager) GetDB() *gorm.DB {
	return cm.db
}

// SQLDB returns the primary connection pool
func (cm *ConnectionManager) SQLDB() *sql.DB {
	return cm.sqlDB
}

// HealthCheck performs a health check on the primary connection
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("primary database ping failed: %w", err)
	}
	return nil
}

// Close closes all database connections
func (cm *ConnectionManager) Close() error {
	if cm.sqlDB == nil {
		return nil
	}
	return cm.sqlDB.Close()
}
