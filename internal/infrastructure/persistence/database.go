// Package persistence opens the configured revision store
package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alchemorsel/recipediff/internal/infrastructure/config"
	gormModels "github.com/alchemorsel/recipediff/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/recipediff/internal/infrastructure/persistence/migrations"
	"github.com/alchemorsel/recipediff/internal/infrastructure/persistence/postgres"
	"github.com/alchemorsel/recipediff/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Database is an open database with its connection pool
type Database struct {
	DB     *gorm.DB
	SQL    *sql.DB
	Driver string
}

// Open connects to the database selected by cfg.Database.Driver and
// brings its schema up to date when auto migration is enabled
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Database, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		return openSQLite(cfg, log)
	case "postgres":
		return openPostgres(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func openSQLite(cfg *config.Config, log *zap.Logger) (*Database, error) {
	db, err := sqlite.SetupDatabase(cfg.Database.Path,
		gormModels.NewLogger(log, cfg.Database.LogLevel, cfg.Database.SlowQueryThreshold))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	log.Info("SQLite database ready", zap.String("path", cfg.Database.Path))
	return &Database{DB: db, SQL: sqlDB, Driver: "sqlite"}, nil
}

func openPostgres(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Database, error) {
	if cfg.Database.AutoMigrate {
		if err := Migrate(cfg, log); err != nil {
			return nil, err
		}
	}

	cm, err := postgres.NewConnectionManager(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &Database{DB: cm.GetDB(), SQL: cm.SQLDB(), Driver: "postgres"}, nil
}

// Migrate applies pending postgres migrations
func Migrate(cfg *config.Config, log *zap.Logger) error {
	m, err := migrations.Open(cfg.GetDSN(), cfg.Database.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()

	return m.Up()
}

// Ping checks the connection pool
func (d *Database) Ping(ctx context.Context) error {
	return d.SQL.PingContext(ctx)
}

// Close closes the connection pool
func (d *Database) Close() error {
	return d.SQL.Close()
}
