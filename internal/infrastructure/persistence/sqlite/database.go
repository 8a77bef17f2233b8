// Package sqlite provides SQLite database setup and configuration
package sqlite

import (
	"fmt"

	gormModels "github.com/alchemorsel/recipediff/internal/infrastructure/persistence/gorm"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// SetupDatabase creates and configures the SQLite database and migrates
// its schema
func SetupDatabase(dbPath string, log logger.Interface) (*gorm.DB, error) {
	// Use in-memory database if no path provided
	if dbPath == "" {
		dbPath = MemoryPath
	}
	if log == nil {
		log = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         log,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// Every connection to :memory: would see its own empty database, and
	// SQLite serialises writers anyway
	sqlDB.SetMaxOpenConns(1)

	// Run auto-migration
	if err := db.AutoMigrate(gormModels.Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
