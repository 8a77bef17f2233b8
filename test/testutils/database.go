// Package testutils provides common testing utilities and infrastructure setup
package testutils

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alchemorsel/recipediff/internal/infrastructure/config"
	"github.com/alchemorsel/recipediff/internal/infrastructure/persistence"
	"github.com/alchemorsel/recipediff/internal/infrastructure/persistence/sqlite"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

// TestDatabase provides a test database instance with cleanup
type TestDatabase struct {
	Container testcontainers.Container
	Database  *persistence.Database
	Config    *config.Config
}

const (
	postgresImage    = "postgres:15-alpine"
	postgresDatabase = "recipediff_test"
	postgresUser     = "test_user"
	postgresPassword = "test_password"
)

// NewSQLiteDB opens a migrated in-memory SQLite database that is closed
// when the test ends
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := sqlite.SetupDatabase(sqlite.MemoryPath, nil)
	require.NoError(t, err, "Failed to set up sqlite database")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SetupTestDatabase starts a postgres container and opens it through
// the same path the application uses, migrations included
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        postgresImage,
				ExposedPorts: []string{"5432/tcp"},
				Env: map[string]string{
					"POSTGRES_DB":       postgresDatabase,
					"POSTGRES_USER":     postgresUser,
					"POSTGRES_PASSWORD": postgresPassword,
				},
				WaitingFor: wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60 * time.Second),
				Tmpfs: map[string]string{
					"/var/lib/postgresql/data": "rw,noexec,nosuid,size=256m",
				},
			},
			Started: true,
		})
	require.NoError(t, err, "Failed to start postgres container")

	td := &TestDatabase{Container: container}
	t.Cleanup(func() {
		td.Cleanup(t)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, nat.Port("5432/tcp"))
	require.NoError(t, err)

	appCfg := &config.Config{
		App: config.AppConfig{Name: "recipediff-test", Environment: "test"},
		Database: config.DatabaseConfig{
			Driver:          "postgres",
			Host:            host,
			Port:            port.Int(),
			Database:        postgresDatabase,
			Username:        postgresUser,
			Password:        postgresPassword,
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
			LogLevel:        "silent",
			AutoMigrate:     true,
		},
	}

	db, err := persistence.Open(ctx, appCfg, zaptest.NewLogger(t))
	require.NoError(t, err, "Failed to open test database")

	td.Database = db
	td.Config = appCfg
	return td
}

// TruncateAllTables removes all data from tables while preserving structure
func (td *TestDatabase) TruncateAllTables() error {
	if err := td.Database.DB.Exec("TRUNCATE TABLE recipe_revisions").Error; err != nil {
		return fmt.Errorf("failed to truncate recipe_revisions: %w", err)
	}
	return nil
}

// Cleanup closes the connection and terminates the container
func (td *TestDatabase) Cleanup(t *testing.T) {
	if td.Database != nil {
		if err := td.Database.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
	}
	if td.Container != nil {
		if err := td.Container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}
}
