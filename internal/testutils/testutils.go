package testutils

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/docflow/apiserver/config"
	"github.com/docflow/apiserver/internal/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger returns a zap logger that writes through t.Log.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// SQLiteConfig returns a config pointing at a fresh database file under t.TempDir.
func SQLiteConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:        "test",
		ServerPort: 0,
		Log:        config.LogConfig{Level: "debug"},
		Database: config.DatabaseConfig{
			Driver: config.DriverSQLite,
			Path:   filepath.Join(t.TempDir(), "docs.db"),
		},
		Auth: config.AuthConfig{
			JWTSecret: "test-secret-with-enough-entropy-0123456789",
			TokenTTL:  time.Hour,
		},
		Storage: config.StorageConfig{Backend: config.BackendNone},
		MQ:      config.MQConfig{Backend: config.BackendNone, Channel: "documents.sent"},
		Metrics: config.MetricsConfig{Enabled: true},
	}
}

// MigratedDB migrates the database described by cfg and opens it.
// The connection is closed when the test ends.
func MigratedDB(t *testing.T, cfg config.Config) *db.DB {
	t.Helper()

	require.NoError(t, db.MigrateUp(cfg), "migrate test database")

	conn, err := db.Open(context.Background(), cfg)
	require.NoError(t, err, "open test database")
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// NewSQLite returns a migrated, empty SQLite database.
func NewSQLite(t *testing.T) *db.DB {
	t.Helper()
	return MigratedDB(t, SQLiteConfig(t))
}

// ContextWithTimeout returns a context bounded for a single test.
func ContextWithTimeout(t *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}
