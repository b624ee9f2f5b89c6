// Package dbtest opens throwaway SQLite-backed stores for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tapx-earn-go/internal/database"
	"tapx-earn-go/internal/models"
)

// Config returns a database config pointing at a fresh file under t.TempDir().
func Config(t testing.TB) models.DatabaseConfig {
	t.Helper()
	return models.DatabaseConfig{
		Driver:          database.DriverSQLite,
		Path:            filepath.Join(t.TempDir(), "tapx.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     5 * time.Second,
		TxMaxRetries:    5,
	}
}

// New opens a store that is closed when the test ends.
func New(t testing.TB) *database.Service {
	t.Helper()
	svc, err := database.NewService(context.Background(), Config(t))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}
