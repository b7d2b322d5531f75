// Package testutil provides utilities for testing
package testutil

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/johnrirwin/youthinvest/internal/database"
)

// TestDB wraps a test database connection
type TestDB struct {
	*database.DB
	t *testing.T
}

// testConfig builds the connection settings from environment variables or defaults
func testConfig() database.Config {
	cfg := database.DefaultConfig()
	cfg.Host = getEnvOrDefault("DB_HOST", "localhost")
	cfg.User = getEnvOrDefault("DB_USER", "test")
	cfg.Password = getEnvOrDefault("DB_PASSWORD", "test")
	cfg.Database = getEnvOrDefault("DB_NAME", "youthinvest_test")
	cfg.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")
	if p, err := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432")); err == nil {
		cfg.Port = p
	}
	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// NewTestDB creates a migrated test database connection.
// It skips the test if the database is not available.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	db, err := database.New(testConfig())
	if err != nil {
		t.Skipf("Skipping test: unable to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		t.Skipf("Skipping test: unable to migrate database: %v", err)
	}

	return &TestDB{DB: db, t: t}
}

// SQL returns the raw handle.
func (tdb *TestDB) SQL() *sql.DB {
	return tdb.DB.DB
}

// Close closes the test database connection
func (tdb *TestDB) Close() {
	if err := tdb.DB.Close(); err != nil {
		tdb.t.Errorf("Failed to close test database: %v", err)
	}
}

// Cleanup removes all test data from tables
func (tdb *TestDB) Cleanup(ctx context.Context) {
	tdb.t.Helper()

	if _, err := tdb.ExecContext(ctx, "DELETE FROM kv_entries"); err != nil {
		tdb.t.Logf("Warning: failed to cleanup table kv_entries: %v", err)
	}
}
