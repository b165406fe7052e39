// Package db prepares a clean, fully migrated PostgreSQL database for tests
package db

import (
	"database/sql"
	"fmt"
	"motolens/internal/config"
	"motolens/internal/database"
	"testing"

	"github.com/stretchr/testify/require"
)

// ResetTestDB wipes the public schema so migrations start from a blank slate
func ResetTestDB(db *sql.DB) error {
	// lib/pq sends multi-statement strings in one round trip as long as
	// there are no bind parameters
	if _, err := db.Exec(`DROP SCHEMA public CASCADE; CREATE SCHEMA public`); err != nil {
		return fmt.Errorf("failed to reset schema: %w", err)
	}
	return nil
}

// SetupTestDB connects to the configured test database, wipes it and runs
// the full migration set, the same path the application takes at startup
func SetupTestDB(t *testing.T, cfg *config.DatabaseConfig) *sql.DB {
	t.Helper()

	conn, err := database.Connect(*cfg)
	require.NoError(t, err, "Failed to connect to test database")

	require.NoError(t, ResetTestDB(conn), "Failed to reset test database")

	var tableCount int
	err = conn.QueryRow(`SELECT COUNT(*) FROM pg_tables WHERE schemaname = 'public'`).Scan(&tableCount)
	require.NoError(t, err, "Failed to count tables")
	require.Equal(t, 0, tableCount, "Database should be empty before running migrations")

	require.NoError(t, database.RunMigrations(*cfg), "Failed to run migrations")

	return conn
}
