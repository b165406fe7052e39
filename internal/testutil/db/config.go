package db

import (
	"motolens/internal/config"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
)

// LoadTestConfig loads .env.test from the repository root and builds the
// config the test harness runs with. The root is located relative to this
// source file, so tests pass no matter which package directory invokes them.
func LoadTestConfig(t *testing.T) *config.Config {
	t.Helper()

	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "Failed to get current file path")

	// This file sits three directories below the repository root
	projectRoot, err := filepath.Abs(filepath.Join(filepath.Dir(filename), "..", "..", ".."))
	require.NoError(t, err, "Failed to get absolute project root path")

	require.NoError(t, godotenv.Load(filepath.Join(projectRoot, ".env.test")), "Failed to load .env.test file")

	cfg := &config.Config{}
	require.NoError(t, cfg.LoadFromEnv(), "Failed to load config")

	// The migration runner needs an absolute path regardless of the
	// package directory go test runs from
	cfg.Database.MigrationsPath = filepath.Join(projectRoot, "migrations")

	return cfg
}
