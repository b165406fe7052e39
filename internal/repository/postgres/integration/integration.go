// Package integration provides utilities for postgres integration testing
package integration

import (
	"context"
	"motolens/internal/models"
	"motolens/internal/testutil"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TestContext wraps testutil.TestContext to provide postgres-specific test utilities
type TestContext struct {
	*testutil.TestContext
}

// NewTestContext creates a new test context for postgres integration tests
func NewTestContext(t *testing.T) *TestContext {
	return &TestContext{TestContext: testutil.NewTestContext(t)}
}

// CreateTestPasswordReset creates a password reset token and returns the raw
// token together with the stored row
func (tc *TestContext) CreateTestPasswordReset(userID uuid.UUID) (string, *models.PasswordReset) {
	tc.T.Helper()
	raw, reset, err := tc.ResetRepo.Create(context.Background(), userID)
	require.NoError(tc.T, err)
	return raw, reset
}

// CreateTestEmailVerification creates an email verification token and returns
// the raw token together with the stored row
func (tc *TestContext) CreateTestEmailVerification(userID uuid.UUID) (string, *models.EmailVerification) {
	tc.T.Helper()
	raw, verification, err := tc.VerifyRepo.Create(context.Background(), userID)
	require.NoError(tc.T, err)
	return raw, verification
}

// FailLogin records n failed login attempts for the user
func (tc *TestContext) FailLogin(userID uuid.UUID, n int) {
	tc.T.Helper()
	for i := 0; i < n; i++ {
		_, err := tc.UserRepo.RecordFailedLogin(context.Background(), userID)
		require.NoError(tc.T, err)
	}
}

// ExpireToken backdates a token row so it reads as expired
func (tc *TestContext) ExpireToken(table string, id uuid.UUID) {
	tc.T.Helper()
	query := "UPDATE " + table + " SET expires_at = NOW() - INTERVAL '1 hour' WHERE id = $1"
	_, err := tc.DB.ExecContext(context.Background(), query, id)
	require.NoError(tc.T, err)
}
