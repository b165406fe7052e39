package repository

import (
	"context"
	"motolens/internal/models"
	"time"

	"github.com/google/uuid"
)

// ResetTokenExpiration is how long a password reset token stays valid
const ResetTokenExpiration = 1 * time.Hour

// PasswordResetRepository defines the interface for password reset tokens.
// Create returns the raw token exactly once; only its hash is persisted.
// At most one outstanding token exists per user: Create deletes prior rows,
// and Consume deletes the row outright so a token can never be replayed.
type PasswordResetRepository interface {
	Create(ctx context.Context, userID uuid.UUID) (rawToken string, reset *models.PasswordReset, err error)
	GetByToken(ctx context.Context, rawToken string) (*models.PasswordReset, error)
	Consume(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context) error
}
