package repository

import (
	"context"
	"motolens/internal/models"
	"time"

	"github.com/google/uuid"
)

// VerificationTokenExpiration is how long an email verification token stays valid
const VerificationTokenExpiration = 24 * time.Hour

// EmailVerificationRepository defines the interface for email verification
// tokens. Same lifecycle as password resets: one outstanding token per user,
// hash-at-rest, row deleted on consumption.
type EmailVerificationRepository interface {
	Create(ctx context.Context, userID uuid.UUID) (rawToken string, verification *models.EmailVerification, err error)
	// Verify consumes the token and marks the owning user verified in one
	// transaction. Returns the user id so callers can log the event.
	Verify(ctx context.Context, rawToken string) (uuid.UUID, error)
	DeleteExpired(ctx context.Context) error
}
