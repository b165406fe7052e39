package repository

import (
	"context"
	"motolens/internal/models"
	"time"

	"github.com/google/uuid"
)

// SessionRepository defines the interface for refresh-token session operations.
// Sessions are looked up by the SHA-256 hash of the refresh token, never by
// the raw token value.
type SessionRepository interface {
	Repository
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	ListActiveByUserID(ctx context.Context, userID uuid.UUID) ([]models.Session, error)
	Touch(ctx context.Context, id uuid.UUID, lastUsedAt time.Time) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	DeactivateAllForUser(ctx context.Context, userID uuid.UUID) error
	// DeleteInactiveForUser removes deactivated and expired rows for a user,
	// housekeeping performed on each fresh login.
	DeleteInactiveForUser(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context) error
}
