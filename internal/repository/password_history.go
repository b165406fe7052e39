package repository

import (
	"context"
	"motolens/internal/models"
	"time"

	"github.com/google/uuid"
)

// PasswordHistoryLimit is how many prior hashes are retained per user
const PasswordHistoryLimit = 5

// PasswordHistoryRepository defines the interface for password history
// operations. Hashes are salted, so reuse detection verifies the candidate
// plaintext against each retained hash rather than comparing hashes directly.
type PasswordHistoryRepository interface {
	Repository
	// Add appends a hash and trims the history to PasswordHistoryLimit entries.
	Add(ctx context.Context, userID uuid.UUID, passwordHash string) error
	// CheckReuse returns ErrPasswordReuse when the candidate plaintext matches
	// any retained hash.
	CheckReuse(ctx context.Context, userID uuid.UUID, candidate string) error
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]models.PasswordHistory, error)
	CleanupOld(ctx context.Context, olderThan time.Duration) error
}
