package repository

import (
	"context"
	"motolens/internal/models"
	"time"

	"github.com/google/uuid"
)

// Lockout policy constants. These are policy, not protocol: five failures
// lock the account for thirty minutes.
const (
	MaxLoginAttempts = 5
	LockoutDuration  = 30 * time.Minute
)

// LockoutState describes the result of recording a failed login
type LockoutState struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// IsLocked reports whether the recorded failure tripped the lockout
func (s LockoutState) IsLocked() bool {
	return s.LockedUntil != nil
}

// RemainingAttempts returns how many more failures are allowed before lockout
func (s LockoutState) RemainingAttempts() int {
	remaining := MaxLoginAttempts - s.FailedAttempts
	if remaining < 0 {
		return 0
	}
	return remaining
}

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Repository
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter UserFilter) ([]models.User, error)
	// UpdatePassword rejects hashes matching the retained history with
	// ErrPasswordReuse, then swaps the hash and appends it to the history
	// in one transaction.
	UpdatePassword(ctx context.Context, id uuid.UUID, newPassword, hashedPassword string) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, lastLoginAt time.Time) error
	// RecordFailedLogin atomically increments the failure counter and sets
	// locked_until when the counter reaches MaxLoginAttempts. The increment
	// happens in a single UPDATE so concurrent failures never under-count.
	RecordFailedLogin(ctx context.Context, id uuid.UUID) (LockoutState, error)
	ResetFailedLogin(ctx context.Context, id uuid.UUID) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
}

// UserFilter defines the filter options for listing users
type UserFilter struct {
	Search    *string // Search by email or name
	Role      *string
	OrderBy   string // Field to order by
	OrderDesc bool   // Order descending
	Limit     *int   // Limit results
	Offset    *int   // Offset results
}
