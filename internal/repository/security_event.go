package repository

import (
	"context"
	"motolens/internal/models"
	"time"

	"github.com/google/uuid"
)

// SecurityEventRepository defines the interface for the append-only security
// audit trail
type SecurityEventRepository interface {
	Repository
	Create(ctx context.Context, event *models.CreateSecurityEventRequest) error
	List(ctx context.Context, filter SecurityEventFilter) ([]models.SecurityEvent, error)
	GetByUserID(ctx context.Context, userID uuid.UUID, filter SecurityEventFilter) ([]models.SecurityEvent, error)
	CleanupOld(ctx context.Context, olderThan time.Duration) error
}

// SecurityEventFilter defines the filter options for listing security events
type SecurityEventFilter struct {
	UserID        *uuid.UUID
	EventTypes    []models.SecurityEventType
	IPAddress     *string
	CreatedBefore *time.Time
	CreatedAfter  *time.Time
	OrderBy       string
	OrderDesc     bool
	Limit         *int
	Offset        *int
}
