package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"motolens/internal/models"
	"motolens/internal/repository"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type securityEventRepository struct {
	repository.BaseRepository
}

// NewSecurityEventRepository creates a new PostgreSQL security event repository
func NewSecurityEventRepository(db *sql.DB) repository.SecurityEventRepository {
	return &securityEventRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *securityEventRepository) Create(ctx context.Context, event *models.CreateSecurityEventRequest) error {
	query := `
		INSERT INTO security_events (
			id, user_id, event_type, description, metadata,
			ip_address, user_agent
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)`

	_, err := r.DB().ExecContext(ctx, query,
		uuid.New(),
		event.UserID,
		event.EventType,
		event.Description,
		event.Metadata,
		event.IPAddress,
		event.UserAgent,
	)
	return err
}

func (r *securityEventRepository) buildListQuery(filter repository.SecurityEventFilter) (string, []interface{}) {
	var conditions []string
	var params []interface{}
	paramCount := 1

	query := `
		SELECT id, user_id, event_type, description, metadata,
		       ip_address, user_agent, created_at
		FROM security_events`

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", paramCount))
		params = append(params, filter.UserID)
		paramCount++
	}
	if len(filter.EventTypes) > 0 {
		types := make([]string, len(filter.EventTypes))
		for i, t := range filter.EventTypes {
			types[i] = string(t)
		}
		conditions = append(conditions, fmt.Sprintf("event_type = ANY($%d)", paramCount))
		params = append(params, pq.Array(types))
		paramCount++
	}
	if filter.IPAddress != nil {
		conditions = append(conditions, fmt.Sprintf("ip_address = $%d", paramCount))
		params = append(params, *filter.IPAddress)
		paramCount++
	}
	if filter.CreatedAfter != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", paramCount))
		params = append(params, *filter.CreatedAfter)
		paramCount++
	}
	if filter.CreatedBefore != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", paramCount))
		params = append(params, *filter.CreatedBefore)
		paramCount++
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	orderBy := "created_at"
	if filter.OrderBy != "" {
		orderBy = filter.OrderBy
	}
	query += " ORDER BY " + orderBy
	if filter.OrderDesc {
		query += " DESC"
	}

	if filter.Limit != nil {
		query += fmt.Sprintf(" LIMIT $%d", paramCount)
		params = append(params, *filter.Limit)
		paramCount++
	}
	if filter.Offset != nil {
		query += fmt.Sprintf(" OFFSET $%d", paramCount)
		params = append(params, *filter.Offset)
	}

	return query, params
}

func (r *securityEventRepository) List(ctx context.Context, filter repository.SecurityEventFilter) ([]models.SecurityEvent, error) {
	query, params := r.buildListQuery(filter)

	rows, err := r.DB().QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.SecurityEvent
	for rows.Next() {
		var event models.SecurityEvent
		if err := rows.Scan(
			&event.ID,
			&event.UserID,
			&event.EventType,
			&event.Description,
			&event.Metadata,
			&event.IPAddress,
			&event.UserAgent,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *securityEventRepository) GetByUserID(ctx context.Context, userID uuid.UUID, filter repository.SecurityEventFilter) ([]models.SecurityEvent, error) {
	filter.UserID = &userID
	return r.List(ctx, filter)
}

func (r *securityEventRepository) CleanupOld(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	_, err := r.DB().ExecContext(ctx, `DELETE FROM security_events WHERE created_at < $1`, cutoff)
	return err
}
