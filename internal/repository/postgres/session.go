package postgres

import (
	"context"
	"database/sql"
	"motolens/internal/models"
	"motolens/internal/repository"
	"time"

	"github.com/google/uuid"
)

type sessionRepository struct {
	repository.BaseRepository
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(db *sql.DB) repository.SessionRepository {
	return &sessionRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

const sessionColumns = `id, user_id, refresh_token_hash, user_agent, ip_address,
	       is_active, expires_at, last_used_at, created_at`

func scanSession(row interface{ Scan(...interface{}) error }) (*models.Session, error) {
	session := &models.Session{}
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.RefreshTokenHash,
		&session.UserAgent,
		&session.IPAddress,
		&session.IsActive,
		&session.ExpiresAt,
		&session.LastUsedAt,
		&session.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (
			id, user_id, refresh_token_hash, user_agent, ip_address,
			is_active, expires_at, last_used_at
		) VALUES (
			$1, $2, $3, $4, $5, true, $6, $7
		)
		RETURNING created_at`

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.IsActive = true
	if session.LastUsedAt.IsZero() {
		session.LastUsedAt = time.Now()
	}

	return r.DB().QueryRowContext(ctx, query,
		session.ID,
		session.UserID,
		session.RefreshTokenHash,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
		session.LastUsedAt,
	).Scan(&session.CreatedAt)
}

func (r *sessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(r.DB().QueryRowContext(ctx, query, id))
}

func (r *sessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE refresh_token_hash = $1`

	session, err := scanSession(r.DB().QueryRowContext(ctx, query, tokenHash))
	if err != nil {
		return nil, err
	}

	if !session.IsActive {
		return nil, repository.ErrSessionInactive
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, repository.ErrSessionExpired
	}

	return session, nil
}

func (r *sessionRepository) ListActiveByUserID(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND is_active = true AND expires_at > $2
		ORDER BY last_used_at DESC`

	rows, err := r.DB().QueryContext(ctx, query, userID, time.Now())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

func (r *sessionRepository) Touch(ctx context.Context, id uuid.UUID, lastUsedAt time.Time) error {
	query := `UPDATE sessions SET last_used_at = $1 WHERE id = $2`
	_, err := r.DB().ExecContext(ctx, query, lastUsedAt, id)
	return err
}

func (r *sessionRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE sessions SET is_active = false WHERE id = $1`
	result, err := r.DB().ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrSessionNotFound
	}
	return nil
}

func (r *sessionRepository) DeactivateAllForUser(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE sessions SET is_active = false WHERE user_id = $1 AND is_active = true`
	_, err := r.DB().ExecContext(ctx, query, userID)
	return err
}

func (r *sessionRepository) DeleteInactiveForUser(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM sessions WHERE user_id = $1 AND (is_active = false OR expires_at < $2)`
	_, err := r.DB().ExecContext(ctx, query, userID, time.Now())
	return err
}

func (r *sessionRepository) DeleteExpired(ctx context.Context) error {
	query := `DELETE FROM sessions WHERE is_active = false OR expires_at < $1`
	_, err := r.DB().ExecContext(ctx, query, time.Now())
	return err
}
