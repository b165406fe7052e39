package postgres

import (
	"context"
	"database/sql"
	"motolens/internal/auth"
	"motolens/internal/models"
	"motolens/internal/repository"
	"time"

	"github.com/google/uuid"
)

type passwordResetRepository struct {
	db *sql.DB
}

// NewPasswordResetRepository creates a new PostgreSQL password reset repository
func NewPasswordResetRepository(db *sql.DB) repository.PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

func (r *passwordResetRepository) Create(ctx context.Context, userID uuid.UUID) (string, *models.PasswordReset, error) {
	rawToken, err := auth.GenerateSecureToken()
	if err != nil {
		return "", nil, err
	}

	reset := &models.PasswordReset{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: auth.HashToken(rawToken),
		ExpiresAt: time.Now().Add(repository.ResetTokenExpiration),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", nil, err
	}
	defer tx.Rollback()

	// At most one outstanding token per user
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM password_resets WHERE user_id = $1`, userID); err != nil {
		return "", nil, err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO password_resets (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		reset.ID, reset.UserID, reset.TokenHash, reset.ExpiresAt,
	).Scan(&reset.CreatedAt)
	if err != nil {
		return "", nil, err
	}

	if err := tx.Commit(); err != nil {
		return "", nil, err
	}

	return rawToken, reset, nil
}

func (r *passwordResetRepository) GetByToken(ctx context.Context, rawToken string) (*models.PasswordReset, error) {
	reset := &models.PasswordReset{}
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM password_resets
		WHERE token_hash = $1`

	err := r.db.QueryRowContext(ctx, query, auth.HashToken(rawToken)).Scan(
		&reset.ID,
		&reset.UserID,
		&reset.TokenHash,
		&reset.ExpiresAt,
		&reset.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrResetTokenInvalid
	}
	if err != nil {
		return nil, err
	}

	if time.Now().After(reset.ExpiresAt) {
		return nil, repository.ErrResetTokenExpired
	}

	return reset, nil
}

func (r *passwordResetRepository) Consume(ctx context.Context, id uuid.UUID) error {
	// The row is deleted, not flagged, so a consumed token can never match
	// a second lookup.
	result, err := r.db.ExecContext(ctx, `DELETE FROM password_resets WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrResetTokenInvalid
	}
	return nil
}

func (r *passwordResetRepository) DeleteExpired(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM password_resets WHERE expires_at < $1`, time.Now())
	return err
}
