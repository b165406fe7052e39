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

type emailVerificationRepository struct {
	db *sql.DB
}

// NewEmailVerificationRepository creates a new PostgreSQL email verification repository
func NewEmailVerificationRepository(db *sql.DB) repository.EmailVerificationRepository {
	return &emailVerificationRepository{db: db}
}

func (r *emailVerificationRepository) Create(ctx context.Context, userID uuid.UUID) (string, *models.EmailVerification, error) {
	rawToken, err := auth.GenerateSecureToken()
	if err != nil {
		return "", nil, err
	}

	verification := &models.EmailVerification{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: auth.HashToken(rawToken),
		ExpiresAt: time.Now().Add(repository.VerificationTokenExpiration),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM email_verifications WHERE user_id = $1`, userID); err != nil {
		return "", nil, err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO email_verifications (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		verification.ID, verification.UserID, verification.TokenHash, verification.ExpiresAt,
	).Scan(&verification.CreatedAt)
	if err != nil {
		return "", nil, err
	}

	if err := tx.Commit(); err != nil {
		return "", nil, err
	}

	return rawToken, verification, nil
}

func (r *emailVerificationRepository) Verify(ctx context.Context, rawToken string) (uuid.UUID, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	var userID uuid.UUID
	var expiresAt time.Time
	err = tx.QueryRowContext(ctx, `
		DELETE FROM email_verifications
		WHERE token_hash = $1
		RETURNING user_id, expires_at`,
		auth.HashToken(rawToken),
	).Scan(&userID, &expiresAt)

	if err == sql.ErrNoRows {
		return uuid.Nil, repository.ErrVerifyTokenInvalid
	}
	if err != nil {
		return uuid.Nil, err
	}

	if time.Now().After(expiresAt) {
		// Commit so the stale row is gone either way
		if err := tx.Commit(); err != nil {
			return uuid.Nil, err
		}
		return uuid.Nil, repository.ErrVerifyTokenExpired
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users
		SET email_verified = true, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`,
		userID); err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, err
	}
	return userID, nil
}

func (r *emailVerificationRepository) DeleteExpired(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM email_verifications WHERE expires_at < $1`, time.Now())
	return err
}
