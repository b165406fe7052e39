package postgres

import (
	"context"
	"database/sql"
	"motolens/internal/models"
	"motolens/internal/repository"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type passwordHistoryRepository struct {
	repository.BaseRepository
}

// NewPasswordHistoryRepository creates a new PostgreSQL password history repository
func NewPasswordHistoryRepository(db *sql.DB) repository.PasswordHistoryRepository {
	return &passwordHistoryRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *passwordHistoryRepository) Add(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	tx, err := r.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO password_history (id, user_id, password_hash)
		VALUES ($1, $2, $3)`,
		uuid.New(), userID, passwordHash); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM password_history
		WHERE user_id = $1
		AND id NOT IN (
			SELECT id FROM password_history
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		)`,
		userID, repository.PasswordHistoryLimit); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *passwordHistoryRepository) CheckReuse(ctx context.Context, userID uuid.UUID, candidate string) error {
	query := `
		SELECT password_hash
		FROM password_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.DB().QueryContext(ctx, query, userID, repository.PasswordHistoryLimit)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var oldHash string
		if err := rows.Scan(&oldHash); err != nil {
			return err
		}

		if err := bcrypt.CompareHashAndPassword([]byte(oldHash), []byte(candidate)); err == nil {
			return repository.ErrPasswordReuse
		}
	}

	return rows.Err()
}

func (r *passwordHistoryRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]models.PasswordHistory, error) {
	query := `
		SELECT id, user_id, password_hash, created_at
		FROM password_history
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.DB().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var histories []models.PasswordHistory
	for rows.Next() {
		var history models.PasswordHistory
		if err := rows.Scan(
			&history.ID,
			&history.UserID,
			&history.PasswordHash,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		histories = append(histories, history)
	}
	return histories, rows.Err()
}

func (r *passwordHistoryRepository) CleanupOld(ctx context.Context, olderThan time.Duration) error {
	query := `DELETE FROM password_history WHERE created_at < $1`
	cutoff := time.Now().Add(-olderThan)
	_, err := r.DB().ExecContext(ctx, query, cutoff)
	return err
}
