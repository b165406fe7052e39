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

type userRepository struct {
	repository.BaseRepository
	passwordHistory repository.PasswordHistoryRepository
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sql.DB, passwordHistory repository.PasswordHistoryRepository) repository.UserRepository {
	return &userRepository{
		BaseRepository:  repository.NewBaseRepository(db),
		passwordHistory: passwordHistory,
	}
}

const userColumns = `id, email, password_hash, first_name, last_name, role,
	       email_verified, failed_login_attempts, locked_until,
	       password_changed_at, last_login_at, deleted_at, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.EmailVerified,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.PasswordChangedAt,
		&user.LastLoginAt,
		&user.DeletedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = models.RoleMechanic
	}

	tx, err := r.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return repository.ErrEmailExists
	}
	if err != nil {
		return err
	}

	// Seed the history so the registration password counts as recent
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO password_history (id, user_id, password_hash)
		VALUES ($1, $2, $3)`,
		uuid.New(), user.ID, user.PasswordHash); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, role = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4 AND deleted_at IS NULL
		RETURNING updated_at`

	err := r.DB().QueryRowContext(ctx, query,
		user.FirstName,
		user.LastName,
		user.Role,
		user.ID,
	).Scan(&user.UpdatedAt)

	if err == sql.ErrNoRows {
		return repository.ErrUserNotFound
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 AND deleted_at IS NULL`, userColumns)
	return scanUser(r.DB().QueryRowContext(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	// Callers normalize the email; lower() here covers rows written before
	// normalization was enforced.
	query := fmt.Sprintf(`SELECT %s FROM users WHERE lower(email) = lower($1) AND deleted_at IS NULL`, userColumns)
	return scanUser(r.DB().QueryRowContext(ctx, query, email))
}

func (r *userRepository) List(ctx context.Context, filter repository.UserFilter) ([]models.User, error) {
	var conditions []string
	var params []interface{}
	paramCount := 1

	query := fmt.Sprintf(`SELECT %s FROM users`, userColumns)
	conditions = append(conditions, "deleted_at IS NULL")

	if filter.Search != nil {
		conditions = append(conditions, fmt.Sprintf("(email ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d)", paramCount, paramCount, paramCount))
		params = append(params, "%"+*filter.Search+"%")
		paramCount++
	}
	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", paramCount))
		params = append(params, *filter.Role)
		paramCount++
	}

	query += " WHERE " + strings.Join(conditions, " AND ")

	orderBy := "email"
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

	rows, err := r.DB().QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, newPassword, hashedPassword string) error {
	// Reuse check compares the candidate plaintext against each retained
	// salted hash; direct hash equality would never match.
	if err := r.passwordHistory.CheckReuse(ctx, id, newPassword); err != nil {
		return err
	}

	tx, err := r.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $1, password_changed_at = CURRENT_TIMESTAMP,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND deleted_at IS NULL`,
		hashedPassword, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrUserNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO password_history (id, user_id, password_hash)
		VALUES ($1, $2, $3)`,
		uuid.New(), id, hashedPassword); err != nil {
		return err
	}

	// Keep only the most recent entries
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM password_history
		WHERE user_id = $1
		AND id NOT IN (
			SELECT id FROM password_history
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		)`,
		id, repository.PasswordHistoryLimit); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, lastLoginAt time.Time) error {
	query := `
		UPDATE users
		SET last_login_at = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND deleted_at IS NULL`

	_, err := r.DB().ExecContext(ctx, query, lastLoginAt, id)
	return err
}

func (r *userRepository) RecordFailedLogin(ctx context.Context, id uuid.UUID) (repository.LockoutState, error) {
	// Single UPDATE so two concurrent failures both count; a read-then-write
	// from application memory could lose one and never trip the lockout.
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE
		        WHEN failed_login_attempts + 1 >= $2 THEN $3
		        ELSE locked_until
		    END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING failed_login_attempts, locked_until`

	lockedUntil := time.Now().Add(repository.LockoutDuration)

	var state repository.LockoutState
	err := r.DB().QueryRowContext(ctx, query, id, repository.MaxLoginAttempts, lockedUntil).
		Scan(&state.FailedAttempts, &state.LockedUntil)
	if err == sql.ErrNoRows {
		return state, repository.ErrUserNotFound
	}
	return state, err
}

func (r *userRepository) ResetFailedLogin(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0, locked_until = NULL,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND deleted_at IS NULL`

	_, err := r.DB().ExecContext(ctx, query, id)
	return err
}

func (r *userRepository) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET email_verified = true, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.DB().ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}
