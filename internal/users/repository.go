package users

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines the data access contract for user accounts. Not-found
// is reported as (nil, nil).
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	Create(ctx context.Context, u *User) error
	UpdateProfile(ctx context.Context, id uuid.UUID, req *ProfileUpdateRequest) (bool, error)
	UpdateAvatar(ctx context.Context, id uuid.UUID, url string) (bool, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	query := `
		SELECT id, email, password_hash, first_name, last_name, phone,
		       profile_picture_url, email_verified, phone_verified, created_at, updated_at
		FROM users
		WHERE id = $1`
	err := r.db.GetContext(ctx, &u, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, phone,
		                   profile_picture_url, email_verified, phone_verified, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :first_name, :last_name, :phone,
		        :profile_picture_url, :email_verified, :phone_verified, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, u); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id uuid.UUID, req *ProfileUpdateRequest) (bool, error) {
	query := `
		UPDATE users
		SET first_name = COALESCE($2, first_name),
		    last_name  = COALESCE($3, last_name),
		    phone      = COALESCE($4, phone),
		    updated_at = $5
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, req.FirstName, req.LastName, req.Phone, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to update user profile: %w", err)
	}
	return rowsChanged(res), nil
}

func (r *PostgresRepository) UpdateAvatar(ctx context.Context, id uuid.UUID, url string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET profile_picture_url = $2, updated_at = $3 WHERE id = $1`,
		id, url, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to update avatar: %w", err)
	}
	return rowsChanged(res), nil
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, hash, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to update password: %w", err)
	}
	return rowsChanged(res), nil
}

// Delete removes the user row; dependent rows go with it via the schema's
// ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	return rowsChanged(res), nil
}

func rowsChanged(res sql.Result) bool {
	n, err := res.RowsAffected()
	return err == nil && n > 0
}
