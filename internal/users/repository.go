package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hwsystem/hwsystem/internal/identity"
	"github.com/hwsystem/hwsystem/internal/platform/httpx"
)

// Repository defines persistence operations for user management.
type Repository interface {
	GetUser(ctx context.Context, id int64) (*User, error)
	UpdateRole(ctx context.Context, id int64, role identity.GlobalRole) error
	UpdateStatus(ctx context.Context, id int64, status identity.Status) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// GetUser fetches a user by ID.
func (r *PGRepository) GetUser(ctx context.Context, id int64) (*User, error) {
	const query = `
		SELECT id, username, email, role, status, created_at, updated_at
		FROM users WHERE id = $1`

	var (
		user      User
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.Role, &user.Status, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("%w: users: get: %v", httpx.ErrUnavailable, err)
	}
	user.CreatedAt = createdAt.Time
	user.UpdatedAt = updatedAt.Time
	return &user, nil
}

// UpdateRole changes a user's global role.
func (r *PGRepository) UpdateRole(ctx context.Context, id int64, role identity.GlobalRole) error {
	const query = `UPDATE users SET role = $2, updated_at = now() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, role)
	if err != nil {
		return fmt.Errorf("%w: users: update role: %v", httpx.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// UpdateStatus changes a user's account status.
func (r *PGRepository) UpdateStatus(ctx context.Context, id int64, status identity.Status) error {
	const query = `UPDATE users SET status = $2, updated_at = now() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("%w: users: update status: %v", httpx.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
