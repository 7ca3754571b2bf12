package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hwsystem/hwsystem/internal/identity"
	"github.com/hwsystem/hwsystem/internal/platform/httpx"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByLogin(ctx context.Context, usernameOrEmail string) (*User, error)
	CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error)
	TouchLastLogin(ctx context.Context, userID int64) error
	CreateSession(ctx context.Context, session Session) error
	DeleteSessionsForUser(ctx context.Context, userID int64) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a postgres unique-constraint
// violation, however deeply wrapped.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// FindByLogin fetches a user by username or email.
func (r *PGRepository) FindByLogin(ctx context.Context, usernameOrEmail string) (*User, error) {
	const query = `
		SELECT id, username, email, password_hash, role, status, created_at, updated_at
		FROM users
		WHERE username = $1 OR email = $1`

	var (
		user      User
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := r.pool.QueryRow(ctx, query, usernameOrEmail).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Role, &user.Status, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("%w: auth: find by login: %v", httpx.ErrUnavailable, err)
	}
	user.CreatedAt = createdAt.Time
	user.UpdatedAt = updatedAt.Time
	return &user, nil
}

// CreateUser inserts a new account with the default role and active status.
// A username or email collision reports httpx.ErrDuplicate.
func (r *PGRepository) CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error) {
	const query = `
		INSERT INTO users (username, email, password_hash, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING id, created_at, updated_at`

	user := User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         identity.RoleUser,
		Status:       identity.StatusActive,
	}
	var (
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := r.pool.QueryRow(ctx, query, username, email, passwordHash, user.Role, user.Status).
		Scan(&user.ID, &createdAt, &updatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, httpx.ErrDuplicate
		}
		return nil, fmt.Errorf("%w: auth: create user: %v", httpx.ErrUnavailable, err)
	}
	user.CreatedAt = createdAt.Time
	user.UpdatedAt = updatedAt.Time
	return &user, nil
}

// TouchLastLogin stamps the account's last login time.
func (r *PGRepository) TouchLastLogin(ctx context.Context, userID int64) error {
	const query = `UPDATE users SET last_login_at = now() WHERE id = $1`
	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("auth: touch last login: %w", err)
	}
	return nil
}

// CreateSession persists a login session record for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, session Session) error {
	const query = `
		INSERT INTO sessions (id, user_id, created_at, expires_at, ip, ua)
		VALUES ($1, $2, $3, $4, $5, $6)`

	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		pgtype.Timestamptz{Time: now, Valid: true},
		pgtype.Timestamptz{Time: session.ExpiresAt.UTC(), Valid: true},
		pgtype.Text{String: session.IP, Valid: session.IP != ""},
		pgtype.Text{String: session.UserAgent, Valid: session.UserAgent != ""},
	)
	if err != nil {
		return fmt.Errorf("auth: create session: %w", err)
	}
	return nil
}

// DeleteSessionsForUser removes every session record for the user, ending
// all of their audited logins.
func (r *PGRepository) DeleteSessionsForUser(ctx context.Context, userID int64) error {
	const query = `DELETE FROM sessions WHERE user_id = $1`
	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("auth: delete sessions for user: %w", err)
	}
	return nil
}

// DeleteExpiredSessions purges session records past their expiry and reports
// how many were removed.
func (r *PGRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at < now()`
	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("auth: delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
