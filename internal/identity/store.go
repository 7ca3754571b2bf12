package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hwsystem/hwsystem/internal/platform/httpx"
)

// Store fetches user profiles from the identity backend.
type Store interface {
	// GetPrincipal returns the profile for the given user, or
	// httpx.ErrNotFound when no such user exists.
	GetPrincipal(ctx context.Context, userID int64) (Principal, error)
}

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PostgreSQL-backed Store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// GetPrincipal fetches a user profile by ID.
func (s *PGStore) GetPrincipal(ctx context.Context, userID int64) (Principal, error) {
	const query = `SELECT id, role, status FROM users WHERE id = $1`

	var p Principal
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&p.ID, &p.Role, &p.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, httpx.ErrNotFound
		}
		return Principal{}, fmt.Errorf("%w: identity: get principal: %v", httpx.ErrUnavailable, err)
	}
	return p, nil
}

var _ Store = (*PGStore)(nil)
