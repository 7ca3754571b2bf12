package classroom

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hwsystem/hwsystem/internal/platform/httpx"
)

// MembershipStore looks up class memberships.
type MembershipStore interface {
	// GetMembership returns the membership for (classID, userID), or
	// ErrNotMember when no row exists.
	GetMembership(ctx context.Context, classID, userID int64) (Membership, error)
}

// PGStore implements MembershipStore using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PostgreSQL-backed MembershipStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// GetMembership fetches a membership row by (class, user).
func (s *PGStore) GetMembership(ctx context.Context, classID, userID int64) (Membership, error) {
	const query = `SELECT class_id, user_id, role FROM class_users WHERE class_id = $1 AND user_id = $2`

	var m Membership
	if err := s.pool.QueryRow(ctx, query, classID, userID).Scan(&m.ClassID, &m.UserID, &m.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Membership{}, ErrNotMember
		}
		return Membership{}, fmt.Errorf("%w: classroom: get membership: %v", httpx.ErrUnavailable, err)
	}
	return m, nil
}

var _ MembershipStore = (*PGStore)(nil)
