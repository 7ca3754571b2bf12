package classroom

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hwsystem/hwsystem/internal/platform/cache"
)

// DefaultTTL bounds how long a cached class role may be served. Shorter than
// the identity TTL: memberships churn more often than account roles and there
// is no invalidation hook from membership management.
const DefaultTTL = 10 * time.Minute

// Resolver maps (class, user) pairs to class roles, caching positive results.
// A non-member answer always comes from the store, so newly added members are
// visible immediately.
type Resolver struct {
	store   MembershipStore
	entries *cache.Keyed[Membership]
	logger  *slog.Logger
}

// NewResolver constructs a Resolver over backend with the given TTL.
func NewResolver(store MembershipStore, backend cache.ObjectCache, ttl time.Duration, logger *slog.Logger) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{
		store:   store,
		entries: cache.NewKeyed[Membership](backend, "classrole", ttl),
		logger:  logger,
	}
}

func membershipKey(classID, userID int64) string {
	return fmt.Sprintf("%d:%d", classID, userID)
}

// Resolve returns the user's role in the class, or ErrNotMember. Cache
// backend failures degrade to a store read.
func (r *Resolver) Resolve(ctx context.Context, classID, userID int64) (Role, error) {
	key := membershipKey(classID, userID)

	cached, found, err := r.entries.Get(ctx, key)
	if err != nil {
		r.logger.Warn("class role cache read",
			slog.Int64("class_id", classID), slog.Int64("user_id", userID), slog.Any("error", err))
	} else if found {
		return cached.Role, nil
	}

	membership, err := r.store.GetMembership(ctx, classID, userID)
	if err != nil {
		return "", err
	}

	if err := r.entries.Set(ctx, key, membership); err != nil {
		r.logger.Warn("class role cache write",
			slog.Int64("class_id", classID), slog.Int64("user_id", userID), slog.Any("error", err))
	}
	return membership.Role, nil
}

// Invalidate evicts the cached role for (class, user); called after a
// membership change.
func (r *Resolver) Invalidate(ctx context.Context, classID, userID int64) error {
	return r.entries.Delete(ctx, membershipKey(classID, userID))
}
