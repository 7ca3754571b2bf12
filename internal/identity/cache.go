package identity

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/hwsystem/hwsystem/internal/platform/cache"
	"github.com/hwsystem/hwsystem/internal/platform/httpx"
)

// DefaultTTL is how long a resolved principal may be served without
// re-reading the identity store.
const DefaultTTL = time.Hour

// Cache maps user IDs to resolved principals with a short TTL. Readers may
// observe a stale principal for up to the TTL after an external change;
// user-management operations call Invalidate to shorten that window.
type Cache struct {
	store   Store
	entries *cache.Keyed[Principal]
	logger  *slog.Logger
}

// NewCache constructs a Cache over backend with the given TTL.
func NewCache(store Store, backend cache.ObjectCache, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:   store,
		entries: cache.NewKeyed[Principal](backend, "user", ttl),
		logger:  logger,
	}
}

func cacheKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// Resolve returns the principal for userID, serving from cache when the
// entry is unexpired and falling back to the store otherwise. Two concurrent
// resolutions of an expired key may both hit the store and both write; last
// writer wins, both carry fresh data. Cache backend failures degrade to a
// store read; store failures surface as httpx.ErrUnavailable.
func (c *Cache) Resolve(ctx context.Context, userID int64) (Principal, error) {
	key := cacheKey(userID)

	cached, found, err := c.entries.Get(ctx, key)
	if err != nil {
		c.logger.Warn("identity cache read", slog.Int64("user_id", userID), slog.Any("error", err))
	} else if found {
		return cached, nil
	}

	principal, err := c.store.GetPrincipal(ctx, userID)
	if err != nil {
		return Principal{}, err
	}

	if err := c.entries.Set(ctx, key, principal); err != nil {
		c.logger.Warn("identity cache write", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	return principal, nil
}

// Invalidate evicts the cached principal so the next Resolve re-reads the
// store. Called by user-management operations after role or status changes.
func (c *Cache) Invalidate(ctx context.Context, userID int64) error {
	return c.entries.Delete(ctx, cacheKey(userID))
}

// CurrentRole returns the user's current global role, bypassing any token
// claim. Only active accounts have a usable role; anything else reports
// httpx.ErrNotFound so callers cannot distinguish absent from disabled.
func (c *Cache) CurrentRole(ctx context.Context, userID int64) (GlobalRole, error) {
	principal, err := c.Resolve(ctx, userID)
	if err != nil {
		return "", err
	}
	if !principal.Active() {
		return "", httpx.ErrNotFound
	}
	return principal.Role, nil
}

// IsNotFound reports whether err means the user does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, httpx.ErrNotFound)
}
