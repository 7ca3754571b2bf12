package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type localEntry struct {
	value     string
	expiresAt time.Time
}

// LocalCache implements ObjectCache in process memory, for deployments without
// Redis and for tests. Entries are evicted lazily on read once expired; the
// LRU bound caps memory in between.
type LocalCache struct {
	entries *lru.Cache[string, localEntry]
	now     func() time.Time
}

// NewLocalCache constructs a LocalCache holding at most capacity entries.
func NewLocalCache(capacity int) (*LocalCache, error) {
	entries, err := lru.New[string, localEntry](capacity)
	if err != nil {
		return nil, err
	}
	return &LocalCache{entries: entries, now: time.Now}, nil
}

// Get fetches a value, treating expired entries as absent.
func (c *LocalCache) Get(_ context.Context, key string) (string, bool, error) {
	entry, found := c.entries.Get(key)
	if !found {
		return "", false, nil
	}
	if c.now().After(entry.expiresAt) {
		c.entries.Remove(key)
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set stores a value with the given TTL. Last writer wins on racing sets.
func (c *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.entries.Add(key, localEntry{value: value, expiresAt: c.now().Add(ttl)})
	return nil
}

// Delete removes a key.
func (c *LocalCache) Delete(_ context.Context, key string) error {
	c.entries.Remove(key)
	return nil
}

var _ ObjectCache = (*LocalCache)(nil)
