package cache

import (
	"context"
	"fmt"
	"path"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fundbrave/search-service/internal/domain/providers"
)

// DefaultLRUSize bounds the in-process cache when Redis is unavailable
const DefaultLRUSize = 4096

type lruEntry struct {
	value     []byte
	expiresAt time.Time
}

// LRUAdapter implements CacheProvider in process. Entries carry their own
// expiry and are dropped lazily on read.
type LRUAdapter struct {
	cache *lru.Cache[string, lruEntry]
	now   func() time.Time
}

// NewLRUAdapter creates an in-memory cache holding at most size entries
func NewLRUAdapter(size int) (*LRUAdapter, error) {
	if size <= 0 {
		size = DefaultLRUSize
	}
	c, err := lru.New[string, lruEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &LRUAdapter{cache: c, now: time.Now}, nil
}

var _ providers.CacheProvider = (*LRUAdapter)(nil)

// Get retrieves a value from cache
func (a *LRUAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	entry, ok := a.cache.Get(key)
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && !a.now().Before(entry.expiresAt) {
		a.cache.Remove(key)
		return nil, providers.ErrCacheMiss
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Set stores a value; a ttl of zero never expires
func (a *LRUAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := lruEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = a.now().Add(ttl)
	}
	a.cache.Add(key, entry)
	return nil
}

// Delete removes a value from cache
func (a *LRUAdapter) Delete(ctx context.Context, key string) error {
	a.cache.Remove(key)
	return nil
}

// DeletePattern removes every key matching a Redis-style glob
func (a *LRUAdapter) DeletePattern(ctx context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid cache key pattern %q: %w", pattern, err)
	}
	for _, key := range a.cache.Keys() {
		if ok, _ := path.Match(pattern, key); ok {
			a.cache.Remove(key)
		}
	}
	return nil
}

// Len returns the number of entries, expired ones included
func (a *LRUAdapter) Len() int {
	return a.cache.Len()
}
