// Package memory provides in-memory cache repository implementation
package memory

import (
	"context"
	"time"

	"github.com/alchemorsel/recipediff/internal/ports/outbound"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultTTL applies when Set is called without a TTL
const DefaultTTL = 5 * time.Minute

type cacheItem struct {
	value     []byte
	expiresAt time.Time
}

// CacheRepository implements an in-memory LRU cache repository. Entries
// expire after the per-call TTL, capped by the cache-wide maximum TTL.
type CacheRepository struct {
	lru *expirable.LRU[string, cacheItem]
	now func() time.Time
}

var _ outbound.CacheRepository = (*CacheRepository)(nil)

// NewCacheRepository creates a new in-memory cache holding at most size
// entries for at most maxTTL
func NewCacheRepository(size int, maxTTL time.Duration) *CacheRepository {
	if maxTTL <= 0 {
		maxTTL = DefaultTTL
	}
	return &CacheRepository{
		lru: expirable.NewLRU[string, cacheItem](size, nil, maxTTL),
		now: time.Now,
	}
}

// Get retrieves a value from cache
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	item, ok := r.lru.Get(key)
	if !ok {
		return nil, outbound.ErrCacheMiss
	}
	if r.now().After(item.expiresAt) {
		r.lru.Remove(key)
		return nil, outbound.ErrCacheMiss
	}
	return item.value, nil
}

// Set stores a value in cache with TTL
func (r *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r.lru.Add(key, cacheItem{
		value:     value,
		expiresAt: r.now().Add(ttl),
	})
	return nil
}

// Delete removes a key from cache
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	r.lru.Remove(key)
	return nil
}

// Ping always succeeds
func (r *CacheRepository) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of cached entries, expired ones included until
// they are evicted
func (r *CacheRepository) Len() int {
	return r.lru.Len()
}
