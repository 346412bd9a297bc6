package geospatial

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/singleflight"
)

// CachedStore wraps a Store and keeps each dataset for a TTL, so concurrent
// requests read the same immutable snapshot instead of hitting the database.
// Cached slices are shared and must be treated as read-only.
type CachedStore struct {
	inner Store
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]*cacheEntry
	group   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	value     any
	createdAt time.Time
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// NewCachedStore creates a CachedStore. A non-positive ttl disables caching.
func NewCachedStore(inner Store, ttl time.Duration) *CachedStore {
	return &CachedStore{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]*cacheEntry),
	}
}

// Neighborhoods implements Store.
func (c *CachedStore) Neighborhoods(ctx context.Context) ([]Neighborhood, error) {
	return cached(ctx, c, DatasetNeighborhoods, c.inner.Neighborhoods)
}

// PriceRecords implements Store.
func (c *CachedStore) PriceRecords(ctx context.Context) ([]PriceRecord, error) {
	return cached(ctx, c, DatasetPrices, c.inner.PriceRecords)
}

// TransitStops implements Store.
func (c *CachedStore) TransitStops(ctx context.Context) ([]TransitStop, error) {
	return cached(ctx, c, DatasetTransitStops, c.inner.TransitStops)
}

// EducationalCenters implements Store.
func (c *CachedStore) EducationalCenters(ctx context.Context) ([]EducationalCenter, error) {
	return cached(ctx, c, DatasetEducationalCenters, c.inner.EducationalCenters)
}

// PlayAreas implements Store.
func (c *CachedStore) PlayAreas(ctx context.Context) ([]PlayArea, error) {
	return cached(ctx, c, DatasetPlayAreas, c.inner.PlayAreas)
}

// Invalidate drops one dataset, or every dataset when name is empty.
func (c *CachedStore) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == "" {
		c.entries = make(map[string]*cacheEntry)
		return
	}
	delete(c.entries, name)
}

// Stats returns cache performance statistics.
func (c *CachedStore) Stats() CacheStats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return CacheStats{Entries: entries, Hits: hits, Misses: misses, HitRate: hitRate}
}

func (c *CachedStore) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.createdAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (c *CachedStore) put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheEntry{value: value, createdAt: time.Now()}
}

// cached serves key from the cache or loads it once, collapsing concurrent
// misses into a single load. Errors are never cached.
func cached[T any](ctx context.Context, c *CachedStore, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	if c.ttl <= 0 {
		return load(ctx)
	}
	if v, ok := c.get(key); ok {
		c.hits.Add(1)
		return v.([]T), nil
	}
	c.misses.Add(1)

	// The shared load outlives any single caller's cancellation.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		items, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.put(key, items)
		return items, nil
	})
	select {
	case <-ctx.Done():
		return nil, eris.Wrapf(ctx.Err(), "geospatial: load %s", key)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]T), nil
	}
}
