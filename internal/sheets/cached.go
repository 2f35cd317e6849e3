package sheets

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"salesdash/internal/cache"
	"salesdash/internal/core"
)

// fetchTimeout bounds a shared upstream fetch, which outlives the request
// that started it.
const fetchTimeout = 2 * time.Minute

// CachedReader memoizes a RecordReader's table for a fixed time-to-live,
// keyed by the source identifier. Concurrent misses share one upstream fetch.
// Cached tables are shared between callers and must not be modified.
type CachedReader struct {
	next  RecordReader
	ttl   time.Duration
	cache *cache.LRUCache[core.Table]
	group singleflight.Group
	// generation is bumped by Invalidate; fetches started before the bump
	// do not populate the cache.
	generation atomic.Uint64
}

var (
	_ RecordReader = (*CachedReader)(nil)
	_ Invalidator  = (*CachedReader)(nil)
)

// NewCachedReader wraps next. A non-positive ttl disables caching.
func NewCachedReader(next RecordReader, ttl time.Duration) *CachedReader {
	return &CachedReader{
		next:  next,
		ttl:   ttl,
		cache: cache.NewLRUCache[core.Table](8, ttl),
	}
}

// SourceID returns the wrapped source identifier.
func (c *CachedReader) SourceID() string {
	return c.next.SourceID()
}

// ReadTable returns the cached table when fresh, otherwise fetches it.
func (c *CachedReader) ReadTable(ctx context.Context) (core.Table, error) {
	key := c.next.SourceID()
	if c.ttl <= 0 {
		return c.next.ReadTable(ctx)
	}
	if t, ok := c.cache.Get(key); ok {
		slog.DebugContext(ctx, "Table cache hit", "source", key, "rows", t.Len())
		return t, nil
	}

	gen := c.generation.Load()
	ch := c.group.DoChan(key, func() (any, error) {
		// Shared fetches ignore the starting caller's cancellation.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		t, err := c.next.ReadTable(fetchCtx)
		if err != nil {
			return core.Table{}, err
		}
		if c.generation.Load() == gen {
			c.cache.Set(key, t)
		}
		return t, nil
	})

	select {
	case <-ctx.Done():
		return core.Table{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return core.Table{}, res.Err
		}
		t := res.Val.(core.Table)
		slog.DebugContext(ctx, "Table fetched", "source", key, "rows", t.Len(), "shared", res.Shared)
		return t, nil
	}
}

// Invalidate drops the cached table so the next read refetches. A fetch in
// flight at the time of the call is not cached.
func (c *CachedReader) Invalidate() {
	key := c.next.SourceID()
	c.generation.Add(1)
	c.group.Forget(key)
	c.cache.Delete(key)
}

// CleanExpired lets a cache.Manager evict stale entries.
func (c *CachedReader) CleanExpired() int {
	return c.cache.CleanExpired()
}
