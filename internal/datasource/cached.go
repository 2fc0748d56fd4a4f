package datasource

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/go-gota/gota/dataframe"
	cache "github.com/patrickmn/go-cache"
)

// CachedSource memoizes another Source per date range.
type CachedSource struct {
	inner Source
	cache *cache.Cache
	ttl   time.Duration

	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewCachedSource wraps inner with a TTL cache.
func NewCachedSource(inner Source, ttl time.Duration) *CachedSource {
	return &CachedSource{
		inner: inner,
		cache: cache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

// Name returns the wrapped source's name
func (c *CachedSource) Name() string {
	return c.inner.Name()
}

// Close closes the wrapped source when it holds resources.
func (c *CachedSource) Close() error {
	if closer, ok := c.inner.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Fetch returns the cached table for dr, fetching on a miss. Errors are not cached.
func (c *CachedSource) Fetch(ctx context.Context, dr DateRange) (dataframe.DataFrame, error) {
	key := dr.String()
	if v, found := c.cache.Get(key); found {
		if df, ok := v.(dataframe.DataFrame); ok {
			c.record(true)
			return df, nil
		}
	}
	c.record(false)

	df, err := c.inner.Fetch(ctx, dr)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	c.cache.Set(key, df, c.ttl)
	return df, nil
}

// Invalidate drops every cached table.
func (c *CachedSource) Invalidate() {
	c.cache.Flush()
}

// Stats returns cache statistics
func (c *CachedSource) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hitCount, c.missCount
}

func (c *CachedSource) record(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hitCount++
	} else {
		c.missCount++
	}
}
