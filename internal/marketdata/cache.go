package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type cacheKey struct {
	symbol   string
	period   string
	interval string
}

type cacheEntry struct {
	series    BarSeries
	fetchedAt time.Time
}

// CachedProvider wraps a Provider with an in-memory TTL cache keyed by
// (symbol, period, interval). Entries are evicted by TTL expiry only;
// a hit returns the stored series unchanged.
type CachedProvider struct {
	inner Provider
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry

	now func() time.Time
}

// NewCachedProvider creates a TTL cache over inner
func NewCachedProvider(inner Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[cacheKey]cacheEntry),
		now:     time.Now,
	}
}

// GetHistory returns the cached series when fresh, otherwise fetches and
// stores. Failed fetches (empty series) are not cached so the next call
// retries upstream.
func (c *CachedProvider) GetHistory(ctx context.Context, symbol, period, interval string) BarSeries {
	key := cacheKey{symbol: symbol, period: period, interval: interval}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		log.Debug().
			Str("symbol", symbol).
			Str("period", period).
			Msg("History cache hit")
		return entry.series
	}

	series := c.inner.GetHistory(ctx, symbol, period, interval)
	if series.Empty() {
		return series
	}

	c.mu.Lock()
	// Re-check under the write lock so a concurrent fetch that completed
	// first is not overwritten with an older result.
	if existing, ok := c.entries[key]; !ok || c.now().Sub(existing.fetchedAt) >= c.ttl {
		c.entries[key] = cacheEntry{series: series, fetchedAt: c.now()}
	}
	c.mu.Unlock()

	return series
}

// GetCurrentPrice delegates to the inner provider; quotes are not cached
func (c *CachedProvider) GetCurrentPrice(ctx context.Context, symbol string) *float64 {
	return c.inner.GetCurrentPrice(ctx, symbol)
}
