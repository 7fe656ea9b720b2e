package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisCachedProvider wraps a Provider with a Redis-backed series cache.
// Useful when several engine instances share a data budget. Redis errors
// degrade to the inner provider; they never fail the read.
type RedisCachedProvider struct {
	inner Provider
	rdb   *redis.Client
	ttl   time.Duration
}

// NewRedisCachedProvider creates a Redis-backed cache over inner
func NewRedisCachedProvider(inner Provider, rdb *redis.Client, ttl time.Duration) *RedisCachedProvider {
	return &RedisCachedProvider{
		inner: inner,
		rdb:   rdb,
		ttl:   ttl,
	}
}

func barsKey(symbol, period, interval string) string {
	return fmt.Sprintf("equityfunk:bars:%s:%s:%s", symbol, period, interval)
}

// GetHistory checks Redis first, falling back to the inner provider and
// caching the result on success.
func (r *RedisCachedProvider) GetHistory(ctx context.Context, symbol, period, interval string) BarSeries {
	key := barsKey(symbol, period, interval)

	cached, err := r.rdb.Get(ctx, key).Result()
	if err == nil {
		var series BarSeries
		if err := json.Unmarshal([]byte(cached), &series); err == nil {
			log.Debug().
				Str("symbol", symbol).
				Str("cache_key", key).
				Msg("Redis cache hit for history")
			return series
		}
		log.Warn().Err(err).Str("cache_key", key).Msg("Failed to unmarshal cached series, fetching fresh")
	} else if err != redis.Nil {
		log.Warn().Err(err).Msg("Redis error during cache lookup")
	}

	series := r.inner.GetHistory(ctx, symbol, period, interval)
	if series.Empty() {
		return series
	}

	data, err := json.Marshal(series)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to marshal series for cache")
		return series
	}

	if err := r.rdb.Set(ctx, key, data, r.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("cache_key", key).Msg("Failed to cache series")
	} else {
		log.Debug().
			Str("cache_key", key).
			Dur("ttl", r.ttl).
			Msg("Cached series")
	}

	return series
}

// GetCurrentPrice delegates to the inner provider; quotes are not cached
func (r *RedisCachedProvider) GetCurrentPrice(ctx context.Context, symbol string) *float64 {
	return r.inner.GetCurrentPrice(ctx, symbol)
}

// Health checks Redis connectivity
func (r *RedisCachedProvider) Health(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unhealthy: %w", err)
	}
	return nil
}
