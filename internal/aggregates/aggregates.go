// Package aggregates decorates a transaction.Aggregates with a Redis-backed
// cache so the scoring hot path does not hit the primary store for every
// lookup. Cache failures degrade to the inner store, never to an error.
package aggregates

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/sentinelai/sentinel/internal/metrics"
	"github.com/sentinelai/sentinel/internal/transaction"
)

// DefaultTTL bounds staleness of cached aggregates. Windows are long (24h
// and 7d) relative to this, so a slightly stale value barely moves a score.
const DefaultTTL = 30 * time.Second

// keyBucket quantizes the as-of instant so lookups within the same bucket
// share a cache entry.
const keyBucket = time.Minute

// Cache is the key-value surface the decorator needs. The second return of
// Get reports whether the key was present.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Cached wraps an Aggregates implementation with read-through caching.
type Cached struct {
	inner  transaction.Aggregates
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached builds the decorator. A nil cache is allowed and turns every
// lookup into a bypass, which keeps wiring simple when Redis is not
// configured.
func NewCached(inner transaction.Aggregates, cache Cache, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{
		inner:  inner,
		cache:  cache,
		ttl:    DefaultTTL,
		logger: logger.With("component", "aggregates_cache"),
	}
}

// WithTTL overrides the cache entry lifetime.
func (c *Cached) WithTTL(ttl time.Duration) *Cached {
	c.ttl = ttl
	return c
}

// CountByMerchant implements transaction.Aggregates.
func (c *Cached) CountByMerchant(ctx context.Context, merchant string, end time.Time, window time.Duration) (int, error) {
	key := cacheKey("mct", merchant, end, window)
	if v, ok := c.lookup(ctx, key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n, nil
		}
	}

	n, err := c.inner.CountByMerchant(ctx, merchant, end, window)
	if err != nil {
		return 0, err
	}
	c.store(ctx, key, strconv.Itoa(n))
	return n, nil
}

// AvgAmountByCategory implements transaction.Aggregates.
func (c *Cached) AvgAmountByCategory(ctx context.Context, category string, end time.Time, window time.Duration) (float64, error) {
	key := cacheKey("avg", category, end, window)
	if v, ok := c.lookup(ctx, key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
	}

	avg, err := c.inner.AvgAmountByCategory(ctx, category, end, window)
	if err != nil {
		return 0, err
	}
	c.store(ctx, key, strconv.FormatFloat(avg, 'g', -1, 64))
	return avg, nil
}

func (c *Cached) lookup(ctx context.Context, key string) (string, bool) {
	if c.cache == nil {
		metrics.AggregatesCacheTotal.WithLabelValues("bypass").Inc()
		return "", false
	}

	v, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		metrics.AggregatesCacheTotal.WithLabelValues("error").Inc()
		c.logger.Debug("cache get failed", "key", key, "error", err)
		return "", false
	}
	if !ok {
		metrics.AggregatesCacheTotal.WithLabelValues("miss").Inc()
		return "", false
	}
	metrics.AggregatesCacheTotal.WithLabelValues("hit").Inc()
	return v, true
}

func (c *Cached) store(ctx context.Context, key, value string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, value, c.ttl); err != nil {
		c.logger.Debug("cache set failed", "key", key, "error", err)
	}
}

func cacheKey(kind, subject string, end time.Time, window time.Duration) string {
	return fmt.Sprintf("agg:%s:%s:%d:%d",
		kind,
		strings.ToLower(strings.TrimSpace(subject)),
		int64(window/time.Second),
		end.Truncate(keyBucket).Unix(),
	)
}
