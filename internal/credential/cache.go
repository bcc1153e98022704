package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/evanofslack/cf-ddns/internal/metrics"
)

// CachedStore is a read-through cache in front of another Store. Only found
// entries are cached, so a newly added hostname works on its next request.
// Lookup errors are never cached.
type CachedStore struct {
	inner   Store
	cache   *ristretto.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
}

func NewCached(inner Store, ttl time.Duration, metrics *metrics.Metrics) (*CachedStore, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create credential cache: %w", err)
	}
	return &CachedStore{inner: inner, cache: cache, ttl: ttl, metrics: metrics}, nil
}

func (c *CachedStore) Lookup(ctx context.Context, hostname string) (string, bool, error) {
	if v, ok := c.cache.Get(hostname); ok {
		c.metrics.IncCredentialCache(true)
		return v.(string), true, nil
	}
	c.metrics.IncCredentialCache(false)

	password, ok, err := c.inner.Lookup(ctx, hostname)
	if err != nil || !ok {
		return "", false, err
	}
	c.cache.SetWithTTL(hostname, password, 1, c.ttl)
	c.cache.Wait()
	return password, true, nil
}

func (c *CachedStore) Close() error {
	c.cache.Close()
	return c.inner.Close()
}
