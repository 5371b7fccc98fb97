package listings

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spigell/job-assistant/internal/metrics"
	"github.com/spigell/job-assistant/internal/utils"
)

const DefaultCacheTTL = 60 * time.Second

type cacheEntry struct {
	items   []Listing
	expires time.Time
}

// Cache wraps a Provider and keeps successful answers for a short time.
// Entries are replaced whole, never merged. Failed searches are not cached.
type Cache struct {
	provider Provider
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

func NewCache(provider Provider, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Cache{
		provider: provider,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		entries:  make(map[string]cacheEntry),
	}
}

func (c *Cache) Search(ctx context.Context, q Query) ([]Listing, error) {
	key := CacheKey(q)

	if items, ok := c.lookup(key); ok {
		metrics.ProviderCacheTotal.WithLabelValues("hit").Inc()
		c.logger.Debug("listing cache hit", zap.String("key", key), zap.Int("items", len(items)))
		return items, nil
	}
	metrics.ProviderCacheTotal.WithLabelValues("miss").Inc()

	v, err, shared := c.group.Do(key, func() (any, error) {
		items, err := c.provider.Search(ctx, q)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = cacheEntry{items: items, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()

		return items, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		c.logger.Debug("listing search shared with concurrent caller", zap.String("key", key))
	}

	return clone(v.([]Listing)), nil
}

func (c *Cache) lookup(key string) ([]Listing, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if !c.now().Before(entry.expires) {
		c.mu.Lock()
		// Another caller may have refreshed the entry meanwhile.
		if current, ok := c.entries[key]; ok && !c.now().Before(current.expires) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return clone(entry.items), true
}

// CacheKey normalizes the query into the cache key: keywords, location and income type.
func CacheKey(q Query) string {
	return strings.Join([]string{
		strings.ToLower(utils.CollapseSpaces(q.Keywords)),
		strings.ToLower(utils.CollapseSpaces(q.Location)),
		strings.ToLower(strings.TrimSpace(q.IncomeType)),
	}, "|")
}

func clone(items []Listing) []Listing {
	out := make([]Listing, len(items))
	copy(out, items)
	return out
}
