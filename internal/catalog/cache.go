package catalog

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/angelmondragon/catalogo-presupuesto/internal/companies"
	"github.com/angelmondragon/catalogo-presupuesto/internal/products"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/logger"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/redis"
)

// DefaultTTL is how long a resolved catalog is served before it is re-fetched.
const DefaultTTL = time.Hour

// Data is the unit cached per company.
type Data struct {
	Company  companies.Company  `json:"company"`
	Products []products.Product `json:"products"`
}

// Cache stores resolved catalogs by company slug. Put ignores catalogs without products.
type Cache interface {
	Get(ctx context.Context, companySlug string) (*Data, bool)
	Put(ctx context.Context, companySlug string, data *Data)
	Invalidate(ctx context.Context, companySlug string)
}

// Clock returns the current time; tests replace it to move TTLs.
type Clock func() time.Time

type memoryEntry struct {
	data      *Data
	fetchedAt time.Time
}

// MemoryCache is a process-wide TTL map. Entries are replaced whole, never mutated.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     Clock
}

func NewMemoryCache(ttl time.Duration, now Clock) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{entries: map[string]memoryEntry{}, ttl: ttl, now: now}
}

func (c *MemoryCache) Get(_ context.Context, companySlug string) (*Data, bool) {
	c.mu.RLock()
	entry, ok := c.entries[companySlug]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.fetchedAt) >= c.ttl {
		return nil, false
	}
	return entry.data, true
}

func (c *MemoryCache) Put(_ context.Context, companySlug string, data *Data) {
	if data == nil || len(data.Products) == 0 {
		return
	}
	c.mu.Lock()
	c.entries[companySlug] = memoryEntry{data: data, fetchedAt: c.now()}
	c.mu.Unlock()
}

func (c *MemoryCache) Invalidate(_ context.Context, companySlug string) {
	c.mu.Lock()
	delete(c.entries, companySlug)
	c.mu.Unlock()
}

// kv is the part of the redis client the shared cache uses.
type kv interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CatalogKey(companySlug string) string
}

// RedisCache shares resolved catalogs across instances. Redis enforces the TTL; backend
// failures are logged and read as a miss.
type RedisCache struct {
	client kv
	ttl    time.Duration
	logg   *logger.Logger
}

func NewRedisCache(client kv, ttl time.Duration, logg *logger.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &RedisCache{client: client, ttl: ttl, logg: logg}
}

func (c *RedisCache) Get(ctx context.Context, companySlug string) (*Data, bool) {
	raw, err := c.client.Get(ctx, c.client.CatalogKey(companySlug))
	if err != nil {
		if !redis.IsNil(err) {
			c.logg.WarnErr(ctx, "catalog cache read failed", err)
		}
		return nil, false
	}
	var data Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		c.logg.WarnErr(ctx, "catalog cache entry unreadable", err)
		return nil, false
	}
	if len(data.Products) == 0 {
		return nil, false
	}
	return &data, true
}

func (c *RedisCache) Put(ctx context.Context, companySlug string, data *Data) {
	if data == nil || len(data.Products) == 0 {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		c.logg.WarnErr(ctx, "catalog cache encode failed", err)
		return
	}
	if err := c.client.Set(ctx, c.client.CatalogKey(companySlug), payload, c.ttl); err != nil {
		c.logg.WarnErr(ctx, "catalog cache write failed", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, companySlug string) {
	if err := c.client.Del(ctx, c.client.CatalogKey(companySlug)); err != nil {
		c.logg.WarnErr(ctx, "catalog cache invalidate failed", err)
	}
}
