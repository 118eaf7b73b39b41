package rates

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/clock"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/logging"
)

// ErrCacheMiss is returned by caches when no fresh table is stored.
var ErrCacheMiss = errors.New("rates cache miss")

type Cache interface {
	Get(ctx context.Context, base string) (map[string]decimal.Decimal, error)
	Set(ctx context.Context, base string, table map[string]decimal.Decimal, ttl time.Duration) error
}

type Source interface {
	Rates(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

// CachedProvider serves rate tables from Cache and refreshes them from Next.
// A broken cache never fails a lookup; it only costs a live fetch.
type CachedProvider struct {
	Next   Source
	Cache  Cache
	TTL    time.Duration
	Logger logging.Logger
}

func (p *CachedProvider) Rates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	base = strings.ToUpper(base)

	table, err := p.Cache.Get(ctx, base)
	if err == nil {
		return table, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		p.Logger.Error("rates cache read failed", map[string]any{
			"base":  base,
			"error": err,
		})
	}

	table, err = p.Next.Rates(ctx, base)
	if err != nil {
		return nil, err
	}

	if err := p.Cache.Set(ctx, base, table, p.TTL); err != nil {
		p.Logger.Error("rates cache write failed", map[string]any{
			"base":  base,
			"error": err,
		})
	}
	return table, nil
}

type memoryEntry struct {
	table     map[string]decimal.Decimal
	expiresAt time.Time
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	Clock clock.Clock

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryCache(c clock.Clock) *MemoryCache {
	return &MemoryCache{
		Clock:   c,
		entries: make(map[string]memoryEntry),
	}
}

func (c *MemoryCache) Get(_ context.Context, base string) (map[string]decimal.Decimal, error) {
	c.mu.RLock()
	e, ok := c.entries[base]
	c.mu.RUnlock()

	if !ok || !c.Clock.Now().Before(e.expiresAt) {
		return nil, ErrCacheMiss
	}
	return e.table, nil
}

func (c *MemoryCache) Set(_ context.Context, base string, table map[string]decimal.Decimal, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[base] = memoryEntry{table: table, expiresAt: c.Clock.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// RedisCache shares rate tables between gateway instances.
type RedisCache struct {
	Client *redis.Client
	Prefix string
}

func NewRedisCache(addr, password string, db int) *RedisCache {
	return &RedisCache{
		Client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		Prefix: "rates:",
	}
}

func (c *RedisCache) Get(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	raw, err := c.Client.Get(ctx, c.Prefix+base).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var table map[string]decimal.Decimal
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, err
	}
	return table, nil
}

func (c *RedisCache) Set(ctx context.Context, base string, table map[string]decimal.Decimal, ttl time.Duration) error {
	raw, err := json.Marshal(table)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, c.Prefix+base, raw, ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}
