package masterdata

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NameSource resolves display names from the authoritative store.
type NameSource interface {
	GetCustomer(ctx context.Context, customerNo int64, userID string) (*Customer, error)
	GetStore(ctx context.Context, storeNo int64, userID string) (*Store, error)
}

// NameCache is a read-through cache for denormalized display names. Redis
// failures degrade to direct lookups, never to request failures.
type NameCache struct {
	source NameSource
	client *redis.Client
	ttl    time.Duration
}

// NewNameCache builds the cache. A nil client disables caching entirely.
func NewNameCache(source NameSource, client *redis.Client, ttl time.Duration) *NameCache {
	return &NameCache{source: source, client: client, ttl: ttl}
}

// CustomerName returns the customer's display name.
func (c *NameCache) CustomerName(ctx context.Context, customerNo int64, userID string) (string, error) {
	key := fmt.Sprintf("md:%s:customer:%d:name", userID, customerNo)
	if name, ok := c.cached(ctx, key); ok {
		return name, nil
	}
	cust, err := c.source.GetCustomer(ctx, customerNo, userID)
	if err != nil {
		return "", err
	}
	c.store(ctx, key, cust.Name)
	return cust.Name, nil
}

// StoreName returns the store's display name.
func (c *NameCache) StoreName(ctx context.Context, storeNo int64, userID string) (string, error) {
	key := fmt.Sprintf("md:%s:store:%d:name", userID, storeNo)
	if name, ok := c.cached(ctx, key); ok {
		return name, nil
	}
	st, err := c.source.GetStore(ctx, storeNo, userID)
	if err != nil {
		return "", err
	}
	c.store(ctx, key, st.Name)
	return st.Name, nil
}

func (c *NameCache) cached(ctx context.Context, key string) (string, bool) {
	if c.client == nil {
		return "", false
	}
	name, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return name, true
}

func (c *NameCache) store(ctx context.Context, key, name string) {
	if c.client == nil {
		return
	}
	_ = c.client.Set(ctx, key, name, c.ttl).Err()
}
