package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache is a read-through redis cache in front of a Directory. The TTL is
// passed in explicitly; callers own the cache instance.
type Cache struct {
	next   Directory
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewCache wraps a Directory with a redis read-through cache.
func NewCache(next Directory, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{next: next, client: client, ttl: ttl, logger: logger}
}

func cacheKey(orgID, productID uuid.UUID) string {
	return fmt.Sprintf("catalog:%s:%s", orgID, productID)
}

// Lookup serves from redis when possible, collapsing concurrent misses for the
// same product into a single directory query.
func (c *Cache) Lookup(ctx context.Context, orgID, productID uuid.UUID) (Product, error) {
	key := cacheKey(orgID, productID)

	if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var p Product
		if err := json.Unmarshal(data, &p); err == nil {
			return p, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("catalog cache read failed", slog.Any("error", err))
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		p, err := c.next.Lookup(ctx, orgID, productID)
		if err != nil {
			return Product{}, err
		}
		if data, err := json.Marshal(p); err == nil {
			if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
				c.logger.Warn("catalog cache write failed", slog.Any("error", err))
			}
		}
		return p, nil
	})
	if err != nil {
		return Product{}, err
	}
	return v.(Product), nil
}

// Invalidate drops the cached entry, used after product updates.
func (c *Cache) Invalidate(ctx context.Context, orgID, productID uuid.UUID) error {
	return c.client.Del(ctx, cacheKey(orgID, productID)).Err()
}

var _ Directory = (*Cache)(nil)
