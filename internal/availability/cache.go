package availability

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nekogravitycat/plot-booking-backend/internal/events"
)

// Cache stores serialized read models.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// NewRedisClient connects to Redis and pings it. It returns nil when the
// server cannot be reached so callers can run uncached.
func NewRedisClient(ctx context.Context, addr, password string, db int) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, availability cache disabled", "addr", addr, "error", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	bs, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return bs, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Invalidator retires cached read models whenever a reservation changes.
// Retired entries are never read again and expire with their TTL.
type Invalidator struct {
	cache Cache
}

var _ events.Publisher = (*Invalidator)(nil)

func NewInvalidator(cache Cache) *Invalidator {
	return &Invalidator{cache: cache}
}

func (i *Invalidator) Publish(ctx context.Context, _ events.Event) error {
	return i.cache.Set(ctx, graveMapGenKey, []byte(uuid.NewString()), 0)
}
