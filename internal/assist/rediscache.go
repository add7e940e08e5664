package assist

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "trrhub/pkg/errors"
)

const redisKeyPrefix = "assist:suggestion:"

// RedisCache shares suggestion responses across replicas. Expiry is
// delegated to Redis TTLs, so no sweep loop is needed.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) (*RedisCache, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "redis client is required")
	}
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (Response, bool, error) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Response{}, false, nil
	}
	if err != nil {
		return Response{}, false, pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "read suggestion cache")
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		// Treat a corrupt entry as a miss; the next Put overwrites it.
		return Response{}, false, nil
	}
	return resp, true, nil
}

func (c *RedisCache) Put(ctx context.Context, key string, resp Response, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "encode suggestion response")
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, raw, ttl).Err(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "write suggestion cache")
	}
	return nil
}
