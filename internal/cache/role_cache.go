package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// RedisRoleCache stores resolved role tags per user.
type RedisRoleCache struct {
	client *redis.Client
	prefix string
}

func NewRedisRoleCache(client *redis.Client, prefix string) *RedisRoleCache {
	return &RedisRoleCache{client: client, prefix: prefix}
}

func (c *RedisRoleCache) key(userID string) string {
	return fmt.Sprintf("%s:roles:%s", c.prefix, userID)
}

func (c *RedisRoleCache) Get(ctx context.Context, userID string) ([]string, error) {
	data, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var roles []string
	if err := json.Unmarshal(data, &roles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached roles: %w", err)
	}
	return roles, nil
}

func (c *RedisRoleCache) Set(ctx context.Context, userID string, roles []string, ttl time.Duration) error {
	if roles == nil {
		roles = []string{}
	}
	data, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("failed to marshal roles: %w", err)
	}
	if err := c.client.Set(ctx, c.key(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *RedisRoleCache) Delete(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = c.key(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}
