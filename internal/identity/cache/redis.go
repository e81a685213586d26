// Package cache fronts the profile store with Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rekam/internal/identity"
	id "rekam/pkg/domain"
	"rekam/pkg/platform/sentinel"
)

const profileKeyPrefix = "rekam:profile:"

// RedisProfileCache stores JSON-encoded profiles with a fixed TTL.
type RedisProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProfileCache(client *redis.Client, ttl time.Duration) *RedisProfileCache {
	return &RedisProfileCache{client: client, ttl: ttl}
}

func profileKey(userID id.UserID) string {
	return profileKeyPrefix + userID.String()
}

func (c *RedisProfileCache) Get(ctx context.Context, userID id.UserID) (*identity.Profile, error) {
	raw, err := c.client.Get(ctx, profileKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cached profile: %w", err)
	}
	var p identity.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode cached profile: %w", err)
	}
	return &p, nil
}

func (c *RedisProfileCache) Set(ctx context.Context, profile *identity.Profile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return c.client.Set(ctx, profileKey(profile.UserID), raw, c.ttl).Err()
}

// Invalidate drops a cached profile, e.g. after a role change.
func (c *RedisProfileCache) Invalidate(ctx context.Context, userID id.UserID) error {
	return c.client.Del(ctx, profileKey(userID)).Err()
}
