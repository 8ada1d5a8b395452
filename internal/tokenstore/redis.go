package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces token keys so the store can share a Redis
// database with other consumers.
const keyPrefix = "cb:"

// RedisStore is a Store backed by Redis keys with native expiry.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis wraps an existing Redis client. A ttl of zero means DefaultTTL.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, payload any) (string, error) {
	data, err := marshal(payload)
	if err != nil {
		return "", err
	}

	token := newToken()
	if err := s.client.Set(ctx, keyPrefix+token, data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}
	return token, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, token string, out any) error {
	data, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}
	return json.Unmarshal(data, out)
}
