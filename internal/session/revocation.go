package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"aki/bff/internal/crypto"
)

const keyPrefix = "bff:revoked:"

// Store remembers logged-out tokens until they would have expired anyway.
type Store interface {
	Revoke(ctx context.Context, token string, until time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// New returns a Redis-backed store, or a no-op store when client is nil.
func New(client *redis.Client) Store {
	if client == nil {
		return NoopStore{}
	}
	return &RedisStore{client: client}
}

type RedisStore struct {
	client *redis.Client
}

func (s *RedisStore) Revoke(ctx context.Context, token string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, keyPrefix+crypto.HashToken(token), "1", ttl).Err()
}

func (s *RedisStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+crypto.HashToken(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type NoopStore struct{}

func (NoopStore) Revoke(context.Context, string, time.Time) error { return nil }

func (NoopStore) IsRevoked(context.Context, string) (bool, error) { return false, nil }
