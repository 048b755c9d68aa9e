package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces idempotency keys so a shared redis instance can serve
// other consumers without collisions.
const keyPrefix = "investlog:idem:"

// Store reserves idempotency keys with SET NX and a TTL, so duplicates
// resolve themselves once the window lapses.
type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func New(client redis.UniversalClient, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// TryReserve claims key for the TTL window. The first caller wins; everyone
// else holding the same key gets false until the window lapses.
func (s *Store) TryReserve(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+key, "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	return ok, nil
}
