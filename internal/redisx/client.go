package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	r := redis.NewClient(&redis.Options{Addr: addr})
	_ = r.WithTimeout(2 * time.Second)
	return r
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// Store is a thin JSON wrapper so callers don't marshal by hand.
type Store struct {
	Client *redis.Client
}

func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, key, b, ttl).Err()
}

func (s *Store) GetJSON(ctx context.Context, key string, dest any) error {
	b, err := s.Client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.Client.Del(ctx, keys...).Err()
}
