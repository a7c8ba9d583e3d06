package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisValueField     = "value"
	redisCreatedAtField = "created_at"
	redisUpdatedAtField = "updated_at"
)

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore stores each record as a hash holding the JSON value and the
// server-managed timestamps.
func NewRedisStore(client *redis.Client, prefix string) KVStore {
	return &redisStore{client: client, prefix: prefix}
}

func (s *redisStore) key(key string) string {
	return s.prefix + key
}

func (s *redisStore) Get(ctx context.Context, key string, dest any) error {
	raw, err := s.client.HGet(ctx, s.key(key), redisValueField).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (s *redisStore) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	fullKey := s.key(key)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, fullKey, redisValueField, raw, redisUpdatedAtField, now)
		pipe.HSetNX(ctx, fullKey, redisCreatedAtField, now)
		return nil
	})
	return err
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *redisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
