package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisKeyPrefix = "salah-times:schedule:"

// RedisStore keeps each schedule set as a single Redis string.
type RedisStore struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr string, opts ...Option) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address not set")
	}
	o := applyOptions(opts)

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s failed: %w", addr, err)
	}

	return &RedisStore{rdb: rdb, logger: o.logger}, nil
}

// Load reads the set for key.
func (r *RedisStore) Load(ctx context.Context, key string) (*ScheduleSet, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	data, err := r.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrAbsent
	}
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("redis load failed")
		return nil, ErrAbsent
	}

	set, err := decodeSet(data)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("ignoring corrupt redis entry")
		return nil, ErrAbsent
	}
	return set, nil
}

// Save replaces the set for key with a single SET.
func (r *RedisStore) Save(ctx context.Context, key string, set *ScheduleSet) error {
	if err := validateKey(key); err != nil {
		return err
	}
	data, err := encodeSet(set)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, redisKeyPrefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save schedule set for %s: %w", key, err)
	}
	return nil
}

// Close closes the client.
func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
