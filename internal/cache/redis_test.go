package cache

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedis connects to SALAH_TEST_REDIS_ADDR or skips.
func newTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("SALAH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SALAH_TEST_REDIS_ADDR not set")
	}
	r, err := NewRedisStore(context.Background(), addr)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)
	key := "test-roundtrip"
	t.Cleanup(func() { r.rdb.Del(ctx, redisKeyPrefix+key) })

	set := sampleSet(10)
	require.NoError(t, r.Save(ctx, key, set))

	got, err := r.Load(ctx, key)
	require.NoError(t, err)
	assertSetEqual(t, set, got)
}

func TestRedisStore_MissAndCorrupt(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)
	key := "test-corrupt"
	t.Cleanup(func() { r.rdb.Del(ctx, redisKeyPrefix+key) })

	_, err := r.Load(ctx, key)
	assert.ErrorIs(t, err, ErrAbsent)

	require.NoError(t, r.rdb.Set(ctx, redisKeyPrefix+key, "garbage", 0).Err())
	_, err = r.Load(ctx, key)
	assert.ErrorIs(t, err, ErrAbsent)
}

func TestNewRedisStore_Errors(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "")
	assert.Error(t, err)

	_, err = NewRedisStore(context.Background(), "127.0.0.1:1")
	assert.Error(t, err)
}
