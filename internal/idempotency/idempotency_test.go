package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Store) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, New(client, time.Hour)
}

func TestClaim_OncePerJob(t *testing.T) {
	_, s := setupTestRedis(t)
	ctx := context.Background()

	ok, err := s.Claim(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Claim(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Claim(ctx, "job-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClaim_ExpiresAfterTTL(t *testing.T) {
	mr, s := setupTestRedis(t)
	ctx := context.Background()

	ok, err := s.Claim(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists(keyPrefix+"job-1"))

	mr.FastForward(2 * time.Hour)

	ok, err = s.Claim(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRelease_AllowsRetry(t *testing.T) {
	_, s := setupTestRedis(t)
	ctx := context.Background()

	_, err := s.Claim(ctx, "job-1")
	require.NoError(t, err)
	require.NoError(t, s.Release(ctx, "job-1"))

	ok, err := s.Claim(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClaim_RedisDown(t *testing.T) {
	mr, s := setupTestRedis(t)
	mr.Close()

	_, err := s.Claim(context.Background(), "job-1")
	assert.Error(t, err)
}
