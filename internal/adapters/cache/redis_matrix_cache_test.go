package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"fleet-routing-service/internal/domain"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisMatrixCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewRedisMatrixCache(client, 10*time.Minute)
}

func TestRedisMatrixCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, c := newTestRedis(t)

	m := &domain.TravelMatrix{
		IDs:     []string{"DEPOT", "A"},
		Minutes: [][]int{{0, 12}, {14, 0}},
		Meters:  [][]int{{0, 9000}, {9800, 0}},
	}
	require.NoError(t, c.Put(ctx, "key1", m))

	got, ok, err := c.Get(ctx, "key1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, m, got)
}

func TestRedisMatrixCacheMiss(t *testing.T) {
	ctx := context.Background()
	_, c := newTestRedis(t)

	_, ok, err := c.Get(ctx, "absent")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisMatrixCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	mr, c := newTestRedis(t)

	require.NoError(t, c.Put(ctx, "k", &domain.TravelMatrix{IDs: []string{"X"}, Minutes: [][]int{{0}}, Meters: [][]int{{0}}}))

	mr.FastForward(11 * time.Minute)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok, "entry should have expired")
}
