package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(t *testing.T) (*RedisIncidentCache, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisIncidentCache(client, time.Minute), srv
}

func TestRedisIncidentCache_SetGet(t *testing.T) {
	cache, srv := newTestRedisCache(t)
	ctx := context.Background()
	inc := sampleIncident()

	got, err := cache.Get(ctx, inc.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "miss returns nil without error")

	version, err := cache.Version(ctx, inc.ID)
	require.NoError(t, err)
	assert.Zero(t, version)

	require.NoError(t, cache.Set(ctx, inc, version))

	got, err = cache.Get(ctx, inc.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, inc.ID, got.ID)
	assert.Equal(t, inc.Description, got.Description)
	assert.True(t, inc.SubmittedAt.Equal(got.SubmittedAt))
	assert.Equal(t, time.Minute, srv.TTL(cacheKey(inc.ID)))
}

func TestRedisIncidentCache_InvalidateBumpsVersion(t *testing.T) {
	cache, srv := newTestRedisCache(t)
	ctx := context.Background()
	inc := sampleIncident()

	require.NoError(t, cache.Set(ctx, inc, 0))
	require.NoError(t, cache.Invalidate(ctx, inc.ID))

	got, err := cache.Get(ctx, inc.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	version, err := cache.Version(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.Equal(t, versionTTL, srv.TTL(versionKey(inc.ID)))
}

func TestRedisIncidentCache_StaleSetIsIgnored(t *testing.T) {
	cache, _ := newTestRedisCache(t)
	ctx := context.Background()
	inc := sampleIncident()

	// Версия прочитана до изменения записи
	version, err := cache.Version(ctx, inc.ID)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, inc.ID))

	require.NoError(t, cache.Set(ctx, inc, version))

	got, err := cache.Get(ctx, inc.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "row read before a mutation must not be cached")

	// Со свежей версией запись проходит
	version, err = cache.Version(ctx, inc.ID)
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, inc, version))
	got, err = cache.Get(ctx, inc.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
