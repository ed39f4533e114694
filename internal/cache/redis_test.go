package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockdates/internal/models"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	entry := Entry{
		Payload:   []models.BlockedDate{{Date: "2026-03-15", Reason: models.ReasonManual}},
		Tier:      models.TierWarm,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Version:   4,
	}
	require.NoError(t, store.Set(ctx, "k1", entry, time.Minute))

	got, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entry.Payload, got.Payload)
	assert.Equal(t, entry.Tier, got.Tier)
	assert.Equal(t, entry.Version, got.Version)
	assert.True(t, entry.CreatedAt.Equal(got.CreatedAt))
}

func TestRedisStore_MissingKey(t *testing.T) {
	store, _ := newRedisStore(t)

	_, found, err := store.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", Entry{Tier: models.TierHot}, time.Minute))

	mr.FastForward(2 * time.Minute)

	_, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStore_Delete(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", Entry{Tier: models.TierHot}, time.Minute))
	require.NoError(t, store.Delete(ctx, "k1"))

	_, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStore_BackendError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client)
	mr.Close()

	_, _, err := store.Get(context.Background(), "k1")
	assert.ErrorIs(t, err, models.ErrCacheBackend)

	err = store.Set(context.Background(), "k1", Entry{}, time.Minute)
	assert.ErrorIs(t, err, models.ErrCacheBackend)
}
