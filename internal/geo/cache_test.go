package geo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	cache := NewRedisCache(client, time.Minute)

	_, ok, err := cache.Get(ctx, "12 elm")
	require.NoError(t, err)
	assert.False(t, ok)

	want := []AddressCandidate{{DisplayName: "12 Elm St", Lat: 39.78, Lng: -89.65}}
	require.NoError(t, cache.Set(ctx, "12 elm", want))

	got, ok, err := cache.Get(ctx, "  12   ELM ")
	require.NoError(t, err)
	assert.True(t, ok, "lookup is case and whitespace insensitive")
	assert.Equal(t, want, got)

	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Get(ctx, "12 elm")
	require.NoError(t, err)
	assert.False(t, ok, "entries expire")
}
