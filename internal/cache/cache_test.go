package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyIsStable(t *testing.T) {
	assert.Equal(t, Key("https://a.example/rss"), Key("https://a.example/rss"))
	assert.NotEqual(t, Key("https://a.example/rss"), Key("https://b.example/rss"))
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0)
	defer c.Close()

	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(2 * time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	c.cleanup()
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCopiesValue(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0)
	defer c.Close()

	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'x'

	got, _, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), got)
}

func TestRedisRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedis(rdb, "dd:")
	defer c.Close()

	ctx := context.Background()
	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("<rss/>"), time.Minute))
	assert.True(t, mr.Exists("dd:k"))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("<rss/>"), got)

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDialRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := DialRedis(context.Background(), mr.Addr(), "")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	mr.Close()
	_, err = DialRedis(context.Background(), mr.Addr(), "")
	assert.Error(t, err)
}
