package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nycKey = "geo:reverse:40.7128,-74.0060"

func TestInProcessBackends(t *testing.T) {
	cfg := LocalConfig{MaxEntries: 2, TTL: 5 * time.Minute, CleanupInterval: 10 * time.Minute}
	backends := map[string]Cache{
		"lru":     NewLRU(cfg),
		"gocache": NewGoCache(cfg),
	}

	ctx := context.Background()
	for name, c := range backends {
		t.Run(name, func(t *testing.T) {
			defer c.Close()

			_, found, err := c.Get(ctx, nycKey)
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, c.Set(ctx, nycKey, `{"freeformAddress":"New York, NY"}`, time.Minute))
			v, found, err := c.Get(ctx, nycKey)
			require.NoError(t, err)
			require.True(t, found)
			assert.JSONEq(t, `{"freeformAddress":"New York, NY"}`, v)
		})
	}
}

func TestLRUShortTTL(t *testing.T) {
	c := NewLRU(LocalConfig{MaxEntries: 10, TTL: time.Hour})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Second))
	_, found, _ := c.Get(ctx, "k")
	assert.True(t, found)

	now = now.Add(2 * time.Second)
	_, found, _ = c.Get(ctx, "k")
	assert.False(t, found)
	assert.Zero(t, c.Len())
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU(LocalConfig{MaxEntries: 2, TTL: time.Hour})
	ctx := context.Background()

	_ = c.Set(ctx, "a", "1", 0)
	_ = c.Set(ctx, "b", "2", 0)
	_, _, _ = c.Get(ctx, "a")
	_ = c.Set(ctx, "c", "3", 0)

	for key, want := range map[string]bool{"a": true, "b": false, "c": true} {
		_, found, _ := c.Get(ctx, key)
		assert.Equal(t, want, found, key)
	}
}

func TestNewCache(t *testing.T) {
	c, err := NewCache(Config{Type: " LRU "})
	require.NoError(t, err)
	assert.IsType(t, &LRU{}, c)

	_, err = NewCache(Config{Type: "memcached"})
	assert.ErrorContains(t, err, "memcached")
}
