package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name string `json:"name"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, nil), mr
}

func TestCache_RoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	var got []entry
	assert.False(t, c.GetJSON(ctx, "catalog:makes", &got))

	c.SetJSON(ctx, "catalog:makes", []entry{{Name: "HP"}}, time.Minute)
	require.True(t, c.GetJSON(ctx, "catalog:makes", &got))
	assert.Equal(t, []entry{{Name: "HP"}}, got)

	mr.FastForward(2 * time.Minute)
	assert.False(t, c.GetJSON(ctx, "catalog:makes", &got))
}

func TestCache_InvalidatePrefix(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.SetJSON(ctx, "catalog:series:1", []entry{}, time.Minute)
	c.SetJSON(ctx, "catalog:series:2", []entry{}, time.Minute)
	c.SetJSON(ctx, "store:products", []entry{}, time.Minute)

	c.InvalidatePrefix(ctx, "catalog:")

	assert.False(t, mr.Exists("catalog:series:1"))
	assert.False(t, mr.Exists("catalog:series:2"))
	assert.True(t, mr.Exists("store:products"))
}

func TestCache_CorruptEntryIsDropped(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("bad", "{not json"))

	var got entry
	assert.False(t, c.GetJSON(context.Background(), "bad", &got))
	assert.False(t, mr.Exists("bad"))
}

func TestCache_NilClientIsAlwaysMiss(t *testing.T) {
	c := New(nil, nil)
	ctx := context.Background()

	c.SetJSON(ctx, "k", entry{Name: "x"}, time.Minute)
	var got entry
	assert.False(t, c.GetJSON(ctx, "k", &got))
	c.Invalidate(ctx, "k")
	c.InvalidatePrefix(ctx, "k")
}
