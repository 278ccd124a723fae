package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
)

func setupStatsCache(t *testing.T) (*StatsCache, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStatsCache(client, time.Minute), srv
}

func TestStatsCache_SetGet(t *testing.T) {
	c, srv := setupStatsCache(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, "ws1", "mem1", "")
	assert.False(t, ok)

	stats := model.MyCallsStats{TotalAssigned: 4, Queued: 3, Done: 1, TotalCalls: 2}
	c.Set(ctx, "ws1", "mem1", "", stats)
	c.Set(ctx, "ws1", "mem1", "list_1", model.MyCallsStats{TotalAssigned: 1})

	got, ok := c.Get(ctx, "ws1", "mem1", "")
	require.True(t, ok)
	assert.Equal(t, stats, *got)

	perList, ok := c.Get(ctx, "ws1", "mem1", "list_1")
	require.True(t, ok)
	assert.Equal(t, int64(1), perList.TotalAssigned)

	assert.True(t, srv.Exists("callcampaign:stats:ws1:mem1"))
	assert.Equal(t, time.Minute, srv.TTL("callcampaign:stats:ws1:mem1"))
}

func TestStatsCache_Expiry(t *testing.T) {
	c, srv := setupStatsCache(t)
	ctx := context.Background()

	c.Set(ctx, "ws1", "mem1", "", model.MyCallsStats{TotalAssigned: 1})
	srv.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "ws1", "mem1", "")
	assert.False(t, ok)
}

func TestStatsCache_Invalidate(t *testing.T) {
	c, _ := setupStatsCache(t)
	ctx := context.Background()

	c.Set(ctx, "ws1", "mem1", "", model.MyCallsStats{TotalAssigned: 1})
	c.Set(ctx, "ws1", "mem1", "list_1", model.MyCallsStats{TotalAssigned: 1})
	c.Set(ctx, "ws1", "mem2", "", model.MyCallsStats{TotalAssigned: 2})
	c.Set(ctx, "ws2", "mem1", "", model.MyCallsStats{TotalAssigned: 3})

	c.Invalidate(ctx, "ws1", "mem1")

	_, ok := c.Get(ctx, "ws1", "mem1", "")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "ws1", "mem1", "list_1")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "ws1", "mem2", "")
	assert.True(t, ok, "other members keep their entries")
	_, ok = c.Get(ctx, "ws2", "mem1", "")
	assert.True(t, ok, "other workspaces keep their entries")
}

func TestStatsCache_CorruptEntryIsMiss(t *testing.T) {
	c, srv := setupStatsCache(t)
	srv.HSet("callcampaign:stats:ws1:mem1", "_all", "{not json")

	_, ok := c.Get(context.Background(), "ws1", "mem1", "")
	assert.False(t, ok)
}

func TestStatsCache_RedisDownDegradesToMiss(t *testing.T) {
	c, srv := setupStatsCache(t)
	srv.Close()
	ctx := context.Background()

	c.Set(ctx, "ws1", "mem1", "", model.MyCallsStats{TotalAssigned: 1})
	_, ok := c.Get(ctx, "ws1", "mem1", "")
	assert.False(t, ok)
	c.Invalidate(ctx, "ws1", "mem1")
}

func TestConnect(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := Connect(context.Background(), srv.Addr())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = Connect(context.Background(), "")
	assert.Error(t, err)
}
