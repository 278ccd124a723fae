package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/observer"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/logger"
)

const (
	keyPrefix = "callcampaign:stats"
	// allLists is the hash field of the stats across every campaign.
	allLists = "_all"

	DefaultTTL = 30 * time.Second
)

// StatsCache keeps my calls statistics in Redis. Each member owns one hash,
// keyed by call list, so invalidating a member is a single DEL. Redis
// failures degrade to cache misses.
type StatsCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewStatsCache creates a Redis backed stats cache.
func NewStatsCache(client redis.Cmdable, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &StatsCache{client: client, ttl: ttl}
}

// Connect opens a Redis client and checks it with PING.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     20,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func memberKey(workspaceID, memberID string) string {
	return keyPrefix + ":" + workspaceID + ":" + memberID
}

func listField(callListID string) string {
	if callListID == "" {
		return allLists
	}
	return callListID
}

// Get returns cached stats of a member.
func (c *StatsCache) Get(ctx context.Context, workspaceID, memberID, callListID string) (*model.MyCallsStats, bool) {
	raw, err := c.client.HGet(ctx, memberKey(workspaceID, memberID), listField(callListID)).Bytes()
	if errors.Is(err, redis.Nil) {
		observer.IncStatsCache("get", "miss")
		return nil, false
	}
	if err != nil {
		observer.IncStatsCache("get", "error")
		logger.FromContext(ctx).Warn("Stats cache read failed", zap.String("member_id", memberID), zap.Error(err))
		return nil, false
	}

	var stats model.MyCallsStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		observer.IncStatsCache("get", "error")
		logger.FromContext(ctx).Warn("Discarding undecodable stats cache entry", zap.String("member_id", memberID), zap.Error(err))
		return nil, false
	}
	observer.IncStatsCache("get", "hit")
	return &stats, true
}

// Set stores stats and refreshes the member's TTL.
func (c *StatsCache) Set(ctx context.Context, workspaceID, memberID, callListID string, stats model.MyCallsStats) {
	raw, err := json.Marshal(stats)
	if err != nil {
		observer.IncStatsCache("set", "error")
		return
	}
	key := memberKey(workspaceID, memberID)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, listField(callListID), raw)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		observer.IncStatsCache("set", "error")
		logger.FromContext(ctx).Warn("Stats cache write failed", zap.String("member_id", memberID), zap.Error(err))
		return
	}
	observer.IncStatsCache("set", "ok")
}

// Invalidate drops every cached entry of the given members.
func (c *StatsCache) Invalidate(ctx context.Context, workspaceID string, memberIDs ...string) {
	if len(memberIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(memberIDs))
	for _, m := range memberIDs {
		keys = append(keys, memberKey(workspaceID, m))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		observer.IncStatsCache("invalidate", "error")
		logger.FromContext(ctx).Warn("Stats cache invalidation failed", zap.Strings("member_ids", memberIDs), zap.Error(err))
		return
	}
	observer.IncStatsCache("invalidate", "ok")
}
