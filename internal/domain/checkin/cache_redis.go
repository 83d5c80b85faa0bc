package checkin

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/frontdesk/frontdesk/internal/platform/scope"
)

const statusCacheTTL = 30 * time.Second

// redisStatusCache caches waiting-room snapshots per scope for a short TTL.
// Cache misses and transport errors both read as "not cached".
type redisStatusCache struct {
	rdb *redis.Client
}

// NewRedisStatusCache returns a StatusCache backed by Redis.
func NewRedisStatusCache(rdb *redis.Client) StatusCache {
	return &redisStatusCache{rdb: rdb}
}

func statusCacheKey(sc scope.Scope) string {
	switch {
	case sc.ClinicID != nil:
		return "frontdesk:waiting-room:clinic:" + sc.ClinicID.String()
	case sc.WorkspaceID != nil:
		return "frontdesk:waiting-room:workspace:" + sc.WorkspaceID.String()
	default:
		return "frontdesk:waiting-room:global"
	}
}

func (c *redisStatusCache) Get(ctx context.Context, sc scope.Scope) (*WaitingRoomStatus, bool) {
	data, err := c.rdb.Get(ctx, statusCacheKey(sc)).Bytes()
	if err != nil {
		return nil, false
	}
	var st WaitingRoomStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, false
	}
	return &st, true
}

func (c *redisStatusCache) Set(ctx context.Context, sc scope.Scope, st *WaitingRoomStatus) {
	data, err := json.Marshal(st)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, statusCacheKey(sc), data, statusCacheTTL)
}
