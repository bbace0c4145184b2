package recordings

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// updateKeyTTL keeps seen update ids around long enough to absorb the bot
// platform's redelivery window.
const updateKeyTTL = 24 * time.Hour

// UpdateCache deduplicates webhook deliveries by update_id. It is advisory:
// when Redis is down the caller falls through and lets the file-id unique
// constraint catch true duplicates.
type UpdateCache struct {
	rdb *redis.Client
}

// NewUpdateCache wraps a Redis client as an update_id dedup cache.
func NewUpdateCache(rdb *redis.Client) *UpdateCache {
	return &UpdateCache{rdb: rdb}
}

// FirstSeen reports whether this update_id has not been seen before, marking
// it seen as a side effect.
func (c *UpdateCache) FirstSeen(ctx context.Context, updateID int64) (bool, error) {
	key := fmt.Sprintf("tg:update:%d", updateID)
	first, err := c.rdb.SetNX(ctx, key, 1, updateKeyTTL).Result()
	if err != nil {
		return false, fmt.Errorf("update cache setnx: %w", err)
	}
	return first, nil
}

// Forget releases an update_id marked by FirstSeen. Called when ingest fails
// after the mark, so the bot platform's redelivery is processed instead of
// being answered as a duplicate of a recording that was never stored.
func (c *UpdateCache) Forget(ctx context.Context, updateID int64) error {
	key := fmt.Sprintf("tg:update:%d", updateID)
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("update cache del: %w", err)
	}
	return nil
}
