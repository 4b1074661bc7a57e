package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventCache remembers recently processed webhook event ids so duplicate
// deliveries can be dropped before they hit the database. It is a fast
// path only: correctness does not depend on it (the conditional status
// update and the donation session-id unique key both tolerate replays),
// so every failure mode fails open.
type EventCache struct {
	rdb *redis.Client
	ttl time.Duration
}

const eventKeyPrefix = "stripe:event:"

func NewEventCache(rdb *redis.Client, ttl time.Duration) *EventCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &EventCache{rdb: rdb, ttl: ttl}
}

// FirstDelivery reports whether this is the first time the event id has
// been seen. A nil cache, a nil client or a redis error all report true.
func (c *EventCache) FirstDelivery(ctx context.Context, eventID string) bool {
	if c == nil || c.rdb == nil || eventID == "" {
		return true
	}
	ok, err := c.rdb.SetNX(ctx, eventKeyPrefix+eventID, 1, c.ttl).Result()
	if err != nil {
		slog.Warn("event cache unavailable", "err", err)
		return true
	}
	return ok
}

// Forget drops a remembered event id. Callers that claimed an id via
// FirstDelivery but then failed to process the event must release it, so
// the provider's retry of the same event is not mistaken for a duplicate.
func (c *EventCache) Forget(ctx context.Context, eventID string) {
	if c == nil || c.rdb == nil || eventID == "" {
		return
	}
	if err := c.rdb.Del(ctx, eventKeyPrefix+eventID).Err(); err != nil {
		slog.Warn("event cache unavailable", "err", err)
	}
}
