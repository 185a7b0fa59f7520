package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventCache is a Redis fast path in front of the durable processed-event
// insert. It is advisory only: a cache miss or any Redis failure falls
// through to the database, which stays the single authority on duplicates.
// Keys are written only after the durable record exists, so a hit is never
// ahead of the database.
type EventCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewEventCache builds the cache. A nil client disables the fast path.
func NewEventCache(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *EventCache {
	return &EventCache{rdb: rdb, ttl: ttl, logger: logger}
}

func eventKey(orderID, eventID string) string {
	return "evt:" + orderID + ":" + eventID
}

// Seen reports whether the (order, event) pair is already recorded durably.
// False on any Redis failure: the caller falls through to the database.
func (c *EventCache) Seen(ctx context.Context, orderID, eventID string) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	n, err := c.rdb.Exists(ctx, eventKey(orderID, eventID)).Result()
	if err != nil {
		c.logger.Warn("dedup cache unavailable", slog.String("error", err.Error()))
		return false
	}
	return n > 0
}

// Mark remembers a pair whose durable record exists. Callers must invoke it
// only after the processed-event insert succeeded; a key without a backing
// row would turn provider retries into false duplicates.
func (c *EventCache) Mark(ctx context.Context, orderID, eventID string) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, eventKey(orderID, eventID), "1", c.ttl).Err(); err != nil {
		c.logger.Warn("dedup cache write failed", slog.String("error", err.Error()))
	}
}
