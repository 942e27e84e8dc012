package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisReplayCache remembers recently processed gateway event ids so that
// byte-identical redeliveries are dropped before touching the store. The
// cache is an optimization only; the conditional confirm in the store is
// what guarantees exactly-once semantics.
type RedisReplayCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisReplayCache creates a replay cache with the given key prefix and
// retention window.
func NewRedisReplayCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisReplayCache {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "settlement:webhook_events"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	if ttl <= 0 {
		ttl = time.Hour
	}

	return &RedisReplayCache{client: client, prefix: trimmedPrefix, ttl: ttl}
}

// Seen reports whether the event id already reached an acknowledged outcome
// within the retention window. It never writes, so an unacknowledged failure
// on a prior delivery cannot suppress the retry it requested.
func (c *RedisReplayCache) Seen(ctx context.Context, eventID string) (bool, error) {
	key, ok := c.key(eventID)
	if !ok {
		return false, nil
	}
	hits, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return hits > 0, nil
}

// Mark remembers the event id for the retention window. Called only after
// the delivery produced an acknowledged outcome.
func (c *RedisReplayCache) Mark(ctx context.Context, eventID string) error {
	key, ok := c.key(eventID)
	if !ok {
		return nil
	}
	return c.client.SetNX(ctx, key, 1, c.ttl).Err()
}

func (c *RedisReplayCache) key(eventID string) (string, bool) {
	if c == nil || c.client == nil {
		return "", false
	}
	id := strings.TrimSpace(eventID)
	if id == "" {
		return "", false
	}
	return fmt.Sprintf("%s:%s", c.prefix, id), true
}
