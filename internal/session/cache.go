package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parleyhq/parley/internal/message"
)

// keyPrefix namespaces session entries in Redis. The prefix is part of the
// storage format shared with earlier deployments and must not change.
const keyPrefix = "chat_session:"

// RedisCache is the volatile session tier backed by Redis.
//
// Every Set rewrites the entry with a fresh TTL, so the expiry slides on
// writes. Reads deliberately do not touch the TTL: an idle session expires
// even if it is still being read.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache creates a cache over an existing Redis client.
// A nil logger falls back to slog.Default().
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func cacheKey(sessionID string) string {
	return keyPrefix + sessionID
}

// Get returns the cached history for a session. The second return value is
// false when the entry is absent or expired; that is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, sessionID string) ([]message.Message, bool, error) {
	data, err := c.client.Get(ctx, cacheKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: redis get %q: %w", ErrUnavailable, sessionID, err)
	}

	msgs, err := message.Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("decoding cached session %q: %w", sessionID, err)
	}
	return msgs, true, nil
}

// Set replaces the cached history and resets the entry's TTL.
func (c *RedisCache) Set(ctx context.Context, sessionID string, msgs []message.Message) error {
	data, err := message.Encode(msgs)
	if err != nil {
		return fmt.Errorf("encoding session %q: %w", sessionID, err)
	}

	if err := c.client.Set(ctx, cacheKey(sessionID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set %q: %w", ErrUnavailable, sessionID, err)
	}

	c.logger.Debug("cached session", "session_id", sessionID, "messages", len(msgs), "ttl", c.ttl)
	return nil
}

// Delete removes the cached entry. Deleting an absent entry is not an error.
func (c *RedisCache) Delete(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, cacheKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: redis del %q: %w", ErrUnavailable, sessionID, err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %w", ErrUnavailable, err)
	}
	return nil
}
