package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/parleyhq/parley/internal/message"
)

// Cache is the volatile tier Memory reads and writes during a turn.
// Implemented by RedisCache.
type Cache interface {
	Get(ctx context.Context, sessionID string) ([]message.Message, bool, error)
	Set(ctx context.Context, sessionID string, msgs []message.Message) error
	Delete(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
}

// Durable is the persistent tier Memory falls back to and syncs into.
// Implemented by PostgresStore.
type Durable interface {
	Get(ctx context.Context, sessionID string) ([]message.Message, bool, error)
	Upsert(ctx context.Context, sessionID string, msgs []message.Message) error
	Delete(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
}

// Memory orchestrates the cache-aside protocol over both storage tiers.
//
// Memory is safe for concurrent use, but callers that perform a
// read-modify-write cycle across Get and Sync must serialize per session,
// typically with a KeyedMutex.
type Memory struct {
	cache   Cache
	durable Durable
	logger  *slog.Logger
}

// NewMemory creates a Memory over the two tiers.
// A nil logger falls back to slog.Default().
func NewMemory(cache Cache, durable Durable, logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		cache:   cache,
		durable: durable,
		logger:  logger,
	}
}

// Get loads a session's history. The cache is consulted first; on a miss the
// durable tier is read and the cache repopulated. A session absent from both
// tiers yields an empty history, not an error: a brand new session and a
// forgotten one are indistinguishable by contract.
//
// A cache read failure degrades to the durable tier rather than failing the
// turn.
func (m *Memory) Get(ctx context.Context, sessionID string) ([]message.Message, error) {
	msgs, found, err := m.cache.Get(ctx, sessionID)
	if err != nil {
		m.logger.Warn("cache read failed, falling back to durable store",
			"session_id", sessionID, "error", err)
	} else if found {
		return msgs, nil
	}

	msgs, found, err = m.durable.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session %q: %w", sessionID, err)
	}
	if !found {
		return []message.Message{}, nil
	}

	// Repopulate the cache so the next read is hot. Best effort: a failure
	// here costs a future cache miss, nothing more.
	if err := m.cache.Set(ctx, sessionID, msgs); err != nil {
		m.logger.Warn("cache repopulation failed",
			"session_id", sessionID, "error", err)
	}

	return msgs, nil
}

// Set writes a session's history to the cache tier. If the cache is down the
// history is written straight to the durable tier instead, so a completed
// turn is never silently dropped.
func (m *Memory) Set(ctx context.Context, sessionID string, msgs []message.Message) error {
	if err := m.cache.Set(ctx, sessionID, msgs); err != nil {
		m.logger.Warn("cache write failed, persisting directly",
			"session_id", sessionID, "error", err)
		if derr := m.durable.Upsert(ctx, sessionID, msgs); derr != nil {
			return fmt.Errorf("storing session %q: %w", sessionID, errors.Join(err, derr))
		}
	}
	return nil
}

// Sync copies the session's current history into the durable tier. The cache
// entry is authoritative when present; fallback is used when the entry has
// expired between Set and Sync. This is the only durability guarantee in the
// protocol and is expected to run once per completed turn.
func (m *Memory) Sync(ctx context.Context, sessionID string, fallback []message.Message) error {
	msgs, found, err := m.cache.Get(ctx, sessionID)
	if err != nil || !found {
		if err != nil {
			m.logger.Warn("cache read failed during sync, using in-memory history",
				"session_id", sessionID, "error", err)
		}
		msgs = fallback
	}

	if err := m.durable.Upsert(ctx, sessionID, msgs); err != nil {
		return fmt.Errorf("syncing session %q: %w", sessionID, err)
	}

	m.logger.Debug("synced session", "session_id", sessionID, "messages", len(msgs))
	return nil
}

// Clear removes the session from both tiers. Errors from the two tiers are
// joined so neither failure masks the other.
func (m *Memory) Clear(ctx context.Context, sessionID string) error {
	cerr := m.cache.Delete(ctx, sessionID)
	derr := m.durable.Delete(ctx, sessionID)
	if cerr != nil || derr != nil {
		return fmt.Errorf("clearing session %q: %w", sessionID, errors.Join(cerr, derr))
	}

	m.logger.Debug("cleared session", "session_id", sessionID)
	return nil
}

// Health reports reachability of each tier independently.
func (m *Memory) Health(ctx context.Context) (cacheOK, durableOK bool) {
	if err := m.cache.Ping(ctx); err != nil {
		m.logger.Warn("cache health check failed", "error", err)
	} else {
		cacheOK = true
	}
	if err := m.durable.Ping(ctx); err != nil {
		m.logger.Warn("durable store health check failed", "error", err)
	} else {
		durableOK = true
	}
	return cacheOK, durableOK
}
