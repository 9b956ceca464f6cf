package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/parleyhq/parley/internal/message"
)

// DB defines the database operations PostgresStore needs. *pgxpool.Pool
// satisfies it; tests substitute a mock.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore is the durable session tier. Each session is one row in
// chat_sessions with the full history as a JSONB document, replaced
// atomically on every upsert.
//
// PostgresStore is safe for concurrent use by multiple goroutines.
type PostgresStore struct {
	db     DB
	logger *slog.Logger
}

// NewPostgresStore creates a durable store over a database handle.
// A nil logger falls back to slog.Default().
func NewPostgresStore(db DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

// Get returns the stored history for a session. The second return value is
// false when no row exists.
func (s *PostgresStore) Get(ctx context.Context, sessionID string) ([]message.Message, bool, error) {
	var data []byte
	err := s.db.QueryRow(ctx,
		`SELECT history FROM chat_sessions WHERE session_id = $1`,
		sessionID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: selecting session %q: %w", ErrUnavailable, sessionID, err)
	}

	msgs, err := message.Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("decoding stored session %q: %w", sessionID, err)
	}
	return msgs, true, nil
}

// Upsert atomically replaces the stored history for a session, creating the
// row on first write.
func (s *PostgresStore) Upsert(ctx context.Context, sessionID string, msgs []message.Message) error {
	data, err := message.Encode(msgs)
	if err != nil {
		return fmt.Errorf("encoding session %q: %w", sessionID, err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO chat_sessions (session_id, history)
		 VALUES ($1, $2)
		 ON CONFLICT (session_id)
		 DO UPDATE SET history = EXCLUDED.history, updated_at = now()`,
		sessionID, data,
	)
	if err != nil {
		return fmt.Errorf("%w: upserting session %q: %w", ErrUnavailable, sessionID, err)
	}

	s.logger.Debug("persisted session", "session_id", sessionID, "messages", len(msgs))
	return nil
}

// Delete removes the session row. Deleting an absent row is not an error.
func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM chat_sessions WHERE session_id = $1`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("%w: deleting session %q: %w", ErrUnavailable, sessionID, err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: postgres ping: %w", ErrUnavailable, err)
	}
	return nil
}
