package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// DB defines the database operations Store needs. *pgxpool.Pool satisfies
// it; tests substitute a mock. Interfaces are defined by the consumer, not
// the provider.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store persists embedded chunks in PostgreSQL with pgvector similarity
// search.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db     DB
	logger *slog.Logger
}

// NewStore creates a Store over a database handle.
// A nil logger falls back to slog.Default().
func NewStore(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Upsert inserts a batch of chunks in a single transaction. Either every
// chunk lands or none do, so a half-ingested document never pollutes the
// namespace.
func (s *Store) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	for i, c := range chunks {
		_, err := tx.Exec(ctx,
			`INSERT INTO knowledge_chunks (id, session_id, file_name, content, embedding)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE
			 SET content = EXCLUDED.content, embedding = EXCLUDED.embedding`,
			c.ID, c.SessionID, c.FileName, c.Content, pgvector.NewVector(c.Embedding),
		)
		if err != nil {
			return fmt.Errorf("inserting chunk %d of %d: %w", i+1, len(chunks), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}

	s.logger.Debug("stored chunks",
		"session_id", chunks[0].SessionID,
		"file_name", chunks[0].FileName,
		"count", len(chunks))
	return nil
}

// Search returns the chunks nearest to the query embedding within a
// session's namespace, ordered by cosine similarity descending.
func (s *Store) Search(ctx context.Context, sessionID string, embedding []float32, topK int) ([]Result, error) {
	rows, err := s.db.Query(ctx,
		`SELECT content, file_name, 1 - (embedding <=> $2) AS similarity
		 FROM knowledge_chunks
		 WHERE session_id = $1
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		sessionID, pgvector.NewVector(embedding), topK,
	)
	if err != nil {
		return nil, fmt.Errorf("searching session %q: %w", sessionID, err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Content, &r.FileName, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search results: %w", err)
	}

	return results, nil
}

// HasNamespace reports whether the session has any ingested chunks.
func (s *Store) HasNamespace(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM knowledge_chunks WHERE session_id = $1)`,
		sessionID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking namespace %q: %w", sessionID, err)
	}
	return exists, nil
}

// DeleteNamespace removes every chunk belonging to a session.
func (s *Store) DeleteNamespace(ctx context.Context, sessionID string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM knowledge_chunks WHERE session_id = $1`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("deleting namespace %q: %w", sessionID, err)
	}

	s.logger.Debug("deleted knowledge namespace", "session_id", sessionID)
	return nil
}
