package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Sentinel strings returned by Retriever.Query instead of retrieved content.
// The reasoning prompt explains both to the model, so it can tell "this
// session has no documents" apart from "the documents say nothing about
// this".
const (
	// SentinelNoKnowledgeBase means the session has never ingested a document.
	SentinelNoKnowledgeBase = "NO_KNOWLEDGE_BASE"

	// SentinelNoRelevantContent means the namespace exists but nothing matched.
	SentinelNoRelevantContent = "NO_RELEVANT_CONTENT"
)

// Searcher is the store surface Retriever needs. Implemented by Store.
type Searcher interface {
	Search(ctx context.Context, sessionID string, embedding []float32, topK int) ([]Result, error)
	HasNamespace(ctx context.Context, sessionID string) (bool, error)
}

// Retriever answers similarity queries against a session's namespace and
// formats the hits for the model.
type Retriever struct {
	store    Searcher
	embedder Embedder
	topK     int
	logger   *slog.Logger
}

// NewRetriever creates a Retriever returning at most topK hits per query.
// A nil logger falls back to slog.Default().
func NewRetriever(store Searcher, embedder Embedder, topK int, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		topK:     topK,
		logger:   logger,
	}
}

// Query runs a similarity search and returns the formatted hits, or one of
// the sentinel strings. Sentinels are data, not errors: the reasoning loop
// passes them to the model as a tool result.
func (r *Retriever) Query(ctx context.Context, sessionID, query string) (string, error) {
	has, err := r.store.HasNamespace(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("checking knowledge base for %q: %w", sessionID, err)
	}
	if !has {
		return SentinelNoKnowledgeBase, nil
	}

	embedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return "", fmt.Errorf("%w: embedding query: %w", ErrExternalService, err)
	}

	results, err := r.store.Search(ctx, sessionID, embedding, r.topK)
	if err != nil {
		return "", fmt.Errorf("searching session %q: %w", sessionID, err)
	}
	if len(results) == 0 {
		return SentinelNoRelevantContent, nil
	}

	r.logger.Debug("retrieved chunks", "session_id", sessionID, "hits", len(results))
	return formatResults(results), nil
}

// formatResults concatenates the hit contents, newline separated, in
// descending similarity order.
func formatResults(results []Result) string {
	contents := make([]string, 0, len(results))
	for _, res := range results {
		contents = append(contents, res.Content)
	}
	return strings.Join(contents, "\n")
}
