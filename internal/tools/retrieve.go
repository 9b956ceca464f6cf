package tools

import (
	"context"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
)

// Retriever answers similarity queries for one session's documents.
// Implemented by knowledge.Retriever.
type Retriever interface {
	Query(ctx context.Context, sessionID, query string) (string, error)
}

// RetrieveTool exposes the session's ingested documents to the model. Each
// instance is bound to a single session ID at routing time, so the model
// cannot reach across sessions.
type RetrieveTool struct {
	retriever Retriever
	sessionID string
	logger    *slog.Logger
}

// NewRetrieveTool binds a retrieval tool to one session.
// A nil logger falls back to slog.Default().
func NewRetrieveTool(retriever Retriever, sessionID string, logger *slog.Logger) *RetrieveTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrieveTool{
		retriever: retriever,
		sessionID: sessionID,
		logger:    logger,
	}
}

// Name implements Tool.
func (t *RetrieveTool) Name() string { return "retrieve_knowledge" }

// Description implements Tool.
func (t *RetrieveTool) Description() string {
	return "Search the documents the user uploaded in this conversation. Input should be a JSON object with a `query` string. Returns NO_KNOWLEDGE_BASE if no documents were uploaded, NO_RELEVANT_CONTENT if nothing matches."
}

// Definition implements Tool.
func (t *RetrieveTool) Definition() llms.FunctionDefinition {
	return llms.FunctionDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: stringParams(map[string]string{
			"query": "What to look for in the uploaded documents",
		}, "query"),
	}
}

// Call implements Tool. Sentinel strings from the retriever pass through as
// tool output; the reasoning prompt tells the model what they mean.
func (t *RetrieveTool) Call(ctx context.Context, input string) (string, error) {
	query := stringArg(input, "query")
	if query == "" {
		return "Error: retrieval query is empty.", nil
	}

	t.logger.Info("tool call", "tool", t.Name(), "session_id", t.sessionID, "query", query)
	return t.retriever.Query(ctx, t.sessionID, query)
}
