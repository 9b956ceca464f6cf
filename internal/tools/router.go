package tools

import (
	"context"
	"fmt"
	"log/slog"
)

// NamespaceChecker reports whether a session has ingested documents.
// Implemented by knowledge.Store.
type NamespaceChecker interface {
	HasNamespace(ctx context.Context, sessionID string) (bool, error)
}

// Toolset is what Router hands the chat service for one turn.
type Toolset struct {
	Tools []Tool

	// HasKnowledge is true when the retrieval tool is included; the chat
	// service adjusts the system instruction accordingly.
	HasKnowledge bool
}

// Router assembles the toolset for each turn. The web tools are always
// present; the retrieval tool joins only when the session's namespace
// exists.
type Router struct {
	base      []Tool
	retriever Retriever
	checker   NamespaceChecker
	logger    *slog.Logger
}

// NewRouter creates a Router. base holds the session-independent tools.
// A nil logger falls back to slog.Default().
func NewRouter(base []Tool, retriever Retriever, checker NamespaceChecker, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		base:      base,
		retriever: retriever,
		checker:   checker,
		logger:    logger,
	}
}

// Route builds the toolset for one turn of the given session.
func (r *Router) Route(ctx context.Context, sessionID string) (Toolset, error) {
	has, err := r.checker.HasNamespace(ctx, sessionID)
	if err != nil {
		return Toolset{}, fmt.Errorf("routing tools for %q: %w", sessionID, err)
	}

	toolset := Toolset{Tools: make([]Tool, 0, len(r.base)+1)}
	toolset.Tools = append(toolset.Tools, r.base...)

	if has {
		toolset.Tools = append(toolset.Tools, NewRetrieveTool(r.retriever, sessionID, r.logger))
		toolset.HasKnowledge = true
	}

	r.logger.Debug("routed toolset",
		"session_id", sessionID,
		"tools", len(toolset.Tools),
		"has_knowledge", toolset.HasKnowledge)
	return toolset, nil
}
