package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/parleyhq/parley/internal/message"
	"github.com/parleyhq/parley/internal/session"
	"github.com/parleyhq/parley/internal/tools"
)

// imageContextIntro labels the vision description injected ahead of the
// caller's system prompt for image turns.
const imageContextIntro = "This turn references an uploaded image. A description of it, including any text visible in it, follows:\n\n"

// Memory is the session store the service loads from and commits to.
// Implemented by session.Memory.
type Memory interface {
	Get(ctx context.Context, sessionID string) ([]message.Message, error)
	Set(ctx context.Context, sessionID string, msgs []message.Message) error
	Sync(ctx context.Context, sessionID string, fallback []message.Message) error
	Clear(ctx context.Context, sessionID string) error
	Health(ctx context.Context) (cacheOK, durableOK bool)
}

// ToolRouter assembles the per-turn toolset. Implemented by tools.Router.
type ToolRouter interface {
	Route(ctx context.Context, sessionID string) (tools.Toolset, error)
}

// Reasoner runs the bounded tool-calling loop. Implemented by llm.Reasoner.
type Reasoner interface {
	Run(ctx context.Context, system []string, history []message.Message, input string, toolset []tools.Tool) (string, []message.Message, error)
}

// Describer captions images. Implemented by llm.Describer.
type Describer interface {
	Describe(ctx context.Context, mimeType string, data []byte) (string, error)
}

// Ingestor loads a document into the session's knowledge namespace.
// Implemented by knowledge.Ingestor.
type Ingestor interface {
	Ingest(ctx context.Context, sessionID, fileName, text string) error
}

// KnowledgeWiper drops a session's knowledge namespace. Implemented by
// knowledge.Store.
type KnowledgeWiper interface {
	DeleteNamespace(ctx context.Context, sessionID string) error
}

// Service drives conversation turns. Each turn holds the session's lock
// across load, reason, and commit, so concurrent requests for the same
// session serialize instead of clobbering each other's history.
type Service struct {
	memory    Memory
	router    ToolRouter
	reasoner  Reasoner
	describer Describer
	ingestor  Ingestor
	wiper     KnowledgeWiper
	locks     *session.KeyedMutex
	now       func() time.Time
	logger    *slog.Logger
}

// NewService creates a Service.
// A nil logger falls back to slog.Default().
func NewService(memory Memory, router ToolRouter, reasoner Reasoner, describer Describer, ingestor Ingestor, wiper KnowledgeWiper, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		memory:    memory,
		router:    router,
		reasoner:  reasoner,
		describer: describer,
		ingestor:  ingestor,
		wiper:     wiper,
		locks:     session.NewKeyedMutex(),
		now:       time.Now,
		logger:    logger,
	}
}

// HandleChat runs a plain text turn and returns the assistant's answer.
func (s *Service) HandleChat(ctx context.Context, msg, systemPrompt, sessionID string) (string, error) {
	if err := validateTurn(msg, sessionID); err != nil {
		return "", err
	}
	return s.runTurn(ctx, sessionID, systemPrompt, msg)
}

// HandleChatWithImage captions the uploaded image with the vision model and
// runs the turn with the description prepended to the system prompt. The
// spooled upload is removed on every exit path.
func (s *Service) HandleChatWithImage(ctx context.Context, msg, systemPrompt, sessionID string, upload Upload) (string, error) {
	if err := validateTurn(msg, sessionID); err != nil {
		return "", err
	}
	mimeType, err := imageMIMEType(upload.FileName)
	if err != nil {
		return "", err
	}

	path, err := saveTemp(upload)
	if err != nil {
		return "", err
	}
	defer func() {
		if rerr := removeTemp(path); rerr != nil {
			s.logger.Warn("removing temp image failed", "path", path, "error", rerr)
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading spooled image: %w", err)
	}

	description, err := s.describer.Describe(ctx, mimeType, data)
	if err != nil {
		return "", fmt.Errorf("describing image %q: %w", upload.FileName, err)
	}

	systemPrompt = imageContextIntro + description + "\n\n" + systemPrompt
	return s.runTurn(ctx, sessionID, systemPrompt, msg)
}

// HandleChatWithFile ingests the uploaded document into the session's
// knowledge namespace and then runs the turn, so the answer can already draw
// on the new document. The spooled upload is removed on every exit path.
func (s *Service) HandleChatWithFile(ctx context.Context, msg, systemPrompt, sessionID string, upload Upload) (string, error) {
	if err := validateTurn(msg, sessionID); err != nil {
		return "", err
	}
	if err := validateDocumentExt(upload.FileName); err != nil {
		return "", err
	}

	path, err := saveTemp(upload)
	if err != nil {
		return "", err
	}
	defer func() {
		if rerr := removeTemp(path); rerr != nil {
			s.logger.Warn("removing temp file failed", "path", path, "error", rerr)
		}
	}()

	text, err := extractText(path)
	if err != nil {
		return "", err
	}

	if err := s.ingestor.Ingest(ctx, sessionID, upload.FileName, text); err != nil {
		return "", fmt.Errorf("ingesting %q: %w", upload.FileName, err)
	}

	return s.runTurn(ctx, sessionID, systemPrompt, msg)
}

// ClearSession forgets the session: history in both storage tiers and the
// knowledge namespace. Failures are joined so one does not mask the other.
func (s *Service) ClearSession(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: session id is required", ErrValidation)
	}

	s.locks.Lock(sessionID)
	defer s.locks.Unlock(sessionID)

	merr := s.memory.Clear(ctx, sessionID)
	werr := s.wiper.DeleteNamespace(ctx, sessionID)
	if merr != nil || werr != nil {
		return fmt.Errorf("clearing session %q: %w", sessionID, errors.Join(merr, werr))
	}

	s.logger.Info("session cleared", "session_id", sessionID)
	return nil
}

// Health reports reachability of the two storage tiers.
func (s *Service) Health(ctx context.Context) (cacheOK, durableOK bool) {
	return s.memory.Health(ctx)
}

// runTurn is the shared turn pipeline: lock, load history, route tools,
// reason, commit.
func (s *Service) runTurn(ctx context.Context, sessionID, systemPrompt, input string) (string, error) {
	s.locks.Lock(sessionID)
	defer s.locks.Unlock(sessionID)

	start := s.now()

	history, err := s.memory.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}

	toolset, err := s.router.Route(ctx, sessionID)
	if err != nil {
		return "", err
	}

	system := systemPrompts(systemPrompt, s.now(), toolset.HasKnowledge)

	answer, updated, err := s.reasoner.Run(ctx, system, history, input, toolset.Tools)
	if err != nil {
		return "", fmt.Errorf("turn for session %q: %w", sessionID, err)
	}

	// Commit: cache first, then durable. The reasoned answer exists at this
	// point; a store failure loses the history write, never the response.
	if err := s.memory.Set(ctx, sessionID, updated); err != nil {
		s.logger.Error("storing turn failed, returning answer anyway",
			"session_id", sessionID, "error", err)
	}
	if err := s.memory.Sync(ctx, sessionID, updated); err != nil {
		s.logger.Error("persisting turn failed, returning answer anyway",
			"session_id", sessionID, "error", err)
	}

	s.logger.Info("turn completed",
		"session_id", sessionID,
		"history_len", len(updated),
		"tools", len(toolset.Tools),
		"duration", s.now().Sub(start))
	return answer, nil
}

func validateTurn(msg, sessionID string) error {
	if strings.TrimSpace(msg) == "" {
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: session id is required", ErrValidation)
	}
	return nil
}
