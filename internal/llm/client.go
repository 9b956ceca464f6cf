// Package llm wraps the model endpoints behind three narrow surfaces: plain
// text generation, image description, and the tool-calling reasoning loop.
// All three speak to an OpenAI-compatible API through langchaingo.
package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/parleyhq/parley/internal/config"
)

// Clients bundles the configured model handles.
type Clients struct {
	// Chat is the text reasoning model.
	Chat llms.Model

	// Vision is the image description model.
	Vision llms.Model

	// Embedder produces vectors for knowledge ingestion and retrieval.
	Embedder *embeddings.EmbedderImpl
}

// NewClients builds the model handles from configuration. The three handles
// may point at the same endpoint with different model names.
func NewClients(cfg *config.Config) (*Clients, error) {
	chat, err := openai.New(
		openai.WithToken(cfg.LLMAPIKey),
		openai.WithBaseURL(cfg.LLMBaseURL),
		openai.WithModel(cfg.ModelName),
	)
	if err != nil {
		return nil, fmt.Errorf("creating chat client: %w", err)
	}

	vision, err := openai.New(
		openai.WithToken(cfg.LLMAPIKey),
		openai.WithBaseURL(cfg.LLMBaseURL),
		openai.WithModel(cfg.VisionModel),
	)
	if err != nil {
		return nil, fmt.Errorf("creating vision client: %w", err)
	}

	embedClient, err := openai.New(
		openai.WithToken(cfg.LLMAPIKey),
		openai.WithBaseURL(cfg.LLMBaseURL),
		openai.WithEmbeddingModel(cfg.EmbedderModel),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(embedClient)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &Clients{
		Chat:     chat,
		Vision:   vision,
		Embedder: embedder,
	}, nil
}
