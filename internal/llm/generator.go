package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
)

// Generator produces free-form text from a single prompt. The knowledge
// ingestor uses it for document summaries.
type Generator struct {
	model  llms.Model
	logger *slog.Logger
}

// NewGenerator creates a Generator over a chat model.
// A nil logger falls back to slog.Default().
func NewGenerator(model llms.Model, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{model: model, logger: logger}
}

// Generate runs one prompt through the model and returns the text response.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt)
	if err != nil {
		return "", fmt.Errorf("generating text: %w", err)
	}
	return out, nil
}
