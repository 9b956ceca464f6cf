package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
)

const describePrompt = "Describe this image in detail. Mention any text visible in it."

// Describer turns an image into a textual description via the vision model.
// The chat service injects the description into the conversation as context
// for the text model.
type Describer struct {
	model  llms.Model
	logger *slog.Logger
}

// NewDescriber creates a Describer over a vision-capable model.
// A nil logger falls back to slog.Default().
func NewDescriber(model llms.Model, logger *slog.Logger) *Describer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Describer{model: model, logger: logger}
}

// Describe sends the image bytes to the vision model and returns its
// description. mimeType must be the image's actual type, e.g. "image/png".
func (d *Describer) Describe(ctx context.Context, mimeType string, data []byte) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	resp, err := d.model.GenerateContent(ctx, []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(describePrompt),
				llms.ImageURLPart(dataURL),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("describing image: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision model returned no choices")
	}

	d.logger.Debug("described image", "mime_type", mimeType, "bytes", len(data))
	return resp.Choices[0].Content, nil
}
