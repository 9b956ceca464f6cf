package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/parleyhq/parley/internal/message"
	"github.com/parleyhq/parley/internal/tools"
)

// Reasoner runs the bounded tool-calling loop for one conversation turn.
// The model is called with the toolset's schemas; tool calls are dispatched
// locally and their results fed back until the model answers in plain text,
// the iteration cap is hit, or the turn deadline expires.
type Reasoner struct {
	model         llms.Model
	maxIterations int
	timeout       time.Duration
	logger        *slog.Logger
}

// NewReasoner creates a Reasoner. maxIterations bounds model round trips per
// turn; timeout bounds the turn's wall-clock time.
// A nil logger falls back to slog.Default().
func NewReasoner(model llms.Model, maxIterations int, timeout time.Duration, logger *slog.Logger) *Reasoner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reasoner{
		model:         model,
		maxIterations: maxIterations,
		timeout:       timeout,
		logger:        logger,
	}
}

// Run executes one turn. It returns the final answer and the updated
// history: the stored history plus the new human input and AI answer.
// Intermediate tool traffic is deliberately not persisted.
//
// When the bounds cut the loop short, the last text the model produced is
// returned instead of an error, so the user gets a partial answer rather
// than a timeout page.
func (r *Reasoner) Run(ctx context.Context, system []string, history []message.Message, input string, toolset []tools.Tool) (string, []message.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	registry := make(map[string]tools.Tool, len(toolset))
	defs := make([]llms.Tool, 0, len(toolset))
	for _, t := range toolset {
		registry[t.Name()] = t
		def := t.Definition()
		defs = append(defs, llms.Tool{Type: "function", Function: &def})
	}

	msgs := toModelMessages(system, history, input)

	var answer, lastText string
	for round := 0; round < r.maxIterations; round++ {
		resp, err := r.model.GenerateContent(ctx, msgs, llms.WithTools(defs))
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && lastText != "" {
				r.logger.Warn("turn deadline hit, returning partial answer", "rounds", round)
				answer = lastText
				break
			}
			return "", nil, fmt.Errorf("model call failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", nil, fmt.Errorf("model returned no choices")
		}

		choice := resp.Choices[0]
		if choice.Content != "" {
			lastText = choice.Content
		}

		if len(choice.ToolCalls) == 0 {
			answer = choice.Content
			break
		}

		// Echo the assistant's tool-call message back into the context.
		assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			assistant.Parts = append(assistant.Parts, llms.TextPart(choice.Content))
		}
		for _, tc := range choice.ToolCalls {
			assistant.Parts = append(assistant.Parts, tc)
		}
		msgs = append(msgs, assistant)

		// Some models repeat a tool_call_id within one response.
		seen := make(map[string]bool, len(choice.ToolCalls))
		for _, tc := range choice.ToolCalls {
			if tc.FunctionCall == nil || seen[tc.ID] {
				continue
			}
			seen[tc.ID] = true

			result := r.dispatch(ctx, registry, tc.FunctionCall.Name, tc.FunctionCall.Arguments)
			msgs = append(msgs, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: tc.ID,
					Name:       tc.FunctionCall.Name,
					Content:    result,
				}},
			})
		}
	}

	if answer == "" {
		r.logger.Warn("reasoning stopped at iteration cap", "max_iterations", r.maxIterations)
		answer = lastText
	}
	if answer == "" {
		return "", nil, fmt.Errorf("model produced no answer within %d iterations", r.maxIterations)
	}

	updated := make([]message.Message, 0, len(history)+2)
	updated = append(updated, history...)
	updated = append(updated, message.Human(input), message.AI(answer))
	return answer, updated, nil
}

// dispatch runs one tool call; failures come back as text for the model to
// react to rather than aborting the turn.
func (r *Reasoner) dispatch(ctx context.Context, registry map[string]tools.Tool, name, args string) string {
	tool, ok := registry[name]
	if !ok {
		r.logger.Warn("model requested unknown tool", "tool", name)
		return "Unknown tool: " + name
	}

	out, err := tool.Call(ctx, args)
	if err != nil {
		r.logger.Warn("tool execution failed", "tool", name, "error", err)
		return "Error: " + err.Error()
	}
	return out
}
