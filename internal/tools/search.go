package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/parleyhq/parley/internal/config"
)

// SearchTool queries the Tavily search API for current web results.
type SearchTool struct {
	apiKey     string
	baseURL    string
	maxResults int
	client     *http.Client
	logger     *slog.Logger
}

// NewSearchTool creates a SearchTool from Tavily settings.
// A nil logger falls back to slog.Default().
func NewSearchTool(cfg config.TavilyConfig, logger *slog.Logger) *SearchTool {
	if logger == nil {
		logger = slog.Default()
	}
	maxResults := cfg.MaxResults
	if maxResults < 1 {
		maxResults = 5
	}
	return &SearchTool{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		maxResults: maxResults,
		client:     &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// Name implements Tool.
func (t *SearchTool) Name() string { return "web_search" }

// Description implements Tool.
func (t *SearchTool) Description() string {
	return "Search the web for current information. Input should be a JSON object with a `query` string."
}

// Definition implements Tool.
func (t *SearchTool) Definition() llms.FunctionDefinition {
	return llms.FunctionDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: stringParams(map[string]string{
			"query": "The search query",
		}, "query"),
	}
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Call implements Tool.
func (t *SearchTool) Call(ctx context.Context, input string) (string, error) {
	query := stringArg(input, "query")
	if query == "" {
		return "Error: search query is empty.", nil
	}

	t.logger.Info("tool call", "tool", t.Name(), "query", query)

	body, err := json.Marshal(map[string]any{
		"api_key":        t.apiKey,
		"query":          query,
		"max_results":    t.maxResults,
		"include_answer": true,
	})
	if err != nil {
		return "", fmt.Errorf("encoding search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding search response: %w", err)
	}

	if parsed.Answer == "" && len(parsed.Results) == 0 {
		return "No results found.", nil
	}

	var sb strings.Builder
	if parsed.Answer != "" {
		sb.WriteString("Answer: " + parsed.Answer + "\n\n")
	}
	for i, r := range parsed.Results {
		fmt.Fprintf(&sb, "[%d] %s (%s)\n%s\n\n", i+1, r.Title, r.URL, r.Content)
	}
	return strings.TrimSpace(sb.String()), nil
}
