package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/tmc/langchaingo/llms"
)

const (
	// maxFetchBytes caps how much of a page is downloaded.
	maxFetchBytes = 10 << 20

	// maxFetchChars caps the extracted text handed back to the model.
	maxFetchChars = 8000

	fetchUserAgent = "parley/1.0 (+https://github.com/parleyhq/parley)"
)

// FetchTool downloads a single web page and extracts its readable text.
// Article extraction is tried first; pages that defeat it fall back to a
// selector-based sweep of the common content tags.
type FetchTool struct {
	client *http.Client
	logger *slog.Logger
}

// NewFetchTool creates a FetchTool.
// A nil logger falls back to slog.Default().
func NewFetchTool(logger *slog.Logger) *FetchTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchTool{
		client: &http.Client{Timeout: 20 * time.Second},
		logger: logger,
	}
}

// Name implements Tool.
func (t *FetchTool) Name() string { return "fetch_page" }

// Description implements Tool.
func (t *FetchTool) Description() string {
	return "Fetch a web page and return its readable text content. Input should be a JSON object with a `url` string."
}

// Definition implements Tool.
func (t *FetchTool) Definition() llms.FunctionDefinition {
	return llms.FunctionDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: stringParams(map[string]string{
			"url": "The absolute URL of the page to fetch",
		}, "url"),
	}
}

// Call implements Tool.
func (t *FetchTool) Call(ctx context.Context, input string) (string, error) {
	rawURL := stringArg(input, "url")
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "Error: input must be an absolute http(s) URL.", nil
	}

	t.logger.Info("tool call", "tool", t.Name(), "url", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("building fetch request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %q: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("Error: page returned HTTP %d.", resp.StatusCode), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", rawURL, err)
	}

	text := extractArticle(body, parsed)
	if text == "" {
		text, err = extractSelectors(body)
		if err != nil {
			return "", fmt.Errorf("parsing %q: %w", rawURL, err)
		}
	}
	if text == "" {
		return "No readable text found on the page.", nil
	}

	return truncate(text, maxFetchChars), nil
}

// extractArticle runs readability article extraction; empty string means the
// page did not look like an article.
func extractArticle(body []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(article.TextContent)
	// Very short extractions usually mean readability picked a boilerplate
	// fragment; the selector sweep does better on such pages.
	if len(text) < 200 {
		return ""
	}
	if article.Title != "" {
		return article.Title + "\n\n" + text
	}
	return text
}

// extractSelectors collects text from the common content tags, skipping
// script and style blocks.
func extractSelectors(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, header, footer, noscript").Remove()

	var parts []string
	doc.Find("h1, h2, h3, p, li, td, pre").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n"), nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "\n[truncated]"
}
