package tools

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/tmc/langchaingo/llms"

	"github.com/parleyhq/parley/internal/config"
)

// CrawlTool walks a site starting from one URL, staying on the same host,
// and returns the text of the pages it visits. Depth and page count are
// bounded by configuration.
type CrawlTool struct {
	cfg    config.CrawlerConfig
	logger *slog.Logger
}

// NewCrawlTool creates a CrawlTool.
// A nil logger falls back to slog.Default().
func NewCrawlTool(cfg config.CrawlerConfig, logger *slog.Logger) *CrawlTool {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxDepth < 1 {
		cfg.MaxDepth = 2
	}
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 10
	}
	if cfg.TimeoutMS < 1 {
		cfg.TimeoutMS = 30000
	}
	return &CrawlTool{cfg: cfg, logger: logger}
}

// Name implements Tool.
func (t *CrawlTool) Name() string { return "crawl_site" }

// Description implements Tool.
func (t *CrawlTool) Description() string {
	return "Crawl a website starting from a URL, following same-domain links, and return the text of the visited pages. Input should be a JSON object with a `url` string."
}

// Definition implements Tool.
func (t *CrawlTool) Definition() llms.FunctionDefinition {
	return llms.FunctionDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: stringParams(map[string]string{
			"url": "The absolute URL to start crawling from",
		}, "url"),
	}
}

// Call implements Tool.
func (t *CrawlTool) Call(ctx context.Context, input string) (string, error) {
	rawURL := stringArg(input, "url")
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "Error: input must be an absolute http(s) URL.", nil
	}

	t.logger.Info("tool call", "tool", t.Name(), "url", rawURL)

	c := colly.NewCollector(
		colly.MaxDepth(t.cfg.MaxDepth),
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(fetchUserAgent),
	)
	c.SetRequestTimeout(time.Duration(t.cfg.TimeoutMS) * time.Millisecond)

	var (
		mu    sync.Mutex
		pages []string
	)

	c.OnRequest(func(r *colly.Request) {
		mu.Lock()
		full := len(pages) >= t.cfg.MaxPages
		mu.Unlock()
		if full || ctx.Err() != nil {
			r.Abort()
		}
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		e.DOM.Find("script, style, nav, header, footer, noscript").Remove()
		title := strings.TrimSpace(e.DOM.Find("title").First().Text())
		text := strings.TrimSpace(e.DOM.Find("p, h1, h2, h3, li").Text())
		if text == "" {
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if len(pages) >= t.cfg.MaxPages {
			return
		}
		pages = append(pages, fmt.Sprintf("=== %s (%s) ===\n%s",
			title, e.Request.URL, truncate(text, maxFetchChars/2)))
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		// Errors here are per-link (depth exceeded, already visited) and
		// intentionally ignored.
		_ = e.Request.Visit(e.Attr("href"))
	})

	if err := c.Visit(parsed.String()); err != nil {
		return "", fmt.Errorf("crawling %q: %w", rawURL, err)
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("crawl interrupted: %w", err)
	}
	if len(pages) == 0 {
		return "No readable text found while crawling.", nil
	}

	t.logger.Info("crawl finished", "start_url", rawURL, "pages", len(pages))
	return truncate(strings.Join(pages, "\n\n"), maxFetchChars), nil
}
