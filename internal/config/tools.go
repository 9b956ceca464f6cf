package config

import (
	"encoding/json"
	"fmt"
)

// TavilyConfig holds settings for the Tavily web search tool.
type TavilyConfig struct {
	APIKey     string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	BaseURL    string `mapstructure:"base_url" json:"base_url"`
	MaxResults int    `mapstructure:"max_results" json:"max_results"`
}

// MarshalJSON masks the API key.
func (t TavilyConfig) MarshalJSON() ([]byte, error) {
	type alias TavilyConfig
	a := alias(t)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal tavily config: %w", err)
	}
	return data, nil
}

// CrawlerConfig holds settings for the web crawler tool.
type CrawlerConfig struct {
	// MaxDepth limits how many links deep the crawler follows.
	MaxDepth int `mapstructure:"max_depth" json:"max_depth"`

	// MaxPages caps the number of pages visited per crawl.
	MaxPages int `mapstructure:"max_pages" json:"max_pages"`

	// TimeoutMS bounds a single crawl in milliseconds.
	TimeoutMS int `mapstructure:"timeout_ms" json:"timeout_ms"`
}
