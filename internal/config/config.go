// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.parley/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Model: chat, vision, and embedding model selection (OpenAI-compatible endpoint)
//   - Session: Redis cache and history TTL
//   - Storage: PostgreSQL connection (see storage.go)
//   - Knowledge: chunking, retrieval depth, embedding rate limit
//   - Tools: Tavily search and the web crawler
//
// Sensitive values (passwords, API keys) are masked in MarshalJSON and String,
// so a Config can be logged without leaking secrets.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates a model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidSessionTTL indicates the session TTL is out of range.
	ErrInvalidSessionTTL = errors.New("invalid session TTL")

	// ErrInvalidMaxIterations indicates the reasoning iteration cap is out of range.
	ErrInvalidMaxIterations = errors.New("invalid max iterations")

	// ErrInvalidTopK indicates the retrieval depth is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top k")

	// ErrInvalidChunking indicates the chunk size or overlap is out of range.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidRedisAddr indicates the Redis address is invalid.
	ErrInvalidRedisAddr = errors.New("invalid Redis address")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")
)

const (
	// DefaultSessionTTLSeconds is the Redis lifetime of a cached session.
	// The cache tier is a freshness layer; Postgres is the durable record.
	DefaultSessionTTLSeconds = 3600

	// DefaultMaxIterations bounds the reasoning tool-call loop per turn.
	DefaultMaxIterations = 5

	// DefaultReasoningTimeoutMS bounds wall-clock time of a single turn.
	DefaultReasoningTimeoutMS = 30000
)

// Config stores application configuration.
// Sensitive fields are explicitly masked in MarshalJSON; when adding a new
// secret field, update MarshalJSON as well.
type Config struct {
	// HTTP server
	HTTPAddr string `mapstructure:"http_addr" json:"http_addr"`

	// Model configuration (OpenAI-compatible endpoint)
	LLMBaseURL    string  `mapstructure:"llm_base_url" json:"llm_base_url"`
	LLMAPIKey     string  `mapstructure:"llm_api_key" json:"llm_api_key"` // SENSITIVE: masked in MarshalJSON
	ModelName     string  `mapstructure:"model_name" json:"model_name"`
	VisionModel   string  `mapstructure:"vision_model" json:"vision_model"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`

	// Session configuration
	RedisAddr         string `mapstructure:"redis_addr" json:"redis_addr"`
	RedisPassword     string `mapstructure:"redis_password" json:"redis_password"` // SENSITIVE: masked in MarshalJSON
	RedisDB           int    `mapstructure:"redis_db" json:"redis_db"`
	SessionTTLSeconds int    `mapstructure:"session_ttl_seconds" json:"session_ttl_seconds"`

	// Storage configuration (see storage.go for DSN helpers)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Knowledge base configuration
	ChunkSize        int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap     int `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	RetrievalTopK    int `mapstructure:"retrieval_top_k" json:"retrieval_top_k"`
	EmbedRatePerSec  int `mapstructure:"embed_rate_per_sec" json:"embed_rate_per_sec"`
	EmbedRateBurst   int `mapstructure:"embed_rate_burst" json:"embed_rate_burst"`

	// Reasoning bounds
	MaxIterations      int `mapstructure:"max_iterations" json:"max_iterations"`
	ReasoningTimeoutMS int `mapstructure:"reasoning_timeout_ms" json:"reasoning_timeout_ms"`

	// Tool configuration (see tools.go for type definitions)
	Tavily  TavilyConfig  `mapstructure:"tavily" json:"tavily"`
	Crawler CrawlerConfig `mapstructure:"crawler" json:"crawler"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"` // debug, info, warn, error
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// SlogLevel maps LogLevel to a slog.Level. Unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".parley")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env cover everything.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL takes precedence over individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("http_addr", ":8080")

	// Model defaults
	viper.SetDefault("llm_base_url", "https://api.openai.com/v1")
	viper.SetDefault("model_name", "gpt-4o-mini")
	viper.SetDefault("vision_model", "gpt-4o-mini")
	viper.SetDefault("embedder_model", "text-embedding-3-small")
	viper.SetDefault("temperature", 0.7)

	// Session defaults
	viper.SetDefault("redis_addr", "localhost:6379")
	viper.SetDefault("redis_db", 0)
	viper.SetDefault("session_ttl_seconds", DefaultSessionTTLSeconds)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "parley")
	viper.SetDefault("postgres_password", "parley_dev_password")
	viper.SetDefault("postgres_db_name", "parley")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Knowledge base defaults
	viper.SetDefault("chunk_size", 500)
	viper.SetDefault("chunk_overlap", 50)
	viper.SetDefault("retrieval_top_k", 3)
	viper.SetDefault("embed_rate_per_sec", 5)
	viper.SetDefault("embed_rate_burst", 10)

	// Reasoning defaults
	viper.SetDefault("max_iterations", DefaultMaxIterations)
	viper.SetDefault("reasoning_timeout_ms", DefaultReasoningTimeoutMS)

	// Tavily defaults
	viper.SetDefault("tavily.base_url", "https://api.tavily.com")
	viper.SetDefault("tavily.max_results", 5)

	// Crawler defaults
	viper.SetDefault("crawler.max_depth", 2)
	viper.SetDefault("crawler.max_pages", 10)
	viper.SetDefault("crawler.timeout_ms", 30000)

	// Logging defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variable overrides explicitly.
// Secrets come only from the environment, never from the config file search
// path in containerized deployments.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime error.
	mustBind := func(key string, envVars ...string) {
		if err := viper.BindEnv(append([]string{key}, envVars...)...); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %v: %v", key, envVars, err))
		}
	}

	mustBind("http_addr", "PARLEY_HTTP_ADDR")

	mustBind("llm_base_url", "PARLEY_LLM_BASE_URL")
	mustBind("llm_api_key", "PARLEY_LLM_API_KEY", "OPENAI_API_KEY")
	mustBind("model_name", "PARLEY_MODEL_NAME")
	mustBind("vision_model", "PARLEY_VISION_MODEL")
	mustBind("embedder_model", "PARLEY_EMBEDDER_MODEL")

	mustBind("redis_addr", "PARLEY_REDIS_ADDR")
	mustBind("redis_password", "PARLEY_REDIS_PASSWORD")

	mustBind("tavily.api_key", "PARLEY_TAVILY_API_KEY", "TAVILY_API_KEY")

	mustBind("log_level", "PARLEY_LOG_LEVEL")
	mustBind("log_json", "PARLEY_LOG_JSON")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Short secrets are fully
// masked; longer ones keep the first and last two characters for debugging.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - LLMAPIKey
//   - RedisPassword
//   - PostgresPassword
//   - Tavily.APIKey (via TavilyConfig.MarshalJSON)
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.LLMAPIKey = maskSecret(a.LLMAPIKey)
	a.RedisPassword = maskSecret(a.RedisPassword)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
