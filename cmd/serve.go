package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/parleyhq/parley/internal/api"
	"github.com/parleyhq/parley/internal/chat"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/database"
	"github.com/parleyhq/parley/internal/knowledge"
	"github.com/parleyhq/parley/internal/llm"
	"github.com/parleyhq/parley/internal/log"
	"github.com/parleyhq/parley/internal/session"
	"github.com/parleyhq/parley/internal/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

// runServe wires all dependencies and runs the server until SIGINT/SIGTERM.
func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})
	logger.Info("starting parley", "version", AppVersion)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Storage
	if err := database.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	pool, err := database.Open(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	cache := session.NewRedisCache(redisClient, time.Duration(cfg.SessionTTLSeconds)*time.Second, logger)
	durable := session.NewPostgresStore(pool, logger)
	memory := session.NewMemory(cache, durable, logger)

	// Models
	clients, err := llm.NewClients(cfg)
	if err != nil {
		return fmt.Errorf("creating model clients: %w", err)
	}
	generator := llm.NewGenerator(clients.Chat, logger)
	describer := llm.NewDescriber(clients.Vision, logger)
	reasoner := llm.NewReasoner(clients.Chat, cfg.MaxIterations,
		time.Duration(cfg.ReasoningTimeoutMS)*time.Millisecond, logger)

	// Knowledge base
	chunkStore := knowledge.NewStore(pool, logger)
	ingestor := knowledge.NewIngestor(chunkStore, generator, clients.Embedder, knowledge.IngestorConfig{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		EmbedRate:    cfg.EmbedRatePerSec,
		EmbedBurst:   cfg.EmbedRateBurst,
	}, logger)
	retriever := knowledge.NewRetriever(chunkStore, clients.Embedder, cfg.RetrievalTopK, logger)

	// Tools
	baseTools := []tools.Tool{
		tools.NewSearchTool(cfg.Tavily, logger),
		tools.NewFetchTool(logger),
		tools.NewCrawlTool(cfg.Crawler, logger),
	}
	router := tools.NewRouter(baseTools, retriever, chunkStore, logger)

	service := chat.NewService(memory, router, reasoner, describer, ingestor, chunkStore, logger)

	addr := serveAddr
	if addr == "" {
		addr = cfg.HTTPAddr
	}
	server := api.NewServer(service, logger)
	return server.Run(ctx, addr)
}
