package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
	"golang.org/x/time/rate"
)

// summaryPrompt asks the model for a condensed overview that gets prepended
// to the document before chunking. The summary rides along in the first
// chunks, so even a narrow retrieval window carries the document's gist.
const summaryPrompt = `Summarize the following document in roughly 10-20%% of its original length. Keep the key facts, names, and numbers. Do not add information that is not in the document. Reply with the summary only, no preamble.

Document:
%s`

// summaryPrefix marks the generated summary inside the enriched document.
const summaryPrefix = "Document summary: "

// Generator produces free-form text from a prompt. Implemented by
// llm.Generator.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder turns text into vectors. Satisfied by langchaingo's
// embeddings.Embedder.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChunkStore persists embedded chunks. Implemented by Store.
type ChunkStore interface {
	Upsert(ctx context.Context, chunks []Chunk) error
}

// embedBatchSize is how many chunks go to the embedding endpoint per call.
const embedBatchSize = 16

// IngestorConfig carries the tunable parts of ingestion.
type IngestorConfig struct {
	ChunkSize    int
	ChunkOverlap int

	// EmbedRate limits embedding calls per second; zero disables limiting.
	EmbedRate  int
	EmbedBurst int
}

// Ingestor turns an uploaded document into embedded chunks in the session's
// namespace: summarize, prepend the summary, split, embed, store.
type Ingestor struct {
	store     ChunkStore
	generator Generator
	embedder  Embedder
	limiter   *rate.Limiter
	splitter  textsplitter.RecursiveCharacter
	logger    *slog.Logger
}

// NewIngestor creates an Ingestor.
// A nil logger falls back to slog.Default().
func NewIngestor(store ChunkStore, generator Generator, embedder Embedder, cfg IngestorConfig, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.EmbedRate > 0 {
		burst := cfg.EmbedBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.EmbedRate), burst)
	}

	return &Ingestor{
		store:     store,
		generator: generator,
		embedder:  embedder,
		limiter:   limiter,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		),
		logger: logger,
	}
}

// Ingest adds one document to the session's namespace. The operation is
// all-or-nothing: any failure before the final store write leaves the
// namespace exactly as it was. A document with no text or no name is
// skipped, not an error: the turn it arrived with still proceeds.
func (i *Ingestor) Ingest(ctx context.Context, sessionID, fileName, text string) error {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(fileName) == "" {
		i.logger.Warn("skipping ingest of empty document",
			"session_id", sessionID, "file_name", fileName, "bytes", len(text))
		return nil
	}

	start := time.Now()

	summary, err := i.generator.Generate(ctx, fmt.Sprintf(summaryPrompt, text))
	if err != nil {
		return fmt.Errorf("%w: summarizing %q: %w", ErrExternalService, fileName, err)
	}

	enriched := summaryPrefix + strings.TrimSpace(summary) + "\n\n" + text

	chunks, err := i.splitter.SplitText(enriched)
	if err != nil {
		return fmt.Errorf("splitting %q: %w", fileName, err)
	}

	vectors := make([][]float32, 0, len(chunks))
	for batchStart := 0; batchStart < len(chunks); batchStart += embedBatchSize {
		end := min(batchStart+embedBatchSize, len(chunks))

		if i.limiter != nil {
			if err := i.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("waiting for embedding rate limit: %w", err)
			}
		}

		batch, err := i.embedder.EmbedDocuments(ctx, chunks[batchStart:end])
		if err != nil {
			return fmt.Errorf("%w: embedding %q: %w", ErrExternalService, fileName, err)
		}
		vectors = append(vectors, batch...)
	}

	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: embedder returned %d vectors for %d chunks",
			ErrExternalService, len(vectors), len(chunks))
	}

	records := make([]Chunk, len(chunks))
	for j, content := range chunks {
		records[j] = Chunk{
			ID:        uuid.New(),
			SessionID: sessionID,
			FileName:  fileName,
			Content:   content,
			Embedding: vectors[j],
		}
	}

	if err := i.store.Upsert(ctx, records); err != nil {
		return fmt.Errorf("storing chunks for %q: %w", fileName, err)
	}

	i.logger.Info("ingested document",
		"session_id", sessionID,
		"file_name", fileName,
		"chunks", len(records),
		"duration", time.Since(start))
	return nil
}
