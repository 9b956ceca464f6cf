package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/parleyhq/parley/internal/log"
)

// ===== Mock Implementations =====

type mockGenerator struct {
	output string
	err    error
	calls  int
}

func (m *mockGenerator) Generate(_ context.Context, _ string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.output, nil
}

type mockEmbedder struct {
	err        error
	queryErr   error
	docCalls   int
	queryCalls int
}

func (m *mockEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	m.docCalls++
	if m.err != nil {
		return nil, m.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i])), 0.5, 0.25}
	}
	return vectors, nil
}

func (m *mockEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	m.queryCalls++
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return []float32{float32(len(text)), 0.5, 0.25}, nil
}

type mockChunkStore struct {
	upsertErr error
	upserts   int
	chunks    []Chunk
}

func (m *mockChunkStore) Upsert(_ context.Context, chunks []Chunk) error {
	m.upserts++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func newTestIngestor(store ChunkStore, gen Generator, emb Embedder) *Ingestor {
	return NewIngestor(store, gen, emb, IngestorConfig{
		ChunkSize:    500,
		ChunkOverlap: 50,
	}, log.NewNop())
}

// ===== Tests =====

func TestIngestStoresSummaryPrefixedChunks(t *testing.T) {
	store := &mockChunkStore{}
	gen := &mockGenerator{output: "a short summary"}
	emb := &mockEmbedder{}

	ing := newTestIngestor(store, gen, emb)

	text := strings.Repeat("All work and no play makes Jack a dull boy. ", 50)
	if err := ing.Ingest(context.Background(), "s1", "notes.txt", text); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if len(store.chunks) == 0 {
		t.Fatal("no chunks stored")
	}
	if !strings.Contains(store.chunks[0].Content, summaryPrefix+"a short summary") {
		t.Errorf("first chunk does not carry the summary: %q", store.chunks[0].Content)
	}
	for i, c := range store.chunks {
		if c.SessionID != "s1" || c.FileName != "notes.txt" {
			t.Errorf("chunk %d has session %q file %q", i, c.SessionID, c.FileName)
		}
		if len(c.Embedding) == 0 {
			t.Errorf("chunk %d has no embedding", i)
		}
		if c.ID.String() == "00000000-0000-0000-0000-000000000000" {
			t.Errorf("chunk %d has zero ID", i)
		}
	}
}

func TestIngestIsAdditive(t *testing.T) {
	store := &mockChunkStore{}
	gen := &mockGenerator{output: "summary"}
	emb := &mockEmbedder{}

	ing := newTestIngestor(store, gen, emb)

	if err := ing.Ingest(context.Background(), "s1", "first.txt", "first document body"); err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}
	after1 := len(store.chunks)

	if err := ing.Ingest(context.Background(), "s1", "second.txt", "second document body"); err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}

	if len(store.chunks) <= after1 {
		t.Errorf("second ingestion did not add chunks: %d -> %d", after1, len(store.chunks))
	}

	files := map[string]bool{}
	for _, c := range store.chunks {
		files[c.FileName] = true
	}
	if !files["first.txt"] || !files["second.txt"] {
		t.Errorf("namespace lost a document: %v", files)
	}
}

func TestIngestSkipsEmptyDocuments(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		text     string
	}{
		{"empty text", "empty.txt", "   \n\t "},
		{"empty file name", "", "real content"},
		{"both empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockChunkStore{}
			gen := &mockGenerator{}
			ing := newTestIngestor(store, gen, &mockEmbedder{})

			if err := ing.Ingest(context.Background(), "s1", tt.fileName, tt.text); err != nil {
				t.Errorf("Ingest() error = %v, want nil for a skipped document", err)
			}
			if store.upserts != 0 {
				t.Error("store written for a skipped document")
			}
			if gen.calls != 0 {
				t.Error("summary generated for a skipped document")
			}
		})
	}
}

func TestIngestSummaryFailureWritesNothing(t *testing.T) {
	store := &mockChunkStore{}
	gen := &mockGenerator{err: errors.New("model overloaded")}
	emb := &mockEmbedder{}

	ing := newTestIngestor(store, gen, emb)

	err := ing.Ingest(context.Background(), "s1", "doc.txt", "some content")
	if !errors.Is(err, ErrExternalService) {
		t.Errorf("Ingest() error = %v, want ErrExternalService", err)
	}
	if emb.docCalls != 0 {
		t.Error("embedder called after summary failure")
	}
	if store.upserts != 0 {
		t.Error("store written after summary failure")
	}
}

func TestIngestEmbeddingFailureWritesNothing(t *testing.T) {
	store := &mockChunkStore{}
	gen := &mockGenerator{output: "summary"}
	emb := &mockEmbedder{err: errors.New("quota exceeded")}

	ing := newTestIngestor(store, gen, emb)

	err := ing.Ingest(context.Background(), "s1", "doc.txt", "some content")
	if !errors.Is(err, ErrExternalService) {
		t.Errorf("Ingest() error = %v, want ErrExternalService", err)
	}
	if store.upserts != 0 {
		t.Error("store written after embedding failure")
	}
}

func TestIngestStoreFailurePropagates(t *testing.T) {
	store := &mockChunkStore{upsertErr: errors.New("deadlock detected")}
	ing := newTestIngestor(store, &mockGenerator{output: "summary"}, &mockEmbedder{})

	if err := ing.Ingest(context.Background(), "s1", "doc.txt", "content"); err == nil {
		t.Error("Ingest() expected error when store fails")
	}
}

func TestIngestChunkingRespectsSize(t *testing.T) {
	store := &mockChunkStore{}
	ing := newTestIngestor(store, &mockGenerator{output: "summary"}, &mockEmbedder{})

	text := strings.Repeat("lorem ipsum dolor sit amet ", 200)
	if err := ing.Ingest(context.Background(), "s1", "long.txt", text); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if len(store.chunks) < 2 {
		t.Fatalf("long document produced %d chunks, want several", len(store.chunks))
	}
	for i, c := range store.chunks {
		// The splitter targets 500 characters; allow slack for separator
		// boundaries.
		if len(c.Content) > 600 {
			t.Errorf("chunk %d is %d characters, want <= ~500", i, len(c.Content))
		}
	}
}
