package knowledge

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// VectorDimension is the embedding width of the knowledge_chunks schema.
// It must match the vector(N) column in the migration and the configured
// embedding model.
const VectorDimension = 1536

// ErrExternalService indicates an upstream model call (summary or
// embedding) failed.
var ErrExternalService = errors.New("external service error")

// Chunk is one embedded slice of an ingested document.
type Chunk struct {
	ID        uuid.UUID
	SessionID string
	FileName  string
	Content   string
	Embedding []float32
	CreatedAt time.Time
}

// Result is a single similarity search hit.
type Result struct {
	Content    string
	FileName   string
	Similarity float64
}
