package store

import (
	"fmt"
	"time"
)

// MetaEmbeddingModel is the meta key recording which embedding model the
// vector index was built with. Ingestion and querying must agree on it;
// vectors from different models are not comparable.
const MetaEmbeddingModel = "embedding_model"

// Document is an uploaded text document. Immutable after creation.
type Document struct {
	ID        string
	Title     string
	Content   string
	CreatedAt time.Time
}

// Chunk is one retrieval window of a document. Chunk ids are derived from
// the document id and sequence index, so re-recording the same chunk is a
// no-op upsert.
type Chunk struct {
	ID            string
	DocumentID    string
	SequenceIndex int
	Text          string
	CreatedAt     time.Time
}

// ChunkID derives the canonical chunk id for a document position.
func ChunkID(documentID string, sequenceIndex int) string {
	return fmt.Sprintf("%s:%d", documentID, sequenceIndex)
}

// RunStatus is the observable state of a document's ingestion run.
type RunStatus string

const (
	RunInProgress RunStatus = "in_progress"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// Run records the ingestion state for one document so callers can query
// status instead of inferring failure from missing results.
type Run struct {
	DocumentID string
	Status     RunStatus
	Error      string
	UpdatedAt  time.Time
}
