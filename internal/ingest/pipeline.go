// Package ingest implements the durable ingestion pipeline: a document is
// chunked once, then every chunk is recorded, embedded, and indexed as
// three ordered steps checkpointed by the workflow runner. Chunks are
// processed concurrently; steps within one chunk are strictly ordered
// because embed and index need the canonical chunk id and vector.
package ingest

import (
	"context"
	"fmt"
	"sync"

	"docq/internal/chunker"
	"docq/internal/errs"
	"docq/internal/store"
	"docq/internal/vecindex"
	"docq/internal/workflow"
)

const defaultWorkers = 4

// Embedder is the embedding capability the pipeline consumes.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// ChunkStore persists chunk records with upsert semantics.
type ChunkStore interface {
	PutChunk(ctx context.Context, c store.Chunk) error
}

// VectorIndex upserts vector entries keyed by chunk id.
type VectorIndex interface {
	Upsert(ctx context.Context, e vecindex.Entry) error
}

// Params identifies one ingestion run. The document id is minted before
// the run starts so every derived chunk can reference it even if the run
// fails partway.
type Params struct {
	DocumentID string
	Content    string
}

// Options tunes chunking and concurrency.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	Workers      int
}

// Deps are the capabilities the pipeline writes through. All coordination
// between concurrent chunk steps goes through these stores, never through
// in-memory state, so the run survives process restarts.
type Deps struct {
	Chunks   ChunkStore
	Embedder Embedder
	Index    VectorIndex
}

// Run executes the ingestion pipeline for one document on the given step
// runner and returns the number of chunks ingested. Every step is
// idempotent, so re-running with the same document id and content resumes
// from the last checkpoint without double-writing. Empty content is a
// no-op, not an error.
func Run(ctx context.Context, steps workflow.Runner, deps Deps, p Params, opts Options) (int, error) {
	texts, err := workflow.Step(ctx, steps, "chunk", func(ctx context.Context) ([]string, error) {
		return chunker.Split(p.Content, chunker.Options{
			TargetSize: opts.ChunkSize,
			Overlap:    opts.ChunkOverlap,
		}), nil
	})
	if err != nil {
		return 0, fmt.Errorf("chunk step: %w", err)
	}
	if len(texts) == 0 {
		return 0, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, text := range texts {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, text string) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := ingestChunk(ctx, steps, deps, p.DocumentID, i, text); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(i, text)
	}
	wg.Wait()

	if firstErr != nil {
		return 0, firstErr
	}
	return len(texts), nil
}

// ingestChunk runs the record → embed → index triad for one chunk. Each
// step is a keyed upsert, so at-least-once invocation still produces
// exactly one chunk row and one index entry.
func ingestChunk(ctx context.Context, steps workflow.Runner, deps Deps, documentID string, seq int, text string) error {
	chunkID := store.ChunkID(documentID, seq)

	err := workflow.Do(ctx, steps, fmt.Sprintf("record/%d", seq), func(ctx context.Context) error {
		return deps.Chunks.PutChunk(ctx, store.Chunk{
			ID:            chunkID,
			DocumentID:    documentID,
			SequenceIndex: seq,
			Text:          text,
		})
	})
	if err != nil {
		return fmt.Errorf("record chunk %s: %w", chunkID, err)
	}

	vector, err := workflow.Step(ctx, steps, fmt.Sprintf("embed/%d", seq), func(ctx context.Context) ([]float32, error) {
		v, err := deps.Embedder.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		if len(v) == 0 {
			return nil, errs.Transientf("empty embedding for chunk %s", chunkID)
		}
		return v, nil
	})
	if err != nil {
		return fmt.Errorf("embed chunk %s: %w", chunkID, err)
	}

	err = workflow.Do(ctx, steps, fmt.Sprintf("index/%d", seq), func(ctx context.Context) error {
		return deps.Index.Upsert(ctx, vecindex.Entry{
			ChunkID: chunkID,
			Vector:  vector,
			Metadata: vecindex.Metadata{
				DocumentID:    documentID,
				SequenceIndex: seq,
				Text:          text,
			},
		})
	})
	if err != nil {
		return fmt.Errorf("index chunk %s: %w", chunkID, err)
	}
	return nil
}
