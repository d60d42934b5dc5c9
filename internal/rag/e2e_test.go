package rag

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docq/internal/ingest"
	"docq/internal/store"
	"docq/internal/vecindex"
	"docq/internal/workflow"
)

// End-to-end: ingest a one-chunk document through the real store and
// sqlite-vec index, then answer a question against it.
func TestIngestThenAskEndToEnd(t *testing.T) {
	ctx := context.Background()

	st, err := store.Open(filepath.Join(t.TempDir(), "docq.db"))
	require.NoError(t, err)
	defer st.Close()

	idx, err := vecindex.New(st.DB(), 2)
	require.NoError(t, err)

	emb := &mockEmbedder{vector: []float32{0.5, 0.5}, model: "test-embed"}

	require.NoError(t, st.PutDocument(ctx, store.Document{ID: "doc-1", Title: "tiny", Content: "A. B. C."}))
	runner, err := workflow.NewSQLiteRunner(st.DB(), "ingest:doc-1", workflow.RetryPolicy{MaxAttempts: 1})
	require.NoError(t, err)

	n, err := ingest.Run(ctx, runner,
		ingest.Deps{Chunks: st, Embedder: emb, Index: idx},
		ingest.Params{DocumentID: "doc-1", Content: "A. B. C."},
		ingest.Options{ChunkSize: 100, ChunkOverlap: 10})
	require.NoError(t, err)
	require.Equal(t, 1, n, "content below target size yields exactly one chunk")

	chunks, err := st.ListChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].SequenceIndex)
	assert.Equal(t, "A. B. C.", chunks[0].Text)

	// The index entry's metadata answers queries without touching the store.
	matches, err := idx.Query(ctx, []float32{0.5, 0.5}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, store.ChunkID("doc-1", 0), matches[0].ChunkID)
	assert.Equal(t, "A. B. C.", matches[0].Metadata.Text)

	require.NoError(t, st.SetMeta(ctx, store.MetaEmbeddingModel, emb.Model()))

	gen := &mockGenerator{answer: "The document says: A. B. C."}
	eng := NewEngine(emb, idx, gen, st, Config{TopK: 3})

	answer, err := eng.Ask(ctx, "What does the document say?")
	require.NoError(t, err)
	require.Len(t, answer.ContextUsed, 1)
	assert.Equal(t, "A. B. C.", answer.ContextUsed[0].Text)
	assert.Contains(t, gen.msgs[0].Content, "A. B. C.")
}

// Upserting the same entry twice leaves exactly one row in the index.
func TestVectorUpsertIdempotent(t *testing.T) {
	ctx := context.Background()

	st, err := store.Open(filepath.Join(t.TempDir(), "docq.db"))
	require.NoError(t, err)
	defer st.Close()

	idx, err := vecindex.New(st.DB(), 2)
	require.NoError(t, err)

	entry := vecindex.Entry{
		ChunkID: "doc-1:0",
		Vector:  []float32{0.3, 0.7},
		Metadata: vecindex.Metadata{
			DocumentID: "doc-1", SequenceIndex: 0, Text: "hello",
		},
	}
	require.NoError(t, idx.Upsert(ctx, entry))

	entry.Metadata.Text = "hello again"
	require.NoError(t, idx.Upsert(ctx, entry))

	matches, err := idx.Query(ctx, []float32{0.3, 0.7}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1, "upsert must not duplicate entries")
	assert.Equal(t, "hello again", matches[0].Metadata.Text,
		"stored values must match the latest invocation's inputs")
}
