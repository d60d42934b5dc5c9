package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docq/internal/errs"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "docq.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestPutGetDocument(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	doc := Document{ID: "doc-1", Title: "notes", Content: "hello world"}
	require.NoError(t, st.PutDocument(ctx, doc))

	got, err := st.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "notes", got.Title)
	assert.Equal(t, "hello world", got.Content)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetDocumentNotFound(t *testing.T) {
	st := testStore(t)

	_, err := st.GetDocument(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestPutChunkUpsertsByID(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	require.NoError(t, st.PutDocument(ctx, Document{ID: "doc-1", Title: "t", Content: "c"}))

	chunk := Chunk{ID: ChunkID("doc-1", 0), DocumentID: "doc-1", SequenceIndex: 0, Text: "first"}
	require.NoError(t, st.PutChunk(ctx, chunk))

	chunk.Text = "first, rewritten"
	require.NoError(t, st.PutChunk(ctx, chunk))

	chunks, err := st.ListChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 1, "re-recording a chunk must not duplicate it")
	assert.Equal(t, "first, rewritten", chunks[0].Text)
}

func TestListChunksOrderedBySequence(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	require.NoError(t, st.PutDocument(ctx, Document{ID: "doc-1", Title: "t", Content: "c"}))

	// Insert out of order; reads must come back in sequence order.
	for _, i := range []int{2, 0, 1} {
		require.NoError(t, st.PutChunk(ctx, Chunk{
			ID: ChunkID("doc-1", i), DocumentID: "doc-1", SequenceIndex: i, Text: "chunk",
		}))
	}

	chunks, err := st.ListChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.SequenceIndex)
	}
}

func TestGetChunkNotFound(t *testing.T) {
	st := testStore(t)

	_, err := st.GetChunk(context.Background(), "missing:0")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestRunStatusLifecycle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	require.NoError(t, st.PutDocument(ctx, Document{ID: "doc-1", Title: "t", Content: "c"}))

	require.NoError(t, st.SetRunStatus(ctx, "doc-1", RunInProgress, ""))
	run, err := st.GetRun(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, RunInProgress, run.Status)

	require.NoError(t, st.SetRunStatus(ctx, "doc-1", RunFailed, "embed step: timeout"))
	run, err = st.GetRun(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, RunFailed, run.Status)
	assert.Equal(t, "embed step: timeout", run.Error)

	require.NoError(t, st.SetRunStatus(ctx, "doc-1", RunCompleted, ""))
	run, err = st.GetRun(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, run.Status)
	assert.Empty(t, run.Error)
}

func TestGetRunNotFound(t *testing.T) {
	st := testStore(t)

	_, err := st.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestMetaRoundTrip(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	val, err := st.GetMeta(ctx, MetaEmbeddingModel)
	require.NoError(t, err)
	assert.Empty(t, val, "unset meta reads as empty, not an error")

	require.NoError(t, st.SetMeta(ctx, MetaEmbeddingModel, "nomic-embed-text"))
	require.NoError(t, st.SetMeta(ctx, MetaEmbeddingModel, "nomic-embed-text:v2"))

	val, err = st.GetMeta(ctx, MetaEmbeddingModel)
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text:v2", val)
}

func TestChunkIDDeterministic(t *testing.T) {
	assert.Equal(t, "doc-1:0", ChunkID("doc-1", 0))
	assert.Equal(t, ChunkID("doc-1", 7), ChunkID("doc-1", 7))
	assert.NotEqual(t, ChunkID("doc-1", 1), ChunkID("doc-2", 1))
}
