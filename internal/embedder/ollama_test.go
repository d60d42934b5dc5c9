package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docq/internal/errs"
)

func embedServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedReturnsVectorsInOrder(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)

		vecs := make([][]float32, len(req.Input))
		for i := range req.Input {
			vecs[i] = []float32{float32(i), 1}
		}
		json.NewEncoder(w).Encode(map[string]any{"embeddings": vecs})
	})

	e := NewOllamaEmbedder(srv.URL, "nomic-embed-text")
	got, err := e.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []float32{0, 1}, got[0])
	assert.Equal(t, []float32{1, 1}, got[1])
}

func TestEmbedEmptyInputIsNoOp(t *testing.T) {
	e := NewOllamaEmbedder("http://unreachable.invalid", "m")
	got, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEmbedServerErrorIsTransient(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	e := NewOllamaEmbedder(srv.URL, "m")
	_, err := e.EmbedText(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errs.IsTransient(err))
}

func TestEmbedRateLimitIsTransient(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	e := NewOllamaEmbedder(srv.URL, "m")
	_, err := e.EmbedText(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errs.IsTransient(err))
}

func TestEmbedClientErrorIsInvalid(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown model", http.StatusNotFound)
	})

	e := NewOllamaEmbedder(srv.URL, "m")
	_, err := e.EmbedText(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errs.IsInvalid(err))
}

func TestEmbedCountMismatchIsInvalid(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{0.1, 0.2}},
		})
	})

	e := NewOllamaEmbedder(srv.URL, "m")
	_, err := e.Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.True(t, errs.IsInvalid(err), "wrong embedding count is a structural failure")
}

func TestEmbedEmptyVectorIsTransient(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{}},
		})
	})

	e := NewOllamaEmbedder(srv.URL, "m")
	_, err := e.EmbedText(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errs.IsTransient(err), "empty vectors are retried, not fatal")
}

func TestEmbedUnreachableHostIsTransient(t *testing.T) {
	e := NewOllamaEmbedder("http://127.0.0.1:1", "m")
	_, err := e.EmbedText(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errs.IsTransient(err))
}

func TestEmbedHonorsContextCancellation(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewOllamaEmbedder(srv.URL, "m")
	_, err := e.EmbedText(ctx, "text")
	require.Error(t, err)
}
