// Package rag implements the query pipeline: embed the question, retrieve
// the nearest chunks, assemble a bounded context block, and ground the
// generated answer in it. The engine is stateless per request.
package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docq/internal/errs"
	"docq/internal/llm"
	"docq/internal/store"
	"docq/internal/vecindex"
)

const systemPrompt = `You are a document assistant. Answer the user's question using only the context retrieved from their uploaded documents, provided below.

Keep answers concise and grounded in the context. If the context does not contain enough information to answer, say so plainly instead of guessing.`

// noContextPlaceholder is sent when retrieval finds nothing, so the
// generation call always receives a well-formed context section.
const noContextPlaceholder = "No relevant context was found in the uploaded documents."

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 3

const retryDelay = 250 * time.Millisecond

// Embedder embeds the question with the same model used at ingestion.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Index answers nearest-neighbor queries over the ingested chunks.
type Index interface {
	Query(ctx context.Context, vector []float32, topK int) ([]vecindex.Match, error)
}

// Generator produces the grounded answer text.
type Generator interface {
	Generate(ctx context.Context, messages []llm.Message) (string, error)
}

// MetaReader exposes the stored embedding-model identity.
type MetaReader interface {
	GetMeta(ctx context.Context, key string) (string, error)
}

// Config tunes the engine.
type Config struct {
	// TopK is the number of chunks retrieved per question.
	TopK int
	// Attempts is the local retry budget for transient adapter failures;
	// the caller is waiting synchronously, so it stays small.
	Attempts int
}

// ContextChunk is one retrieved chunk returned to the caller for
// transparency about what grounded the answer.
type ContextChunk struct {
	ChunkID       string  `json:"chunkId"`
	DocumentID    string  `json:"documentId"`
	SequenceIndex int     `json:"sequenceIndex"`
	Text          string  `json:"text"`
	Distance      float64 `json:"distance"`
}

// Answer is the result of one question.
type Answer struct {
	Answer      string         `json:"answer"`
	ContextUsed []ContextChunk `json:"contextUsed"`
}

// Engine runs the query pipeline.
type Engine struct {
	embedder Embedder
	index    Index
	gen      Generator
	meta     MetaReader
	topK     int
	attempts int
}

// NewEngine wires the query pipeline.
func NewEngine(emb Embedder, index Index, gen Generator, meta MetaReader, cfg Config) *Engine {
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 2
	}
	return &Engine{
		embedder: emb,
		index:    index,
		gen:      gen,
		meta:     meta,
		topK:     topK,
		attempts: attempts,
	}
}

// Ask answers a question grounded in the ingested documents. An empty
// retrieval result is a successful answer with no context, not an error;
// adapter failures surface as errors and never as fabricated answers.
func (e *Engine) Ask(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, errs.Invalidf("question is required")
	}
	if err := e.checkModel(ctx); err != nil {
		return nil, err
	}

	vector, err := retry(ctx, e.attempts, func(ctx context.Context) ([]float32, error) {
		return e.embedder.EmbedText(ctx, question)
	})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	matches, err := e.index.Query(ctx, vector, e.topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	msgs := BuildMessages(matches, question)
	answer, err := retry(ctx, e.attempts, func(ctx context.Context) (string, error) {
		return e.gen.Generate(ctx, msgs)
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	used := make([]ContextChunk, 0, len(matches))
	for _, m := range matches {
		used = append(used, ContextChunk{
			ChunkID:       m.ChunkID,
			DocumentID:    m.Metadata.DocumentID,
			SequenceIndex: m.Metadata.SequenceIndex,
			Text:          m.Metadata.Text,
			Distance:      m.Distance,
		})
	}
	return &Answer{Answer: answer, ContextUsed: used}, nil
}

// BuildMessages assembles the system/user prompt pair: the system message
// carries the context block in descending-similarity order, the user
// message carries the verbatim question.
func BuildMessages(matches []vecindex.Match, question string) []llm.Message {
	var ctx strings.Builder
	if len(matches) == 0 {
		ctx.WriteString(noContextPlaceholder)
	} else {
		for i, m := range matches {
			fmt.Fprintf(&ctx, "--- Context %d (document %s, chunk %d) ---\n",
				i+1, m.Metadata.DocumentID, m.Metadata.SequenceIndex)
			ctx.WriteString(m.Metadata.Text)
			ctx.WriteString("\n\n")
		}
	}

	return []llm.Message{
		{Role: "system", Content: systemPrompt + "\n\nContext:\n\n" + strings.TrimRight(ctx.String(), "\n")},
		{Role: "user", Content: question},
	}
}

// checkModel fails the request when the index was built with a different
// embedding model than the one configured for queries.
func (e *Engine) checkModel(ctx context.Context) error {
	stored, err := e.meta.GetMeta(ctx, store.MetaEmbeddingModel)
	if err != nil {
		return fmt.Errorf("get embedding model meta: %w", err)
	}
	if stored != "" && stored != e.embedder.Model() {
		return errs.Invalidf("index was built with embedding model %q, query model is %q", stored, e.embedder.Model())
	}
	return nil
}

// retry re-runs fn on transient failures up to the attempt budget.
func retry[T any](ctx context.Context, attempts int, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !errs.IsTransient(err) || attempt == attempts {
			break
		}
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}
