// Package server exposes the document and chat operations over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"docq/internal/rag"
	"docq/internal/store"
)

// Ingestor accepts document submissions and reports run status.
type Ingestor interface {
	Submit(ctx context.Context, title, content string) (string, error)
	Status(ctx context.Context, documentID string) (store.Run, error)
}

// Asker answers questions over the ingested documents.
type Asker interface {
	Ask(ctx context.Context, question string) (*rag.Answer, error)
}

// New builds the HTTP server for the given address.
func New(addr string, ing Ingestor, asker Asker, log *slog.Logger) *http.Server {
	if log == nil {
		log = slog.Default()
	}
	h := &handlers{ingestor: ing, asker: asker, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/documents", h.handleSubmitDocument)
	mux.HandleFunc("GET /api/documents/{id}", h.handleDocumentStatus)
	mux.HandleFunc("POST /api/chat", h.handleChat)

	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}
