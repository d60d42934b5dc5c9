package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"docq/internal/errs"
	"docq/internal/store"
	"docq/internal/workflow"
)

// Service accepts document submissions and drives their ingestion runs.
type Service struct {
	store    *store.Store
	embedder Embedder
	index    VectorIndex
	opts     Options
	policy   workflow.RetryPolicy
	log      *slog.Logger
}

// NewService wires the ingestion service. A nil logger falls back to the
// default slog logger.
func NewService(st *store.Store, emb Embedder, index VectorIndex, opts Options, policy workflow.RetryPolicy, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    st,
		embedder: emb,
		index:    index,
		opts:     opts,
		policy:   policy,
		log:      log,
	}
}

// Submit stores a new document and starts its ingestion run in the
// background, returning the minted document id immediately. The run is
// detached from the caller's context: client disconnects do not cancel it.
func (s *Service) Submit(ctx context.Context, title, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", errs.Invalidf("document content is required")
	}
	if err := s.checkModel(ctx); err != nil {
		return "", err
	}

	docID := uuid.NewString()
	if err := s.store.PutDocument(ctx, store.Document{ID: docID, Title: title, Content: content}); err != nil {
		return "", err
	}
	if err := s.store.SetRunStatus(ctx, docID, store.RunInProgress, ""); err != nil {
		return "", err
	}

	go s.runDetached(docID, content)
	return docID, nil
}

// Reingest re-attempts the ingestion run for an existing document
// synchronously. Completed steps are skipped via their checkpoints, so
// this is the safe way to finish a failed or interrupted run.
func (s *Service) Reingest(ctx context.Context, documentID string) error {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.checkModel(ctx); err != nil {
		return err
	}
	if err := s.store.SetRunStatus(ctx, documentID, store.RunInProgress, ""); err != nil {
		return err
	}
	if err := s.ingest(ctx, documentID, doc.Content); err != nil {
		s.markFailed(ctx, documentID, err)
		return err
	}
	return nil
}

// Status returns the ingestion run state for a document.
func (s *Service) Status(ctx context.Context, documentID string) (store.Run, error) {
	return s.store.GetRun(ctx, documentID)
}

func (s *Service) runDetached(docID, content string) {
	ctx := context.Background()
	if err := s.ingest(ctx, docID, content); err != nil {
		s.markFailed(ctx, docID, err)
	}
}

func (s *Service) ingest(ctx context.Context, docID, content string) error {
	runner, err := workflow.NewSQLiteRunner(s.store.DB(), "ingest:"+docID, s.policy)
	if err != nil {
		return fmt.Errorf("create step runner: %w", err)
	}

	n, err := Run(ctx, runner, Deps{
		Chunks:   s.store,
		Embedder: s.embedder,
		Index:    s.index,
	}, Params{DocumentID: docID, Content: content}, s.opts)
	if err != nil {
		return err
	}

	if n > 0 {
		if err := s.store.SetMeta(ctx, store.MetaEmbeddingModel, s.embedder.Model()); err != nil {
			return fmt.Errorf("record embedding model: %w", err)
		}
	}
	if err := s.store.SetRunStatus(ctx, docID, store.RunCompleted, ""); err != nil {
		return err
	}
	s.log.Info("ingestion completed", "document", docID, "chunks", n)
	return nil
}

func (s *Service) markFailed(ctx context.Context, docID string, cause error) {
	s.log.Error("ingestion failed", "document", docID, "error", cause)
	if err := s.store.SetRunStatus(ctx, docID, store.RunFailed, cause.Error()); err != nil {
		s.log.Error("record run failure", "document", docID, "error", err)
	}
}

// checkModel rejects submissions when the index was built with a
// different embedding model; mixing vector spaces would make retrieval
// silently wrong.
func (s *Service) checkModel(ctx context.Context) error {
	stored, err := s.store.GetMeta(ctx, store.MetaEmbeddingModel)
	if err != nil {
		return fmt.Errorf("get embedding model meta: %w", err)
	}
	if stored != "" && stored != s.embedder.Model() {
		return errs.Invalidf("index was built with embedding model %q, configured model is %q", stored, s.embedder.Model())
	}
	return nil
}
