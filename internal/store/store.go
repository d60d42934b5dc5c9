// Package store persists documents, chunks, and ingestion run state in
// SQLite. All writes are keyed upserts so re-executing a pipeline step
// with the same inputs converges to the same stored state.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"docq/internal/errs"
)

// Store is a SQLite-backed document store.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and
// initializes the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle so the vector index and workflow
// checkpoints can share the same database file.
func (s *Store) DB() *sql.DB { return s.db }

// PutDocument inserts a document, or updates its title and content if the
// id already exists.
func (s *Store) PutDocument(ctx context.Context, d Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, content) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, content = excluded.content
	`, d.ID, d.Title, d.Content)
	if err != nil {
		return fmt.Errorf("put document %s: %w", d.ID, err)
	}
	return nil
}

// GetDocument returns the document with the given id.
func (s *Store) GetDocument(ctx context.Context, id string) (Document, error) {
	var d Document
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, content, created_at FROM documents WHERE id = ?", id,
	).Scan(&d.ID, &d.Title, &d.Content, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("document %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document %s: %w", id, err)
	}
	return d, nil
}

// PutChunk upserts a chunk keyed by its deterministic id. Re-recording the
// same chunk leaves exactly one row with the latest text.
func (s *Store) PutChunk(ctx context.Context, c Chunk) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chunks (id, document_id, sequence_idx, text) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET text = excluded.text
	`, c.ID, c.DocumentID, c.SequenceIndex, c.Text)
	if err != nil {
		return fmt.Errorf("put chunk %s: %w", c.ID, err)
	}
	return nil
}

// GetChunk returns the chunk with the given id.
func (s *Store) GetChunk(ctx context.Context, id string) (Chunk, error) {
	var c Chunk
	err := s.db.QueryRowContext(ctx,
		"SELECT id, document_id, sequence_idx, text, created_at FROM chunks WHERE id = ?", id,
	).Scan(&c.ID, &c.DocumentID, &c.SequenceIndex, &c.Text, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Chunk{}, fmt.Errorf("chunk %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return Chunk{}, fmt.Errorf("get chunk %s: %w", id, err)
	}
	return c, nil
}

// ListChunks returns a document's chunks ordered by sequence index.
func (s *Store) ListChunks(ctx context.Context, documentID string) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, sequence_idx, text, created_at
		FROM chunks WHERE document_id = ? ORDER BY sequence_idx
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks for %s: %w", documentID, err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.SequenceIndex, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// SetRunStatus upserts the ingestion run state for a document.
func (s *Store) SetRunStatus(ctx context.Context, documentID string, status RunStatus, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingestion_runs (document_id, status, error, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(document_id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, documentID, string(status), errMsg)
	if err != nil {
		return fmt.Errorf("set run status for %s: %w", documentID, err)
	}
	return nil
}

// GetRun returns the ingestion run state for a document.
func (s *Store) GetRun(ctx context.Context, documentID string) (Run, error) {
	var r Run
	var status string
	err := s.db.QueryRowContext(ctx,
		"SELECT document_id, status, error, updated_at FROM ingestion_runs WHERE document_id = ?",
		documentID,
	).Scan(&r.DocumentID, &status, &r.Error, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run for document %s: %w", documentID, errs.ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run for %s: %w", documentID, err)
	}
	r.Status = RunStatus(status)
	return r, nil
}

// GetMeta returns a metadata value by key, or "" if not set.
func (s *Store) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetMeta sets a metadata key-value pair.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
