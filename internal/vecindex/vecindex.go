// Package vecindex stores chunk embeddings in a sqlite-vec virtual table
// and answers nearest-neighbor queries. Entries carry enough chunk
// metadata to build answer context without a second store round-trip.
package vecindex

import (
	"context"
	"database/sql"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"docq/internal/errs"
)

func init() {
	sqlite_vec.Auto()
}

// Metadata is the chunk data duplicated into the index for retrieval.
type Metadata struct {
	DocumentID    string
	SequenceIndex int
	Text          string
}

// Entry is one indexed embedding keyed by chunk id.
type Entry struct {
	ChunkID  string
	Vector   []float32
	Metadata Metadata
}

// Match is a similarity search hit. Lower distance means more similar;
// results are ordered ascending by distance.
type Match struct {
	ChunkID  string
	Distance float64
	Metadata Metadata
}

// Index is a sqlite-vec backed vector index.
type Index struct {
	db   *sql.DB
	dims int
}

// New initializes the vec0 table for the given vector dimension and
// returns the index. The table is created on first use; the dimension must
// match the embedding model's output size.
func New(db *sql.DB, dims int) (*Index, error) {
	if dims <= 0 {
		return nil, errs.Invalidf("vector dimension must be positive, got %d", dims)
	}
	_, err := db.Exec(fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
			chunk_id TEXT PRIMARY KEY,
			embedding float[%d],
			+document_id TEXT,
			+sequence_idx INTEGER,
			+chunk_text TEXT
		)
	`, dims))
	if err != nil {
		return nil, fmt.Errorf("create vec table: %w", err)
	}
	return &Index{db: db, dims: dims}, nil
}

// Upsert stores an entry keyed by chunk id. An existing entry for the same
// id is replaced, so repeated invocations with the same inputs leave
// exactly one row.
func (ix *Index) Upsert(ctx context.Context, e Entry) error {
	if len(e.Vector) != ix.dims {
		return errs.Invalidf("vector for %s has %d dimensions, index expects %d",
			e.ChunkID, len(e.Vector), ix.dims)
	}
	blob, err := sqlite_vec.SerializeFloat32(e.Vector)
	if err != nil {
		return fmt.Errorf("serialize embedding for %s: %w", e.ChunkID, err)
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// vec0 virtual tables do not support ON CONFLICT, so upsert is a
	// delete followed by an insert in one transaction.
	if _, err := tx.ExecContext(ctx, "DELETE FROM vec_chunks WHERE chunk_id = ?", e.ChunkID); err != nil {
		return fmt.Errorf("delete entry %s: %w", e.ChunkID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO vec_chunks (chunk_id, embedding, document_id, sequence_idx, chunk_text)
		VALUES (?, ?, ?, ?, ?)
	`, e.ChunkID, blob, e.Metadata.DocumentID, e.Metadata.SequenceIndex, e.Metadata.Text)
	if err != nil {
		return fmt.Errorf("insert entry %s: %w", e.ChunkID, err)
	}
	return tx.Commit()
}

// Query returns the topK entries nearest to the given vector, most similar
// first. An empty index yields an empty result, not an error.
func (ix *Index) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if len(vector) != ix.dims {
		return nil, errs.Invalidf("query vector has %d dimensions, index expects %d",
			len(vector), ix.dims)
	}
	if topK <= 0 {
		return nil, nil
	}
	blob, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}

	rows, err := ix.db.QueryContext(ctx, `
		SELECT chunk_id, distance, document_id, sequence_idx, chunk_text
		FROM vec_chunks
		WHERE embedding MATCH ?
		ORDER BY distance
		LIMIT ?
	`, blob, topK)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ChunkID, &m.Distance, &m.Metadata.DocumentID,
			&m.Metadata.SequenceIndex, &m.Metadata.Text); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
