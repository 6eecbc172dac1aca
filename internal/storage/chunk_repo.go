package storage

import (
	"context"
	"fmt"

	"ideascope/internal/models"
)

type ChunkRecord struct {
	ChunkID         string
	RunID           string
	PaperID         string
	Heading         string
	HeadingIndex    int
	ChunkIndex      int
	Text            string
	EmbeddingVector *string
}

type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func (r *ChunkRepo) UpsertChunks(ctx context.Context, chunks []ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx upsert chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, c := range chunks {
		_, err := tx.Exec(ctx, `
INSERT INTO chunks (chunk_id, run_id, paper_id, heading, heading_index, chunk_index, text, embedding)
VALUES ($1, $2::uuid, $3, $4, $5, $6, $7, CASE WHEN $8::text IS NULL THEN NULL ELSE $8::vector END)
ON CONFLICT (run_id, chunk_id)
DO UPDATE SET
  text = EXCLUDED.text,
  heading = EXCLUDED.heading,
  embedding = COALESCE(EXCLUDED.embedding, chunks.embedding)`,
			c.ChunkID, c.RunID, c.PaperID, c.Heading, c.HeadingIndex, c.ChunkIndex, c.Text, c.EmbeddingVector,
		)
		if err != nil {
			return fmt.Errorf("upsert chunk %s: %w", c.ChunkID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

func (r *ChunkRepo) ListChunksByPaper(ctx context.Context, runID, paperID string) ([]models.Chunk, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT chunk_id, paper_id, heading, heading_index, chunk_index, text
FROM chunks
WHERE run_id=$1::uuid AND paper_id=$2
ORDER BY heading_index ASC, chunk_index ASC`, runID, paperID)
	if err != nil {
		return nil, fmt.Errorf("list chunks by paper: %w", err)
	}
	defer rows.Close()
	out := make([]models.Chunk, 0, 64)
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ChunkID, &c.PaperID, &c.Heading, &c.HeadingIndex, &c.ChunkIndex, &c.Text); err != nil {
			return nil, fmt.Errorf("scan chunk by paper: %w", err)
		}
		c.IsValid = true
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk by paper: %w", err)
	}
	return out, nil
}

func (r *ChunkRepo) CountByRun(ctx context.Context, runID string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM chunks WHERE run_id=$1::uuid`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// DeleteByRun removes every chunk in a run's namespace. Deleting a namespace
// that was never populated is a no-op.
func (r *ChunkRepo) DeleteByRun(ctx context.Context, runID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM chunks WHERE run_id=$1::uuid`, runID)
	if err != nil {
		return fmt.Errorf("delete chunks by run: %w", err)
	}
	return nil
}
