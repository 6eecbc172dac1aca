package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

type SearchFilters struct {
	PaperIDs []string
}

// SearchHit is a scored chunk from the run's namespace. Similarity is cosine
// similarity in [0, 1] for normalized embeddings.
type SearchHit struct {
	ChunkID    string  `json:"chunk_id"`
	PaperID    string  `json:"paper_id"`
	PaperTitle string  `json:"paper_title"`
	Heading    string  `json:"heading"`
	Snippet    string  `json:"snippet"`
	Text       string  `json:"text"`
	Abstract   string  `json:"abstract,omitempty"`
	Similarity float64 `json:"similarity"`
	Distance   float64 `json:"distance"`
}

type Searcher struct {
	q Queryer
}

type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func NewSearcher(q Queryer) *Searcher {
	return &Searcher{q: q}
}

func (s *Searcher) SearchChunks(ctx context.Context, runID string, queryVec []float32, topK int, filters SearchFilters) ([]SearchHit, error) {
	if topK <= 0 {
		topK = 5
	}
	vecLiteral := ToLiteral(queryVec)
	args := []any{runID, vecLiteral, topK}

	filterSQL := ""
	if len(filters.PaperIDs) > 0 {
		filterSQL = " AND c.paper_id = ANY($4)"
		args = append(args, filters.PaperIDs)
	}

	query := `
SELECT c.chunk_id,
       c.paper_id,
       COALESCE(p.title, c.paper_id) AS title,
       c.heading,
       LEFT(c.text, 500) AS snippet,
       c.text,
       LEFT(COALESCE(p.abstract, ''), 500) AS abstract,
       1 - (c.embedding <=> $2::vector) AS score,
       c.embedding <=> $2::vector AS distance
FROM chunks c
JOIN papers p ON p.run_id = c.run_id AND p.paper_id = c.paper_id
WHERE c.run_id = $1::uuid
  AND c.embedding IS NOT NULL` + filterSQL + `
ORDER BY c.embedding <=> $2::vector
LIMIT $3`

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	results := make([]SearchHit, 0, topK)
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.ChunkID, &h.PaperID, &h.PaperTitle, &h.Heading, &h.Snippet, &h.Text, &h.Abstract, &h.Similarity, &h.Distance); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		results = append(results, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return results, nil
}

func ToLiteral(v []float32) string {
	parts := make([]string, 0, len(v))
	for _, x := range v {
		parts = append(parts, fmt.Sprintf("%f", x))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
