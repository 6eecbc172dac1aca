package storage

import (
	"context"
	"fmt"

	"ideascope/internal/models"
)

type PaperRepo struct {
	db *DB
}

func NewPaperRepo(db *DB) *PaperRepo {
	return &PaperRepo{db: db}
}

func (r *PaperRepo) UpsertPaper(ctx context.Context, runID string, p models.Paper) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO papers (paper_id, run_id, arxiv_id, title, abstract, url, pdf_url, authors, categories, published_date, is_processed, processing_error)
VALUES ($1, $2::uuid, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), NULLIF($6,''), NULLIF($7,''), $8, $9, NULLIF($10,''), $11, NULLIF($12,''))
ON CONFLICT (run_id, paper_id)
DO UPDATE SET
  title = COALESCE(EXCLUDED.title, papers.title),
  abstract = COALESCE(EXCLUDED.abstract, papers.abstract),
  url = COALESCE(EXCLUDED.url, papers.url),
  pdf_url = COALESCE(EXCLUDED.pdf_url, papers.pdf_url),
  authors = EXCLUDED.authors,
  categories = EXCLUDED.categories,
  published_date = EXCLUDED.published_date,
  is_processed = EXCLUDED.is_processed,
  processing_error = EXCLUDED.processing_error,
  updated_at = NOW()`,
		p.PaperID, runID, p.ArxivID, p.Title, p.Abstract, p.URL, p.PDFURL,
		p.Authors, p.Categories, p.PublishedDate, p.IsProcessed, p.ProcessingError,
	)
	if err != nil {
		return fmt.Errorf("upsert paper: %w", err)
	}
	return nil
}

func (r *PaperRepo) MarkProcessed(ctx context.Context, runID, paperID string, processingError string) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE papers
SET is_processed = ($3 = ''), processing_error = NULLIF($3,''), updated_at = NOW()
WHERE run_id=$1::uuid AND paper_id=$2`, runID, paperID, processingError)
	if err != nil {
		return fmt.Errorf("mark paper processed: %w", err)
	}
	return nil
}

func (r *PaperRepo) ListPapersByRun(ctx context.Context, runID string) ([]models.Paper, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT paper_id, COALESCE(arxiv_id,''), COALESCE(title,''), COALESCE(abstract,''),
       COALESCE(url,''), COALESCE(pdf_url,''), COALESCE(authors,'{}'), COALESCE(categories,'{}'),
       COALESCE(published_date,''), is_processed, COALESCE(processing_error,'')
FROM papers
WHERE run_id=$1::uuid
ORDER BY created_at ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list papers by run: %w", err)
	}
	defer rows.Close()

	out := make([]models.Paper, 0)
	for rows.Next() {
		var p models.Paper
		if err := rows.Scan(&p.PaperID, &p.ArxivID, &p.Title, &p.Abstract,
			&p.URL, &p.PDFURL, &p.Authors, &p.Categories,
			&p.PublishedDate, &p.IsProcessed, &p.ProcessingError); err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate papers: %w", err)
	}
	return out, nil
}

func (r *PaperRepo) GetPaper(ctx context.Context, runID, paperID string) (models.Paper, error) {
	var p models.Paper
	err := r.db.Pool.QueryRow(ctx, `
SELECT paper_id, COALESCE(arxiv_id,''), COALESCE(title,''), COALESCE(abstract,''),
       COALESCE(url,''), COALESCE(pdf_url,''), COALESCE(authors,'{}'), COALESCE(categories,'{}'),
       COALESCE(published_date,''), is_processed, COALESCE(processing_error,'')
FROM papers
WHERE run_id=$1::uuid AND paper_id=$2`, runID, paperID).
		Scan(&p.PaperID, &p.ArxivID, &p.Title, &p.Abstract,
			&p.URL, &p.PDFURL, &p.Authors, &p.Categories,
			&p.PublishedDate, &p.IsProcessed, &p.ProcessingError)
	if err != nil {
		return models.Paper{}, fmt.Errorf("get paper: %w", err)
	}
	return p, nil
}
