package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"ideascope/internal/models"
)

type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

func (r *RunRepo) CreateRun(ctx context.Context, run models.Run) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO runs (run_id, idea_text, status, workflow_id)
VALUES ($1::uuid, $2, $3, NULLIF($4,''))`,
		run.RunID, run.IdeaText, string(run.Status), run.WorkflowID)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *RunRepo) UpdateStatus(ctx context.Context, runID string, status models.RunStatus, failReason string) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE runs SET status=$2, fail_reason=NULLIF($3,''), updated_at=NOW() WHERE run_id=$1::uuid`,
		runID, string(status), failReason)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return nil
}

func (r *RunRepo) SetKeywords(ctx context.Context, runID string, keywords []string) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE runs SET keywords=$2, updated_at=NOW() WHERE run_id=$1::uuid`, runID, keywords)
	if err != nil {
		return fmt.Errorf("set run keywords: %w", err)
	}
	return nil
}

func (r *RunRepo) SaveResult(ctx context.Context, runID string, result models.Layer2Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal run result: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
UPDATE runs SET result=$2::jsonb, status='completed', updated_at=NOW() WHERE run_id=$1::uuid`,
		runID, string(payload))
	if err != nil {
		return fmt.Errorf("save run result: %w", err)
	}
	return nil
}

func (r *RunRepo) GetRun(ctx context.Context, runID string) (models.Run, error) {
	var (
		run        models.Run
		status     string
		resultJSON *string
	)
	err := r.db.Pool.QueryRow(ctx, `
SELECT run_id::text, idea_text, status, COALESCE(keywords, '{}'), result::text,
       COALESCE(fail_reason,''), COALESCE(workflow_id,''), created_at, updated_at
FROM runs
WHERE run_id=$1::uuid`, runID).
		Scan(&run.RunID, &run.IdeaText, &status, &run.Keywords, &resultJSON,
			&run.FailReason, &run.WorkflowID, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return models.Run{}, fmt.Errorf("get run: %w", err)
	}
	run.Status = models.RunStatus(status)
	if resultJSON != nil && *resultJSON != "" {
		var res models.Layer2Result
		if err := json.Unmarshal([]byte(*resultJSON), &res); err != nil {
			return models.Run{}, fmt.Errorf("decode run result: %w", err)
		}
		run.Result = &res
	}
	return run, nil
}

func (r *RunRepo) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT run_id::text, idea_text, status, COALESCE(keywords, '{}'),
       COALESCE(fail_reason,''), COALESCE(workflow_id,''), created_at, updated_at
FROM runs
ORDER BY created_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := make([]models.Run, 0, limit)
	for rows.Next() {
		var (
			run    models.Run
			status string
		)
		if err := rows.Scan(&run.RunID, &run.IdeaText, &status, &run.Keywords,
			&run.FailReason, &run.WorkflowID, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = models.RunStatus(status)
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}
