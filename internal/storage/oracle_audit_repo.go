package storage

import (
	"context"
	"fmt"
)

// OracleCallRecord is one row of the oracle audit trail: which provider
// answered which operation for which paper, with token counts for cost
// accounting.
type OracleCallRecord struct {
	CallID           string
	Operation        string
	RunID            string
	PaperID          string
	ProviderName     string
	Model            string
	Status           string
	ErrorType        string
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
}

type OracleAuditRepo struct {
	db *DB
}

func NewOracleAuditRepo(db *DB) *OracleAuditRepo {
	return &OracleAuditRepo{db: db}
}

func (r *OracleAuditRepo) Insert(ctx context.Context, rec OracleCallRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO oracle_calls(call_id, operation, run_id, paper_id, provider_name, model, status, error_type, prompt_tokens, completion_tokens, cost_usd)
VALUES (COALESCE(NULLIF($1,'')::uuid, gen_random_uuid()), $2, NULLIF($3,'')::uuid, NULLIF($4,''), $5, $6, $7, NULLIF($8,''), $9, $10, $11)`,
		rec.CallID, rec.Operation, rec.RunID, rec.PaperID, rec.ProviderName, rec.Model,
		rec.Status, rec.ErrorType, rec.PromptTokens, rec.CompletionTokens, rec.CostUSD)
	if err != nil {
		return fmt.Errorf("insert oracle call: %w", err)
	}
	return nil
}

func (r *OracleAuditRepo) TotalCostByRun(ctx context.Context, runID string) (float64, error) {
	var total float64
	err := r.db.Pool.QueryRow(ctx, `
SELECT COALESCE(SUM(cost_usd), 0) FROM oracle_calls WHERE run_id=$1::uuid`, runID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total oracle cost: %w", err)
	}
	return total, nil
}
