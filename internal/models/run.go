package models

import "time"

type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one originality assessment: an idea text plus everything derived
// from it. Papers, chunks and vectors are namespaced by RunID so concurrent
// runs never see each other's evidence.
type Run struct {
	RunID      string        `json:"run_id"`
	IdeaText   string        `json:"idea_text"`
	Status     RunStatus     `json:"status"`
	Keywords   []string      `json:"keywords,omitempty"`
	Result     *Layer2Result `json:"result,omitempty"`
	FailReason string        `json:"fail_reason,omitempty"`
	WorkflowID string        `json:"workflow_id,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}
