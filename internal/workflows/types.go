package workflows

import "ideascope/internal/models"

type OriginalityInput struct {
	RunID               string `json:"run_id"`
	IdeaText            string `json:"idea_text"`
	MaxConcurrentPapers int    `json:"max_concurrent_papers"`
	PapersPerKeyword    int    `json:"papers_per_keyword"`
	MaxPapers           int    `json:"max_papers"`
	LLMProviders        int    `json:"llm_providers"`
	CooldownSeconds     int    `json:"cooldown_seconds"`
	DeadlineSeconds     int    `json:"deadline_seconds"`
}

// RunProgress is served through the GetProgress query while the run is
// live.
type RunProgress struct {
	RunID       string            `json:"run_id"`
	Stage       string            `json:"stage"`
	Keywords    []string          `json:"keywords,omitempty"`
	TotalPapers int               `json:"total_papers"`
	Done        int               `json:"done"`
	Failed      int               `json:"failed"`
	PerPaper    map[string]string `json:"per_paper"`
}

type PaperAssessInput struct {
	RunID           string       `json:"run_id"`
	IdeaText        string       `json:"idea_text"`
	Sentences       []string     `json:"sentences"`
	Paper           models.Paper `json:"paper"`
	LLMProviders    int          `json:"llm_providers"`
	CooldownSeconds int          `json:"cooldown_seconds"`
}

// PaperAssessOutput always carries a usable result; a paper that could not
// be analyzed reports Status "failed" with a zero-filled result.
type PaperAssessOutput struct {
	Status  string              `json:"status"`
	Result  models.Layer1Result `json:"result"`
	CostUSD float64             `json:"cost_usd"`
}
