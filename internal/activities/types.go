package activities

import "ideascope/internal/models"

type UpdateRunStatusInput struct {
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	FailReason string `json:"fail_reason,omitempty"`
}

type ClearIndexInput struct {
	RunID string `json:"run_id"`
}

type SplitSentencesInput struct {
	IdeaText string `json:"idea_text"`
}

type SplitSentencesOutput struct {
	Sentences []string `json:"sentences"`
}

type ExtractKeywordsInput struct {
	RunID    string `json:"run_id"`
	IdeaText string `json:"idea_text"`
}

type ExtractKeywordsOutput struct {
	Keywords []string `json:"keywords"`
	CostUSD  float64  `json:"cost_usd"`
}

type DiscoverPapersInput struct {
	RunID            string   `json:"run_id"`
	Keywords         []string `json:"keywords"`
	PapersPerKeyword int      `json:"papers_per_keyword"`
	MaxPapers        int      `json:"max_papers"`
}

type DiscoverPapersOutput struct {
	Papers []models.Paper `json:"papers"`
}

type ProcessPaperInput struct {
	RunID string       `json:"run_id"`
	Paper models.Paper `json:"paper"`
}

type ProcessPaperOutput struct {
	Paper       models.Paper `json:"paper"`
	TotalChunks int          `json:"total_chunks"`
	ValidChunks int          `json:"valid_chunks"`
}

type IndexPaperInput struct {
	RunID string       `json:"run_id"`
	Paper models.Paper `json:"paper"`
}

type IndexPaperOutput struct {
	ChunksIndexed int `json:"chunks_indexed"`
}

type Layer1ScoreInput struct {
	RunID         string       `json:"run_id"`
	IdeaText      string       `json:"idea_text"`
	Sentences     []string     `json:"sentences"`
	Paper         models.Paper `json:"paper"`
	ProviderIndex int          `json:"provider_index"`
}

type Layer1ScoreOutput struct {
	Result       models.Layer1Result `json:"result"`
	ProviderName string              `json:"provider_name"`
	Model        string              `json:"model"`
	CostUSD      float64             `json:"cost_usd"`
}

type RealityCheckInput struct {
	RunID    string `json:"run_id"`
	IdeaText string `json:"idea_text"`
}

type RealityCheckOutput struct {
	Result  models.RealityCheckResult `json:"result"`
	CostUSD float64                   `json:"cost_usd"`
}

type AggregateInput struct {
	RunID        string                     `json:"run_id"`
	Results      []models.Layer1Result      `json:"results"`
	Sentences    []string                   `json:"sentences"`
	Cost         models.CostBreakdown       `json:"cost"`
	RealityCheck *models.RealityCheckResult `json:"reality_check,omitempty"`
}

type AggregateOutput struct {
	Result models.Layer2Result `json:"result"`
}

type SetRunKeywordsInput struct {
	RunID    string   `json:"run_id"`
	Keywords []string `json:"keywords"`
}

type SaveResultInput struct {
	RunID  string              `json:"run_id"`
	Result models.Layer2Result `json:"result"`
}

type SaveResultOutput struct {
	ReportPath string `json:"report_path"`
}

type LogOracleCallInput struct {
	Operation        string  `json:"operation"`
	RunID            string  `json:"run_id"`
	PaperID          string  `json:"paper_id,omitempty"`
	ProviderName     string  `json:"provider_name"`
	Model            string  `json:"model,omitempty"`
	Status           string  `json:"status"`
	ErrorType        string  `json:"error_type,omitempty"`
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	CostUSD          float64 `json:"cost_usd,omitempty"`
}
