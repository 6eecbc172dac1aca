package providers

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

type GenerateRequest struct {
	Operation string   `json:"operation"`
	Prompt    string   `json:"prompt"`
	Context   []string `json:"context"`
}

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

func (u TokenUsage) Total() int { return u.PromptTokens + u.CompletionTokens }

type GenerateResponse struct {
	Text  string     `json:"text"`
	Usage TokenUsage `json:"usage"`
}

// EmbedKind distinguishes stored documents from search queries so that
// asymmetric embedding models (e5, nomic) get the right instruction prefix.
type EmbedKind string

const (
	EmbedDocument EmbedKind = "document"
	EmbedQuery    EmbedKind = "query"
)

type EmbedRequest struct {
	Operation string    `json:"operation"`
	Kind      EmbedKind `json:"kind"`
	Inputs    []string  `json:"inputs"`
	Dimension int       `json:"dimension"`
}

type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error)
}

type EmbeddingProvider interface {
	Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error)
}
