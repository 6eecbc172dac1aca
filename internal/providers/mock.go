package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
)

// MockProvider serves deterministic embeddings and oracle responses so the
// whole pipeline runs offline. Vectors are seeded from the input text, so
// identical text always lands in the same region of the index.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 1536
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	_ = ctx
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	inputs := applyPrefix("mock", req.Kind, req.Inputs)
	vectors := make([][]float32, 0, len(inputs))
	for _, input := range inputs {
		vectors = append(vectors, deterministicVector(input, dim))
	}
	return vectors, ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", dim), Key: "mock"}, nil
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	_ = ctx
	op := strings.ToLower(req.Operation)
	text := "Mock response."
	switch {
	case strings.Contains(op, "layer1"):
		text = `{"overall_overlap_score": 0.35, "criteria_scores": {"problem_similarity": 0.4, "method_similarity": 0.3, "domain_overlap": 0.5, "contribution_similarity": 0.2}, "sentence_level": [{"sentence_index": 0, "overlap_score": 0.35, "matched_sections": [{"heading": "Introduction", "reason": "Deterministic mock analysis.", "similarity": 0.35}]}]}`
	case strings.Contains(op, "keyword"):
		text = `["retrieval", "language models", "originality", "embeddings", "evaluation", "benchmarks", "analysis"]`
	case strings.Contains(op, "summary"):
		text = "The idea shows moderate overlap with prior work. Deterministic mock summary; replace with a real provider for semantic quality."
	case strings.Contains(op, "reality"):
		text = `{"already_exists": false, "confidence": 0.2, "existing_examples": [], "assessment": "Deterministic mock assessment: no well-known match.", "novelty_aspects": [], "recommendation": "Verify against known products manually."}`
	case strings.Contains(op, "followup"):
		text = `{"questions": [{"id": 1, "category": "problem", "question": "What specific problem does the idea address?"}, {"id": 2, "category": "method", "question": "What approach do you propose?"}, {"id": 3, "category": "novelty", "question": "What makes this different from existing work?"}]}`
	}
	usage := TokenUsage{
		PromptTokens:     len(strings.Fields(req.Prompt)),
		CompletionTokens: len(strings.Fields(text)),
	}
	return GenerateResponse{Text: text, Usage: usage}, ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}, nil
}

func deterministicVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := []byte(input)
	if len(seed) == 0 {
		seed = []byte("empty")
	}
	for i := 0; i < dim; i++ {
		h := sha256.Sum256(append(seed, byte(i%251)))
		u := binary.BigEndian.Uint32(h[:4])
		v := float32(u%2000)/1000.0 - 1.0
		vec[i] = v
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / (float64(sum) + 1e-9))
	for i := range v {
		v[i] *= inv
	}
	return v
}
