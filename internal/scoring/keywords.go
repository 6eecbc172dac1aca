package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"ideascope/internal/providers"
)

const keywordInstructions = `You are an academic search specialist for arXiv literature reviews.

Analyze the research idea and identify %d search topics: specific terms first (precise methods, techniques, domain concepts), then broad terms (general fields, overarching areas). Translate the idea into standard academic terminology used in paper titles and abstracts; do not just extract phrases.

Return ONLY valid JSON, an array of strings:
["specific term 1", "specific term 2", "broad term 1"]

Each term is 1-4 words. Avoid repetition.`

// KeywordExtractor turns the idea text into arXiv search terms. When the
// oracle fails or returns garbage, a frequency-based fallback keeps the
// pipeline moving.
type KeywordExtractor struct {
	oracle      providers.LLMProvider
	numKeywords int
	logger      *slog.Logger
}

func NewKeywordExtractor(oracle providers.LLMProvider, numKeywords int, logger *slog.Logger) *KeywordExtractor {
	if numKeywords <= 0 {
		numKeywords = 7
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KeywordExtractor{oracle: oracle, numKeywords: numKeywords, logger: logger}
}

func (k *KeywordExtractor) Extract(ctx context.Context, ideaText string) ([]string, providers.TokenUsage, error) {
	prompt := fmt.Sprintf(keywordInstructions, k.numKeywords) + "\n\n## RESEARCH IDEA\n" + ideaText

	resp, info, err := k.oracle.Generate(ctx, providers.GenerateRequest{
		Operation: "keywords",
		Prompt:    prompt,
	})
	if err != nil {
		k.logger.Warn("keyword oracle failed, using frequency fallback",
			"provider", info.Name, "err", err)
		return FallbackKeywords(ideaText, k.numKeywords), providers.TokenUsage{}, nil
	}

	keywords := parseKeywordList(resp.Text)
	if len(keywords) == 0 {
		k.logger.Warn("keyword response unparseable, using frequency fallback",
			"provider", info.Name)
		return FallbackKeywords(ideaText, k.numKeywords), resp.Usage, nil
	}
	if len(keywords) > k.numKeywords {
		keywords = keywords[:k.numKeywords]
	}
	return keywords, resp.Usage, nil
}

func parseKeywordList(text string) []string {
	raw := ExtractJSON(text)

	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return cleanKeywords(list)
	}
	var obj struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		return cleanKeywords(obj.Keywords)
	}
	return nil
}

func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, kw := range in {
		kw = strings.TrimSpace(kw)
		key := strings.ToLower(kw)
		if kw == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, kw)
	}
	return out
}

// FallbackKeywords picks the most frequent non-stopword terms from the idea
// text. Crude, but good enough to run a search when no oracle is reachable.
func FallbackKeywords(ideaText string, n int) []string {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, w := range strings.Fields(strings.ToLower(ideaText)) {
		w = strings.Trim(w, ".,;:!?()[]\"'")
		if len(w) < 4 || stopwords[w] {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

var stopwords = map[string]bool{
	"about": true, "after": true, "also": true, "been": true, "before": true,
	"being": true, "between": true, "both": true, "could": true, "down": true,
	"each": true, "from": true, "have": true, "having": true, "here": true,
	"into": true, "more": true, "most": true, "other": true, "over": true,
	"same": true, "should": true, "some": true, "such": true, "than": true,
	"that": true, "their": true, "them": true, "then": true, "there": true,
	"these": true, "they": true, "this": true, "through": true, "under": true,
	"using": true, "very": true, "want": true, "well": true, "were": true,
	"what": true, "when": true, "where": true, "which": true, "while": true,
	"with": true, "would": true, "your": true,
}
