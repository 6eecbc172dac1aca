package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"ideascope/internal/models"
	"ideascope/internal/providers"
)

const layer1Instructions = `You are an academic originality assessor. Evaluate how similar a research paper is to a user's research idea.

Score each criterion from 0.0 to 1.0, where higher means MORE SIMILAR and therefore LESS ORIGINAL:
1. problem_similarity: how similar is the research problem or question?
2. method_similarity: how similar is the proposed method or approach?
3. domain_overlap: how much do the application domains overlap?
4. contribution_similarity: how similar are the claimed contributions?

For EACH sentence in the user's idea, evaluate:
- overlap_score: how much this specific sentence overlaps with paper content (0.0-1.0)
- matched_sections: which paper sections relate to this sentence

Return ONLY valid JSON:
{
  "overall_overlap_score": 0.45,
  "criteria_scores": {
    "problem_similarity": 0.70,
    "method_similarity": 0.20,
    "domain_overlap": 0.50,
    "contribution_similarity": 0.40
  },
  "sentence_level": [
    {
      "sentence_index": 0,
      "sentence": "The user's first sentence.",
      "overlap_score": 0.65,
      "matched_sections": [
        {"heading": "INTRODUCTION", "reason": "Similar problem statement", "similarity": 0.68}
      ]
    }
  ],
  "analysis_notes": "Brief explanation of key overlaps and differences"
}

Guidelines:
- Be objective and evidence-based; reference only provided paper content.
- overall_overlap_score is a weighted average: problem(0.3) + method(0.3) + domain(0.2) + contribution(0.2).
- Include ALL sentences from the user's idea in sentence_level.`

// layer1Response is the oracle's JSON schema for per-paper analysis.
type layer1Response struct {
	// Pointer so an explicit 0.0 from the oracle survives; only a missing
	// field falls back to the criteria average.
	OverallOverlapScore *float64 `json:"overall_overlap_score"`
	CriteriaScores      struct {
		ProblemSimilarity      float64 `json:"problem_similarity"`
		MethodSimilarity       float64 `json:"method_similarity"`
		DomainOverlap          float64 `json:"domain_overlap"`
		ContributionSimilarity float64 `json:"contribution_similarity"`
	} `json:"criteria_scores"`
	SentenceLevel []struct {
		SentenceIndex   int     `json:"sentence_index"`
		Sentence        string  `json:"sentence"`
		OverlapScore    float64 `json:"overlap_score"`
		MatchedSections []struct {
			Heading    string  `json:"heading"`
			Reason     string  `json:"reason"`
			Similarity float64 `json:"similarity"`
		} `json:"matched_sections"`
	} `json:"sentence_level"`
	AnalysisNotes string `json:"analysis_notes"`
}

// MatchLinker attaches real retrieved evidence to sentence analyses; the
// oracle only names headings, the index knows the chunks.
type MatchLinker interface {
	BatchSearchSentences(ctx context.Context, runID string, sentences []string, paperID string) [][]models.MatchedSection
}

// Layer1Scorer runs per-paper originality analysis through the oracle.
type Layer1Scorer struct {
	oracle providers.LLMProvider
	linker MatchLinker
	logger *slog.Logger
}

func NewLayer1Scorer(oracle providers.LLMProvider, linker MatchLinker, logger *slog.Logger) *Layer1Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Layer1Scorer{oracle: oracle, linker: linker, logger: logger}
}

// ScorePaper analyzes one paper against the idea. Oracle transport failures
// propagate so the caller can retry or fail over; a malformed response
// degrades to a zero-filled result instead of failing the run.
func (s *Layer1Scorer) ScorePaper(ctx context.Context, runID, ideaText string, sentences []string, paper models.Paper, paperContext []string) (models.Layer1Result, error) {
	prompt := buildLayer1Prompt(ideaText, sentences, paper, paperContext)

	resp, info, err := s.oracle.Generate(ctx, providers.GenerateRequest{
		Operation: "layer1_score",
		Prompt:    prompt,
	})
	if err != nil {
		return ZeroLayer1Result(paper, sentences), fmt.Errorf("layer1 oracle for %s: %w", paper.PaperID, err)
	}

	var parsed layer1Response
	if err := json.Unmarshal([]byte(ExtractJSON(resp.Text)), &parsed); err != nil {
		s.logger.Warn("layer1 response unparseable, zero-filling",
			"run_id", runID, "paper_id", paper.PaperID, "provider", info.Name, "err", err)
		res := ZeroLayer1Result(paper, sentences)
		res.TokensUsed = resp.Usage.Total()
		return res, nil
	}

	result := s.normalize(parsed, paper, sentences)
	result.TokensUsed = resp.Usage.Total()

	if s.linker != nil {
		linked := s.linker.BatchSearchSentences(ctx, runID, sentences, paper.PaperID)
		for i := range result.SentenceAnalyses {
			idx := result.SentenceAnalyses[i].SentenceIndex
			if idx < len(linked) && len(linked[idx]) > 0 {
				result.SentenceAnalyses[i].MatchedSections = linked[idx]
			}
		}
	}
	return result, nil
}

// normalize coerces the oracle output into a well-formed result: scores
// clamped to [0,1], one analysis per sentence in ascending index order,
// missing sentences zero-filled, out-of-range indices dropped.
func (s *Layer1Scorer) normalize(parsed layer1Response, paper models.Paper, sentences []string) models.Layer1Result {
	criteria := models.CriteriaScores{
		ProblemSimilarity:      clamp01(parsed.CriteriaScores.ProblemSimilarity),
		MethodSimilarity:       clamp01(parsed.CriteriaScores.MethodSimilarity),
		DomainOverlap:          clamp01(parsed.CriteriaScores.DomainOverlap),
		ContributionSimilarity: clamp01(parsed.CriteriaScores.ContributionSimilarity),
	}

	analyses := make([]models.SentenceAnalysis, 0, len(sentences))
	seen := make(map[int]bool, len(sentences))
	for _, sl := range parsed.SentenceLevel {
		if sl.SentenceIndex < 0 || sl.SentenceIndex >= len(sentences) || seen[sl.SentenceIndex] {
			continue
		}
		seen[sl.SentenceIndex] = true

		matched := make([]models.MatchedSection, 0, len(sl.MatchedSections))
		for _, m := range sl.MatchedSections {
			matched = append(matched, models.MatchedSection{
				PaperID:    paper.PaperID,
				PaperTitle: paper.Title,
				Heading:    m.Heading,
				Similarity: clamp01(m.Similarity),
				Reason:     m.Reason,
			})
		}

		sentence := sl.Sentence
		if sentence == "" {
			sentence = sentences[sl.SentenceIndex]
		}
		analyses = append(analyses, models.SentenceAnalysis{
			Sentence:        sentence,
			SentenceIndex:   sl.SentenceIndex,
			OverlapScore:    clamp01(sl.OverlapScore),
			MatchedSections: matched,
		})
	}
	for i, sent := range sentences {
		if !seen[i] {
			analyses = append(analyses, models.SentenceAnalysis{
				Sentence:      sent,
				SentenceIndex: i,
			})
		}
	}
	sort.Slice(analyses, func(i, j int) bool { return analyses[i].SentenceIndex < analyses[j].SentenceIndex })

	overall := criteria.Average()
	if parsed.OverallOverlapScore != nil {
		overall = clamp01(*parsed.OverallOverlapScore)
	}

	return models.Layer1Result{
		PaperID:             paper.PaperID,
		PaperTitle:          paper.Title,
		ArxivID:             paper.ArxivID,
		OverallOverlapScore: overall,
		CriteriaScores:      criteria,
		SentenceAnalyses:    analyses,
	}
}

// ZeroLayer1Result is the degraded outcome of an analysis that produced no
// usable scores: everything zero, one empty analysis per sentence.
func ZeroLayer1Result(paper models.Paper, sentences []string) models.Layer1Result {
	analyses := make([]models.SentenceAnalysis, 0, len(sentences))
	for i, sent := range sentences {
		analyses = append(analyses, models.SentenceAnalysis{
			Sentence:      sent,
			SentenceIndex: i,
		})
	}
	return models.Layer1Result{
		PaperID:          paper.PaperID,
		PaperTitle:       paper.Title,
		ArxivID:          paper.ArxivID,
		SentenceAnalyses: analyses,
	}
}

func buildLayer1Prompt(ideaText string, sentences []string, paper models.Paper, paperContext []string) string {
	b := strings.Builder{}
	b.WriteString(layer1Instructions)
	b.WriteString("\n\n## USER'S RESEARCH IDEA\n")
	b.WriteString(ideaText)
	b.WriteString("\n\n## USER'S IDEA SENTENCES (analyze each one)\n")
	for i, s := range sentences {
		fmt.Fprintf(&b, "[%d] %s\n", i, s)
	}
	fmt.Fprintf(&b, "\n## PAPER TO ANALYZE\nPaper ID: %s\nArXiv ID: %s\nTitle: %s\nCategories: %s\n",
		paper.PaperID, paper.ArxivID, paper.Title, strings.Join(paper.Categories, ", "))
	b.WriteString("\n### ABSTRACT\n")
	b.WriteString(paper.Abstract)
	b.WriteString("\n\n### EXTRACTED SECTIONS\n")
	// Prefer the paper's own extracted sections; retrieved context is the
	// fallback when processing yielded none.
	sections := extractedSections(paper)
	switch {
	case sections != "":
		b.WriteString(sections)
	case len(paperContext) > 0:
		b.WriteString(strings.Join(paperContext, "\n\n"))
	default:
		b.WriteString("No sections extracted")
	}
	b.WriteString("\n\nReturn valid JSON only.")
	return b.String()
}

func extractedSections(paper models.Paper) string {
	b := strings.Builder{}
	for _, h := range paper.Headings {
		if !h.IsValid || strings.TrimSpace(h.SectionText) == "" {
			continue
		}
		text := h.SectionText
		if len(text) > 1500 {
			text = text[:1500] + "..."
		}
		fmt.Fprintf(&b, "### %s\n%s\n\n", h.Text, text)
	}
	return strings.TrimSpace(b.String())
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
