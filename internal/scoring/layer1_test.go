package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideascope/internal/models"
	"ideascope/internal/providers"
)

type fakeOracle struct {
	text   string
	usage  providers.TokenUsage
	err    error
	prompt string
}

func (f *fakeOracle) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	f.prompt = req.Prompt
	if f.err != nil {
		return providers.GenerateResponse{}, providers.ProviderInfo{Name: "fake"}, f.err
	}
	return providers.GenerateResponse{Text: f.text, Usage: f.usage}, providers.ProviderInfo{Name: "fake"}, nil
}

type fakeLinker struct {
	matches [][]models.MatchedSection
}

func (f *fakeLinker) BatchSearchSentences(ctx context.Context, runID string, sentences []string, paperID string) [][]models.MatchedSection {
	return f.matches
}

var testPaper = models.Paper{
	PaperID: "paper_01",
	ArxivID: "2401.00001",
	Title:   "A Paper",
}

func TestScorePaperNormalizesResponse(t *testing.T) {
	oracle := &fakeOracle{
		text: "```json\n" + `{
  "overall_overlap_score": 1.4,
  "criteria_scores": {"problem_similarity": 0.7, "method_similarity": -0.2, "domain_overlap": 0.5, "contribution_similarity": 2.0},
  "sentence_level": [
    {"sentence_index": 2, "overlap_score": 0.9, "matched_sections": [{"heading": "METHODS", "reason": "same method", "similarity": 0.8}]},
    {"sentence_index": 0, "overlap_score": -0.3},
    {"sentence_index": 7, "overlap_score": 0.5}
  ]
}` + "\n```",
		usage: providers.TokenUsage{PromptTokens: 100, CompletionTokens: 50},
	}
	s := NewLayer1Scorer(oracle, nil, nil)
	sentences := []string{"s0", "s1", "s2"}

	res, err := s.ScorePaper(context.Background(), "run1", "idea", sentences, testPaper, nil)
	require.NoError(t, err)

	// Out-of-range [0,1] scores clamped.
	assert.InDelta(t, 1.0, res.OverallOverlapScore, 1e-9)
	assert.InDelta(t, 0.0, res.CriteriaScores.MethodSimilarity, 1e-9)
	assert.InDelta(t, 1.0, res.CriteriaScores.ContributionSimilarity, 1e-9)

	// One analysis per sentence, ascending, missing index zero-filled,
	// out-of-range index dropped.
	require.Len(t, res.SentenceAnalyses, 3)
	for i, sa := range res.SentenceAnalyses {
		assert.Equal(t, i, sa.SentenceIndex)
		assert.Equal(t, sentences[i], sa.Sentence)
	}
	assert.Zero(t, res.SentenceAnalyses[0].OverlapScore)
	assert.Zero(t, res.SentenceAnalyses[1].OverlapScore)
	assert.InDelta(t, 0.9, res.SentenceAnalyses[2].OverlapScore, 1e-9)
	assert.Equal(t, "paper_01", res.SentenceAnalyses[2].MatchedSections[0].PaperID)

	assert.Equal(t, 150, res.TokensUsed)
}

func TestScorePaperOverallFallsBackToCriteriaAverage(t *testing.T) {
	oracle := &fakeOracle{
		text: `{"criteria_scores": {"problem_similarity": 0.4, "method_similarity": 0.4, "domain_overlap": 0.4, "contribution_similarity": 0.4}, "sentence_level": []}`,
	}
	s := NewLayer1Scorer(oracle, nil, nil)

	res, err := s.ScorePaper(context.Background(), "run1", "idea", []string{"s0"}, testPaper, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, res.OverallOverlapScore, 1e-9)
}

func TestScorePaperKeepsExplicitZeroOverallScore(t *testing.T) {
	oracle := &fakeOracle{
		text: `{"overall_overlap_score": 0.0, "criteria_scores": {"problem_similarity": 0.8, "method_similarity": 0.8, "domain_overlap": 0.8, "contribution_similarity": 0.8}, "sentence_level": []}`,
	}
	s := NewLayer1Scorer(oracle, nil, nil)

	res, err := s.ScorePaper(context.Background(), "run1", "idea", []string{"s0"}, testPaper, nil)
	require.NoError(t, err)
	// An explicit 0.0 is a score, not an absent field.
	assert.Zero(t, res.OverallOverlapScore)
	assert.InDelta(t, 0.8, res.CriteriaScores.Average(), 1e-9)
}

func TestScorePaperZeroFillsOnGarbage(t *testing.T) {
	oracle := &fakeOracle{text: "I cannot answer that.", usage: providers.TokenUsage{PromptTokens: 10}}
	s := NewLayer1Scorer(oracle, nil, nil)
	sentences := []string{"s0", "s1"}

	res, err := s.ScorePaper(context.Background(), "run1", "idea", sentences, testPaper, nil)
	require.NoError(t, err)
	assert.Zero(t, res.OverallOverlapScore)
	assert.Zero(t, res.CriteriaScores.Average())
	require.Len(t, res.SentenceAnalyses, 2)
	assert.Equal(t, 10, res.TokensUsed)
}

func TestScorePaperPropagatesOracleError(t *testing.T) {
	oracle := &fakeOracle{err: errors.New("429 rate limited")}
	s := NewLayer1Scorer(oracle, nil, nil)

	res, err := s.ScorePaper(context.Background(), "run1", "idea", []string{"s0"}, testPaper, nil)
	require.Error(t, err)
	// Degraded result still usable by the caller that gives up retrying.
	require.Len(t, res.SentenceAnalyses, 1)
}

func TestScorePaperLinksRetrievedEvidence(t *testing.T) {
	oracle := &fakeOracle{
		text: `{"overall_overlap_score": 0.5, "criteria_scores": {}, "sentence_level": [{"sentence_index": 0, "overlap_score": 0.5, "matched_sections": [{"heading": "INTRO", "similarity": 0.5}]}]}`,
	}
	linker := &fakeLinker{matches: [][]models.MatchedSection{{
		{ChunkID: "paper_01_h01_c00", PaperID: "paper_01", Similarity: 0.66, Reason: "semantic similarity: 0.66"},
	}}}
	s := NewLayer1Scorer(oracle, linker, nil)

	res, err := s.ScorePaper(context.Background(), "run1", "idea", []string{"s0"}, testPaper, nil)
	require.NoError(t, err)
	require.Len(t, res.SentenceAnalyses[0].MatchedSections, 1)
	assert.Equal(t, "paper_01_h01_c00", res.SentenceAnalyses[0].MatchedSections[0].ChunkID)
}

func TestBuildLayer1PromptIndexesSentences(t *testing.T) {
	prompt := buildLayer1Prompt("the idea", []string{"first", "second"}, testPaper, []string{"[c1] Intro: text"})
	assert.Contains(t, prompt, "[0] first")
	assert.Contains(t, prompt, "[1] second")
	assert.Contains(t, prompt, "2401.00001")
	assert.Contains(t, prompt, "[c1] Intro: text")
}

func TestBuildLayer1PromptPrefersPaperSections(t *testing.T) {
	paper := testPaper
	paper.Headings = []models.Heading{
		{Text: "Introduction", SectionText: "We study the frobnication problem.", IsValid: true},
		{Text: "Scraps", SectionText: "garbled ocr output", IsValid: false},
		{Text: "Method", SectionText: strings.Repeat("m", 2000), IsValid: true},
	}
	prompt := buildLayer1Prompt("the idea", []string{"first"}, paper, []string{"[c1] retrieved fallback"})

	assert.Contains(t, prompt, "### Introduction")
	assert.Contains(t, prompt, "frobnication problem")
	assert.NotContains(t, prompt, "garbled ocr output")
	assert.NotContains(t, prompt, "retrieved fallback")
	// Long sections capped at 1500 chars.
	assert.Contains(t, prompt, strings.Repeat("m", 1500)+"...")
	assert.NotContains(t, prompt, strings.Repeat("m", 1501))
}

func TestBuildLayer1PromptFallsBackToRetrievedContext(t *testing.T) {
	prompt := buildLayer1Prompt("the idea", []string{"first"}, testPaper, []string{"[c1] retrieved fallback"})
	assert.Contains(t, prompt, "retrieved fallback")

	empty := buildLayer1Prompt("the idea", []string{"first"}, testPaper, nil)
	assert.Contains(t, empty, "No sections extracted")
}
