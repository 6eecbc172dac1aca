package scoring

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideascope/internal/models"
)

func testAggregator() *Aggregator {
	return NewAggregator(0.7, 0.4, 40, 70, nil, nil)
}

func resultWithOverlaps(paperID string, overlaps []float64) models.Layer1Result {
	analyses := make([]models.SentenceAnalysis, len(overlaps))
	for i, o := range overlaps {
		analyses[i] = models.SentenceAnalysis{
			Sentence:      fmt.Sprintf("sentence %d", i),
			SentenceIndex: i,
			OverlapScore:  o,
		}
	}
	return models.Layer1Result{
		PaperID:          paperID,
		SentenceAnalyses: analyses,
		CriteriaScores:   models.CriteriaScores{ProblemSimilarity: 0.5, MethodSimilarity: 0.5, DomainOverlap: 0.5, ContributionSimilarity: 0.5},
	}
}

func TestAggregateScenario(t *testing.T) {
	// Worst-case per-sentence overlaps 0.8, 0.2, 0.9 across two papers.
	a := testAggregator()
	sentences := []string{"sentence 0", "sentence 1", "sentence 2"}
	results := []models.Layer1Result{
		resultWithOverlaps("p1", []float64{0.8, 0.1, 0.3}),
		resultWithOverlaps("p2", []float64{0.5, 0.2, 0.9}),
	}

	res := a.Aggregate(context.Background(), results, sentences, models.CostBreakdown{})

	require.Len(t, res.SentenceAnnotations, 3)
	assert.Equal(t, models.LabelLow, res.SentenceAnnotations[0].Label)
	assert.Equal(t, models.LabelHigh, res.SentenceAnnotations[1].Label)
	assert.Equal(t, models.LabelLow, res.SentenceAnnotations[2].Label)

	assert.InDelta(t, (0.8+0.2+0.9)/3, res.GlobalOverlapScore, 1e-9)
	assert.Equal(t, 37, res.GlobalOriginalityScore)
	assert.Equal(t, models.LabelLow, res.Label)
	assert.Equal(t, 2, res.PapersAnalyzed)
}

func TestOverlapToLabelBoundariesInclusive(t *testing.T) {
	a := testAggregator()
	assert.Equal(t, models.LabelLow, a.OverlapToLabel(0.7))
	assert.Equal(t, models.LabelMedium, a.OverlapToLabel(0.69999))
	assert.Equal(t, models.LabelMedium, a.OverlapToLabel(0.4))
	assert.Equal(t, models.LabelHigh, a.OverlapToLabel(0.39999))
	assert.Equal(t, models.LabelHigh, a.OverlapToLabel(0.0))
}

func TestScoreToLabelBoundariesInclusive(t *testing.T) {
	a := testAggregator()
	assert.Equal(t, models.LabelHigh, a.ScoreToLabel(70))
	assert.Equal(t, models.LabelMedium, a.ScoreToLabel(69))
	assert.Equal(t, models.LabelMedium, a.ScoreToLabel(40))
	assert.Equal(t, models.LabelLow, a.ScoreToLabel(39))
}

func TestOverlapToOriginalityBoundsAndMonotonicity(t *testing.T) {
	assert.Equal(t, 100, OverlapToOriginality(0))
	assert.Equal(t, 0, OverlapToOriginality(1))
	assert.Equal(t, 37, OverlapToOriginality(0.6333333))

	prev := 101
	for o := 0.0; o <= 1.0; o += 0.05 {
		score := OverlapToOriginality(o)
		assert.LessOrEqual(t, score, prev)
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
		prev = score
	}
}

func TestAggregateEmptyResults(t *testing.T) {
	a := testAggregator()
	sentences := []string{"first idea sentence", "second idea sentence"}

	res := a.Aggregate(context.Background(), nil, sentences, models.CostBreakdown{})
	assert.Equal(t, 100, res.GlobalOriginalityScore)
	assert.Equal(t, models.LabelHigh, res.Label)
	assert.Equal(t, 0, res.PapersAnalyzed)
	assert.Equal(t, emptyRunSummary, res.Summary)
	require.Len(t, res.SentenceAnnotations, 2)
	for _, ann := range res.SentenceAnnotations {
		assert.Equal(t, models.LabelHigh, ann.Label)
		assert.InDelta(t, 1.0, ann.OriginalityScore, 1e-9)
	}
}

func TestAnnotateSentencesTopFiveEvidence(t *testing.T) {
	a := testAggregator()
	matches := make([]models.MatchedSection, 8)
	for i := range matches {
		matches[i] = models.MatchedSection{ChunkID: fmt.Sprintf("c%d", i), Similarity: float64(i) / 10}
	}
	results := []models.Layer1Result{{
		PaperID: "p1",
		SentenceAnalyses: []models.SentenceAnalysis{{
			SentenceIndex:   0,
			OverlapScore:    0.5,
			MatchedSections: matches,
		}},
	}}

	res := a.Aggregate(context.Background(), results, []string{"s"}, models.CostBreakdown{})
	require.Len(t, res.SentenceAnnotations, 1)
	linked := res.SentenceAnnotations[0].LinkedSections
	require.Len(t, linked, 5)
	assert.Equal(t, "c7", linked[0].ChunkID)
	for i := 1; i < len(linked); i++ {
		assert.GreaterOrEqual(t, linked[i-1].Similarity, linked[i].Similarity)
	}
}

func TestAggregateCriteriaMeans(t *testing.T) {
	results := []models.Layer1Result{
		{CriteriaScores: models.CriteriaScores{ProblemSimilarity: 0.2, MethodSimilarity: 0.4, DomainOverlap: 0.6, ContributionSimilarity: 0.8}},
		{CriteriaScores: models.CriteriaScores{ProblemSimilarity: 0.4, MethodSimilarity: 0.6, DomainOverlap: 0.8, ContributionSimilarity: 1.0}},
	}
	c := aggregateCriteria(results)
	assert.InDelta(t, 0.3, c.ProblemSimilarity, 1e-9)
	assert.InDelta(t, 0.5, c.MethodSimilarity, 1e-9)
	assert.InDelta(t, 0.7, c.DomainOverlap, 1e-9)
	assert.InDelta(t, 0.9, c.ContributionSimilarity, 1e-9)
}

func TestFallbackSummaryNamesDominantCriterion(t *testing.T) {
	criteria := models.CriteriaScores{ProblemSimilarity: 0.2, MethodSimilarity: 0.8, DomainOverlap: 0.3, ContributionSimilarity: 0.1}
	s := testAggregator().fallbackSummary(35, criteria, 2, 1, 0)
	assert.Contains(t, s, "low originality")
	assert.Contains(t, s, "methodology")
	assert.Contains(t, s, "35/100")
}

func TestFallbackSummaryUsesConfiguredBands(t *testing.T) {
	// With red max 20 and yellow max 50, a score of 35 is moderate and 55 is
	// high, even though the default bands would label them differently.
	a := NewAggregator(0.7, 0.4, 20, 50, nil, nil)
	criteria := models.CriteriaScores{ProblemSimilarity: 0.2}

	assert.Contains(t, a.fallbackSummary(35, criteria, 0, 1, 2), "moderate originality")
	assert.Contains(t, a.fallbackSummary(55, criteria, 0, 1, 2), "high originality")
	assert.Contains(t, a.fallbackSummary(15, criteria, 3, 0, 0), "low originality")
}
