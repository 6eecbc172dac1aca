package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"ideascope/internal/models"
	"ideascope/internal/providers"
)

const emptyRunSummary = "No similar papers were found. Your idea appears to be highly original, though this may indicate a gap in the search rather than true novelty."

// Aggregator folds per-paper results into the final assessment. All scoring
// is deterministic arithmetic; the oracle is only consulted for the prose
// summary, with a templated fallback when it fails.
type Aggregator struct {
	HighOverlapThreshold   float64
	MediumOverlapThreshold float64
	ScoreRedMax            int
	ScoreYellowMax         int

	// Weight, when set, biases the global overlap mean per sentence.
	// Nil means a plain unweighted mean.
	Weight func(models.SentenceAnnotation) float64

	oracle providers.LLMProvider
	logger *slog.Logger
}

func NewAggregator(highOverlap, mediumOverlap float64, scoreRedMax, scoreYellowMax int, oracle providers.LLMProvider, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		HighOverlapThreshold:   highOverlap,
		MediumOverlapThreshold: mediumOverlap,
		ScoreRedMax:            scoreRedMax,
		ScoreYellowMax:         scoreYellowMax,
		oracle:                 oracle,
		logger:                 logger,
	}
}

// Aggregate combines layer1 results into the run-level result. Zero papers
// yields the fixed maximally-original outcome with its ambiguity caveat.
func (a *Aggregator) Aggregate(ctx context.Context, results []models.Layer1Result, sentences []string, cost models.CostBreakdown) models.Layer2Result {
	if len(results) == 0 {
		return a.emptyResult(sentences, cost)
	}

	criteria := aggregateCriteria(results)
	annotations := a.annotateSentences(results, sentences)
	globalOverlap := a.globalOverlap(annotations)
	score := OverlapToOriginality(globalOverlap)
	label := a.ScoreToLabel(score)
	summary := a.summarize(ctx, score, criteria, annotations, len(results))

	return models.Layer2Result{
		GlobalOriginalityScore: score,
		GlobalOverlapScore:     globalOverlap,
		Label:                  label,
		SentenceAnnotations:    annotations,
		Summary:                summary,
		AggregatedCriteria:     criteria,
		PapersAnalyzed:         len(results),
		Cost:                   cost,
	}
}

func aggregateCriteria(results []models.Layer1Result) models.CriteriaScores {
	var c models.CriteriaScores
	for _, r := range results {
		c.ProblemSimilarity += r.CriteriaScores.ProblemSimilarity
		c.MethodSimilarity += r.CriteriaScores.MethodSimilarity
		c.DomainOverlap += r.CriteriaScores.DomainOverlap
		c.ContributionSimilarity += r.CriteriaScores.ContributionSimilarity
	}
	n := float64(len(results))
	c.ProblemSimilarity /= n
	c.MethodSimilarity /= n
	c.DomainOverlap /= n
	c.ContributionSimilarity /= n
	return c
}

// annotateSentences takes the worst case per sentence: the MAX overlap
// across papers decides the label, since one near-identical paper is enough
// to make a sentence unoriginal.
func (a *Aggregator) annotateSentences(results []models.Layer1Result, sentences []string) []models.SentenceAnnotation {
	annotations := make([]models.SentenceAnnotation, 0, len(sentences))
	for idx, sentence := range sentences {
		maxOverlap := 0.0
		var allMatches []models.MatchedSection
		for _, r := range results {
			for _, sa := range r.SentenceAnalyses {
				if sa.SentenceIndex == idx {
					if sa.OverlapScore > maxOverlap {
						maxOverlap = sa.OverlapScore
					}
					allMatches = append(allMatches, sa.MatchedSections...)
					break
				}
			}
		}

		sort.SliceStable(allMatches, func(i, j int) bool {
			return allMatches[i].Similarity > allMatches[j].Similarity
		})
		if len(allMatches) > 5 {
			allMatches = allMatches[:5]
		}

		annotations = append(annotations, models.SentenceAnnotation{
			Index:            idx,
			Sentence:         sentence,
			OriginalityScore: 1.0 - maxOverlap,
			OverlapScore:     maxOverlap,
			Label:            a.OverlapToLabel(maxOverlap),
			LinkedSections:   allMatches,
		})
	}
	return annotations
}

// OverlapToLabel classifies a sentence by its overlap score. Thresholds are
// on OVERLAP, not originality, and both boundaries are inclusive.
func (a *Aggregator) OverlapToLabel(overlap float64) models.OriginalityLabel {
	switch {
	case overlap >= a.HighOverlapThreshold:
		return models.LabelLow
	case overlap >= a.MediumOverlapThreshold:
		return models.LabelMedium
	default:
		return models.LabelHigh
	}
}

// ScoreToLabel classifies the run by its 0-100 originality score.
func (a *Aggregator) ScoreToLabel(score int) models.OriginalityLabel {
	switch {
	case score >= a.ScoreYellowMax:
		return models.LabelHigh
	case score >= a.ScoreRedMax:
		return models.LabelMedium
	default:
		return models.LabelLow
	}
}

func (a *Aggregator) globalOverlap(annotations []models.SentenceAnnotation) float64 {
	if len(annotations) == 0 {
		return 0
	}
	if a.Weight == nil {
		total := 0.0
		for _, ann := range annotations {
			total += ann.OverlapScore
		}
		return total / float64(len(annotations))
	}
	sum, weights := 0.0, 0.0
	for _, ann := range annotations {
		w := a.Weight(ann)
		sum += ann.OverlapScore * w
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}

// OverlapToOriginality converts overlap in [0,1] to an originality score in
// [0,100], rounded to the nearest integer.
func OverlapToOriginality(overlap float64) int {
	score := math.Round((1.0 - overlap) * 100)
	return int(math.Max(0, math.Min(100, score)))
}

func (a *Aggregator) summarize(ctx context.Context, score int, criteria models.CriteriaScores, annotations []models.SentenceAnnotation, numPapers int) string {
	red, yellow, green := countLabels(annotations)

	if a.oracle != nil {
		prompt := fmt.Sprintf(`Write a 1-2 sentence summary explaining this originality assessment and giving actionable insight.

Global originality score: %d/100 (higher = more original)
Papers analyzed: %d
Criteria overlap (0-1, higher = more overlap): problem=%.2f method=%.2f domain=%.2f contribution=%.2f
Sentence labels: %d low originality, %d medium, %d high

Return only plain text, no JSON or formatting.`,
			score, numPapers,
			criteria.ProblemSimilarity, criteria.MethodSimilarity,
			criteria.DomainOverlap, criteria.ContributionSimilarity,
			red, yellow, green)

		resp, _, err := a.oracle.Generate(ctx, providers.GenerateRequest{
			Operation: "layer2_summary",
			Prompt:    prompt,
		})
		if err == nil && strings.TrimSpace(resp.Text) != "" {
			return strings.TrimSpace(resp.Text)
		}
		if err != nil {
			a.logger.Warn("summary oracle failed, using fallback", "err", err)
		}
	}
	return a.fallbackSummary(score, criteria, red, yellow, green)
}

func countLabels(annotations []models.SentenceAnnotation) (red, yellow, green int) {
	for _, ann := range annotations {
		switch ann.Label {
		case models.LabelLow:
			red++
		case models.LabelMedium:
			yellow++
		case models.LabelHigh:
			green++
		}
	}
	return red, yellow, green
}

func (a *Aggregator) fallbackSummary(score int, criteria models.CriteriaScores, red, yellow, green int) string {
	level := "low"
	switch {
	case score >= a.ScoreYellowMax:
		level = "high"
	case score >= a.ScoreRedMax:
		level = "moderate"
	}

	names := []struct {
		name  string
		value float64
	}{
		{"problem definition", criteria.ProblemSimilarity},
		{"methodology", criteria.MethodSimilarity},
		{"application domain", criteria.DomainOverlap},
		{"contributions", criteria.ContributionSimilarity},
	}
	top := names[0]
	for _, n := range names[1:] {
		if n.value > top.value {
			top = n
		}
	}

	overlapNote := ""
	if top.value > 0.5 {
		overlapNote = fmt.Sprintf(" Main overlap detected in %s.", top.name)
	}
	return fmt.Sprintf("Your idea shows %s originality (score: %d/100).%s %d sentences have significant overlap, %d have moderate overlap, and %d appear novel.",
		level, score, overlapNote, red, yellow, green)
}

func (a *Aggregator) emptyResult(sentences []string, cost models.CostBreakdown) models.Layer2Result {
	annotations := make([]models.SentenceAnnotation, 0, len(sentences))
	for i, sent := range sentences {
		annotations = append(annotations, models.SentenceAnnotation{
			Index:            i,
			Sentence:         sent,
			OriginalityScore: 1.0,
			Label:            models.LabelHigh,
			LinkedSections:   []models.MatchedSection{},
		})
	}
	return models.Layer2Result{
		GlobalOriginalityScore: 100,
		GlobalOverlapScore:     0,
		Label:                  models.LabelHigh,
		SentenceAnnotations:    annotations,
		Summary:                emptyRunSummary,
		PapersAnalyzed:         0,
		Cost:                   cost,
	}
}
