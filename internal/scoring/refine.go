package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"ideascope/internal/models"
	"ideascope/internal/providers"
)

const realityCheckInstructions = `You are a research originality assessor with broad knowledge of existing technologies, products, services, and well-known research areas.

Determine if the user's research or product idea already exists or closely resembles something well-known. Consider existing products, established research areas, solved problems, patents and known technologies. Be honest: if the idea essentially describes something that exists, say so.

Return ONLY valid JSON:
{
  "already_exists": true,
  "confidence": 0.95,
  "existing_examples": [
    {"name": "Name of existing product/research", "similarity": 0.9, "description": "How it relates"}
  ],
  "assessment": "Brief explanation of your assessment",
  "novelty_aspects": ["Aspects that might still be novel"],
  "recommendation": "Your recommendation for the user"
}`

// RealityChecker asks the oracle whether an idea already exists as a known
// product or established research area. arXiv search cannot catch those
// cases, so this runs on general knowledge before the literature analysis.
// The check is advisory: any failure degrades to a neutral result.
type RealityChecker struct {
	oracle providers.LLMProvider
	logger *slog.Logger
}

func NewRealityChecker(oracle providers.LLMProvider, logger *slog.Logger) *RealityChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RealityChecker{oracle: oracle, logger: logger}
}

func (c *RealityChecker) Check(ctx context.Context, ideaText string) (models.RealityCheckResult, providers.TokenUsage) {
	prompt := realityCheckInstructions +
		"\n\n## IDEA TO CHECK\n" + ideaText +
		"\n\nBe thorough: check against known products, services, technologies and research areas. Return your assessment as JSON."

	resp, info, err := c.oracle.Generate(ctx, providers.GenerateRequest{
		Operation: "reality_check",
		Prompt:    prompt,
	})
	if err != nil {
		c.logger.Warn("reality check oracle failed, using neutral result",
			"provider", info.Name, "err", err)
		return NeutralRealityCheck(), providers.TokenUsage{}
	}

	var parsed models.RealityCheckResult
	if err := json.Unmarshal([]byte(ExtractJSON(resp.Text)), &parsed); err != nil {
		c.logger.Warn("reality check response unparseable, using neutral result",
			"provider", info.Name, "err", err)
		return NeutralRealityCheck(), resp.Usage
	}

	parsed.Confidence = clamp01(parsed.Confidence)
	for i := range parsed.ExistingExamples {
		parsed.ExistingExamples[i].Similarity = clamp01(parsed.ExistingExamples[i].Similarity)
	}
	parsed.Warning = WarningMessage(parsed)
	return parsed, resp.Usage
}

// NeutralRealityCheck is the degraded outcome when the check could not run:
// no existence claim, zero confidence, so it never shifts the score.
func NeutralRealityCheck() models.RealityCheckResult {
	return models.RealityCheckResult{
		Assessment:     "Unable to perform reality check. Proceeding with paper analysis.",
		Recommendation: "Consider manually verifying whether similar products or research exist.",
	}
}

// WarningMessage renders a user-facing caution for an idea that likely
// already exists. Empty below 0.5 confidence or when nothing was found.
func WarningMessage(rc models.RealityCheckResult) string {
	if !rc.AlreadyExists {
		return ""
	}
	switch {
	case rc.Confidence >= 0.8 && len(rc.ExistingExamples) > 0:
		top := rc.ExistingExamples[0]
		return fmt.Sprintf("Warning: this idea may already exist. It closely resembles %s (similarity %.0f%%). %s Recommendation: %s",
			top.Name, top.Similarity*100, rc.Assessment, rc.Recommendation)
	case rc.Confidence >= 0.5:
		return "Note: similar concepts may exist. " + rc.Assessment
	}
	return ""
}

// AdjustScore applies the existence penalty to a 0-100 originality score.
// Confidence times the strongest example similarity scales a penalty of up
// to 80% of the score; the adjusted score never drops below 5.
func AdjustScore(score int, rc models.RealityCheckResult) int {
	if !rc.AlreadyExists {
		return score
	}
	maxSimilarity := 0.0
	for _, ex := range rc.ExistingExamples {
		if ex.Similarity > maxSimilarity {
			maxSimilarity = ex.Similarity
		}
	}
	penalty := int(float64(score) * rc.Confidence * maxSimilarity * 0.8)
	adjusted := score - penalty
	if adjusted < 5 {
		adjusted = 5
	}
	return adjusted
}

// ApplyRealityCheck folds the check into a finished result: the score takes
// the existence penalty, the label is recomputed against the configured
// bands and the summary gains the adjustment note.
func (a *Aggregator) ApplyRealityCheck(result *models.Layer2Result, rc models.RealityCheckResult) {
	result.RealityCheck = &rc
	original := result.GlobalOriginalityScore
	adjusted := AdjustScore(original, rc)
	if adjusted == original {
		return
	}
	result.GlobalOriginalityScore = adjusted
	result.Label = a.ScoreToLabel(adjusted)
	if len(rc.ExistingExamples) > 0 {
		result.Summary = fmt.Sprintf("This idea closely resembles %s. %s Score adjusted from %d to %d due to existing similar work.",
			rc.ExistingExamples[0].Name, result.Summary, original, adjusted)
	}
}

const followupInstructions = `You are a research idea clarification specialist. Generate 3 concise follow-up questions that clarify the specific problem being addressed, the proposed method, and what makes the idea different from existing work.

Guidelines: questions are short and specific, ask for explanations rather than yes/no answers, and focus on details that matter for an originality assessment.

Return ONLY valid JSON:
{
  "questions": [
    {"id": 1, "category": "problem", "question": "Your question here"},
    {"id": 2, "category": "method", "question": "Your question here"},
    {"id": 3, "category": "novelty", "question": "Your question here"}
  ]
}

Categories: "problem", "method", "novelty", "application".`

// FollowupGenerator produces clarifying questions for an idea before a run
// starts. Failures fall back to three fixed questions so the flow never
// blocks on the oracle.
type FollowupGenerator struct {
	oracle providers.LLMProvider
	logger *slog.Logger
}

func NewFollowupGenerator(oracle providers.LLMProvider, logger *slog.Logger) *FollowupGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FollowupGenerator{oracle: oracle, logger: logger}
}

func (g *FollowupGenerator) Questions(ctx context.Context, ideaText string) ([]models.FollowupQuestion, providers.TokenUsage) {
	prompt := followupInstructions +
		"\n\n## RESEARCH IDEA\n" + ideaText +
		"\n\nQuestions should help assess originality by clarifying the problem, the method, and what is novel."

	resp, info, err := g.oracle.Generate(ctx, providers.GenerateRequest{
		Operation: "followup_questions",
		Prompt:    prompt,
	})
	if err != nil {
		g.logger.Warn("followup oracle failed, using default questions",
			"provider", info.Name, "err", err)
		return DefaultFollowupQuestions(), providers.TokenUsage{}
	}

	var parsed struct {
		Questions []models.FollowupQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(ExtractJSON(resp.Text)), &parsed); err != nil || len(parsed.Questions) == 0 {
		g.logger.Warn("followup response unparseable, using default questions",
			"provider", info.Name)
		return DefaultFollowupQuestions(), resp.Usage
	}
	return parsed.Questions, resp.Usage
}

func DefaultFollowupQuestions() []models.FollowupQuestion {
	return []models.FollowupQuestion{
		{ID: 1, Category: "problem", Question: "What specific problem or research gap does your idea address?"},
		{ID: 2, Category: "method", Question: "What method or approach do you propose to solve this problem?"},
		{ID: 3, Category: "novelty", Question: "What aspect of your idea do you consider most innovative or novel?"},
	}
}

// EnrichIdea folds answered clarifications back into the idea text for the
// rest of the pipeline. Questions without a non-blank answer are skipped;
// with no usable answers the idea is returned unchanged.
func EnrichIdea(idea string, questions []models.FollowupQuestion, answers []string) string {
	b := strings.Builder{}
	b.WriteString("RESEARCH IDEA:\n")
	b.WriteString(idea)
	b.WriteString("\n\nCLARIFICATIONS:\n")

	answered := 0
	for i, q := range questions {
		if i >= len(answers) || strings.TrimSpace(answers[i]) == "" {
			continue
		}
		category := q.Category
		if category == "" {
			category = "general"
		}
		fmt.Fprintf(&b, "\n[%s]\nQ: %s\nA: %s\n", strings.ToUpper(category), q.Question, strings.TrimSpace(answers[i]))
		answered++
	}
	if answered == 0 {
		return idea
	}
	return strings.TrimSpace(b.String())
}
