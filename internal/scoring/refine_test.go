package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideascope/internal/models"
)

func TestRealityCheckParsesOracleVerdict(t *testing.T) {
	oracle := &fakeOracle{text: `{
		"already_exists": true,
		"confidence": 0.95,
		"existing_examples": [
			{"name": "Uber", "similarity": 0.98, "description": "Ride-hailing app"},
			{"name": "Lyft", "similarity": 0.95, "description": "Similar platform"}
		],
		"assessment": "Essentially describes existing ride-hailing services.",
		"novelty_aspects": [],
		"recommendation": "Identify what differs from existing services."
	}`}

	rc, _ := NewRealityChecker(oracle, nil).Check(context.Background(), "an app to hail rides")
	assert.True(t, rc.AlreadyExists)
	assert.InDelta(t, 0.95, rc.Confidence, 1e-9)
	require.Len(t, rc.ExistingExamples, 2)
	assert.Equal(t, "Uber", rc.ExistingExamples[0].Name)
	assert.Contains(t, rc.Warning, "Uber")
	assert.Contains(t, oracle.prompt, "an app to hail rides")
}

func TestRealityCheckDegradesToNeutral(t *testing.T) {
	for name, oracle := range map[string]*fakeOracle{
		"oracle error": {err: errors.New("boom")},
		"garbage":      {text: "not json at all"},
	} {
		t.Run(name, func(t *testing.T) {
			rc, _ := NewRealityChecker(oracle, nil).Check(context.Background(), "idea")
			assert.False(t, rc.AlreadyExists)
			assert.Zero(t, rc.Confidence)
			assert.Contains(t, rc.Assessment, "Unable to perform reality check")
		})
	}
}

func TestAdjustScorePenalty(t *testing.T) {
	exists := models.RealityCheckResult{
		AlreadyExists:    true,
		Confidence:       0.95,
		ExistingExamples: []models.ExistingExample{{Name: "Uber", Similarity: 0.98}},
	}
	// penalty = int(80 * 0.95 * 0.98 * 0.8) = 59
	assert.Equal(t, 21, AdjustScore(80, exists))

	// Floor of 5 regardless of penalty size.
	certain := models.RealityCheckResult{
		AlreadyExists:    true,
		Confidence:       1.0,
		ExistingExamples: []models.ExistingExample{{Similarity: 1.0}},
	}
	assert.Equal(t, 5, AdjustScore(20, certain))

	// No existence claim means no adjustment, however confident.
	assert.Equal(t, 80, AdjustScore(80, models.RealityCheckResult{Confidence: 1.0}))

	// Existence without examples carries zero similarity, so no penalty.
	assert.Equal(t, 80, AdjustScore(80, models.RealityCheckResult{AlreadyExists: true, Confidence: 0.9}))
}

func TestWarningMessageThresholds(t *testing.T) {
	base := models.RealityCheckResult{
		AlreadyExists:    true,
		ExistingExamples: []models.ExistingExample{{Name: "Uber", Similarity: 0.9}},
		Assessment:       "Matches ride-hailing.",
	}

	base.Confidence = 0.85
	assert.Contains(t, WarningMessage(base), "Warning")

	base.Confidence = 0.6
	assert.Contains(t, WarningMessage(base), "Note")

	base.Confidence = 0.3
	assert.Empty(t, WarningMessage(base))

	base.Confidence = 0.9
	base.AlreadyExists = false
	assert.Empty(t, WarningMessage(base))
}

func TestApplyRealityCheckAdjustsResult(t *testing.T) {
	a := testAggregator()
	result := models.Layer2Result{
		GlobalOriginalityScore: 80,
		Label:                  models.LabelHigh,
		Summary:                "Mostly original.",
	}
	rc := models.RealityCheckResult{
		AlreadyExists:    true,
		Confidence:       0.95,
		ExistingExamples: []models.ExistingExample{{Name: "Uber", Similarity: 0.98}},
	}

	a.ApplyRealityCheck(&result, rc)
	assert.Equal(t, 21, result.GlobalOriginalityScore)
	assert.Equal(t, models.LabelLow, result.Label)
	assert.Contains(t, result.Summary, "Uber")
	assert.Contains(t, result.Summary, "adjusted from 80 to 21")
	require.NotNil(t, result.RealityCheck)
}

func TestApplyRealityCheckNoopKeepsSummary(t *testing.T) {
	a := testAggregator()
	result := models.Layer2Result{GlobalOriginalityScore: 80, Label: models.LabelHigh, Summary: "Mostly original."}

	a.ApplyRealityCheck(&result, NeutralRealityCheck())
	assert.Equal(t, 80, result.GlobalOriginalityScore)
	assert.Equal(t, "Mostly original.", result.Summary)
	require.NotNil(t, result.RealityCheck)
}

func TestFollowupQuestionsParsed(t *testing.T) {
	oracle := &fakeOracle{text: `{"questions": [
		{"id": 1, "category": "problem", "question": "Which gap?"},
		{"id": 2, "category": "method", "question": "Which approach?"},
		{"id": 3, "category": "novelty", "question": "What is new?"}
	]}`}

	qs, _ := NewFollowupGenerator(oracle, nil).Questions(context.Background(), "idea")
	require.Len(t, qs, 3)
	assert.Equal(t, "method", qs[1].Category)
	assert.Equal(t, "What is new?", qs[2].Question)
}

func TestFollowupQuestionsDefaultOnFailure(t *testing.T) {
	oracle := &fakeOracle{err: errors.New("down")}
	qs, _ := NewFollowupGenerator(oracle, nil).Questions(context.Background(), "idea")
	require.Len(t, qs, 3)
	assert.Equal(t, "problem", qs[0].Category)
	assert.Equal(t, "novelty", qs[2].Category)
}

func TestEnrichIdea(t *testing.T) {
	questions := []models.FollowupQuestion{
		{ID: 1, Category: "problem", Question: "Which gap?"},
		{ID: 2, Category: "method", Question: "Which approach?"},
		{ID: 3, Category: "novelty", Question: "What is new?"},
	}

	enriched := EnrichIdea("My idea.", questions, []string{"Gap A.", "", "A new loss."})
	assert.Contains(t, enriched, "RESEARCH IDEA:\nMy idea.")
	assert.Contains(t, enriched, "[PROBLEM]\nQ: Which gap?\nA: Gap A.")
	assert.Contains(t, enriched, "[NOVELTY]")
	assert.NotContains(t, enriched, "[METHOD]")

	// All answers blank leaves the idea untouched.
	assert.Equal(t, "My idea.", EnrichIdea("My idea.", questions, []string{"", "  "}))
	assert.Equal(t, "My idea.", EnrichIdea("My idea.", questions, nil))
}
