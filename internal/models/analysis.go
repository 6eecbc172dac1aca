package models

// OriginalityLabel classifies a sentence or an overall idea. LOW means high
// overlap with existing work, HIGH means no meaningful overlap was found.
type OriginalityLabel string

const (
	LabelLow    OriginalityLabel = "low"
	LabelMedium OriginalityLabel = "medium"
	LabelHigh   OriginalityLabel = "high"
)

// MatchedSection is a piece of paper text cited as evidence for a sentence's
// overlap score.
type MatchedSection struct {
	ChunkID     string  `json:"chunk_id,omitempty"`
	PaperID     string  `json:"paper_id"`
	PaperTitle  string  `json:"paper_title,omitempty"`
	Heading     string  `json:"heading"`
	TextSnippet string  `json:"text_snippet,omitempty"`
	Similarity  float64 `json:"similarity"`
	Reason      string  `json:"reason,omitempty"`
}

// SentenceAnalysis is one paper's judgment of one user sentence.
type SentenceAnalysis struct {
	Sentence        string           `json:"sentence"`
	SentenceIndex   int              `json:"sentence_index"`
	OverlapScore    float64          `json:"overlap_score"`
	MatchedSections []MatchedSection `json:"matched_sections,omitempty"`
}

// CriteriaScores holds the four similarity dimensions, each in [0,1] where
// higher means more overlap with existing work. The dimensions are
// independent and may legitimately diverge.
type CriteriaScores struct {
	ProblemSimilarity      float64 `json:"problem_similarity"`
	MethodSimilarity       float64 `json:"method_similarity"`
	DomainOverlap          float64 `json:"domain_overlap"`
	ContributionSimilarity float64 `json:"contribution_similarity"`
}

func (c CriteriaScores) Average() float64 {
	return (c.ProblemSimilarity + c.MethodSimilarity + c.DomainOverlap + c.ContributionSimilarity) / 4
}

// Layer1Result is the full scoring output for one (idea, paper) pair.
type Layer1Result struct {
	PaperID             string             `json:"paper_id"`
	PaperTitle          string             `json:"paper_title"`
	ArxivID             string             `json:"arxiv_id"`
	OverallOverlapScore float64            `json:"overall_overlap_score"`
	CriteriaScores      CriteriaScores     `json:"criteria_scores"`
	SentenceAnalyses    []SentenceAnalysis `json:"sentence_analyses"`
	TokensUsed          int                `json:"tokens_used,omitempty"`
}

// SentenceAnnotation is the final cross-paper verdict for one sentence.
type SentenceAnnotation struct {
	Index            int              `json:"index"`
	Sentence         string           `json:"sentence"`
	OriginalityScore float64          `json:"originality_score"`
	OverlapScore     float64          `json:"overlap_score"`
	Label            OriginalityLabel `json:"label"`
	LinkedSections   []MatchedSection `json:"linked_sections,omitempty"`
}

type CostBreakdown struct {
	Retrieval    float64 `json:"retrieval"`
	Layer1       float64 `json:"layer1"`
	Layer2       float64 `json:"layer2"`
	Keywords     float64 `json:"keywords"`
	RealityCheck float64 `json:"reality_check"`
	Total        float64 `json:"total"`
}

// ExistingExample is a known product or research area cited by the reality
// check as prior art for the idea.
type ExistingExample struct {
	Name        string  `json:"name"`
	Similarity  float64 `json:"similarity"`
	Description string  `json:"description,omitempty"`
}

// RealityCheckResult is the oracle's general-knowledge verdict on whether
// the idea already exists outside the academic literature, where arXiv
// search cannot see it.
type RealityCheckResult struct {
	AlreadyExists    bool              `json:"already_exists"`
	Confidence       float64           `json:"confidence"`
	ExistingExamples []ExistingExample `json:"existing_examples,omitempty"`
	Assessment       string            `json:"assessment"`
	NoveltyAspects   []string          `json:"novelty_aspects,omitempty"`
	Recommendation   string            `json:"recommendation,omitempty"`
	Warning          string            `json:"warning,omitempty"`
}

// FollowupQuestion clarifies one aspect of the idea before analysis starts.
type FollowupQuestion struct {
	ID       int    `json:"id"`
	Category string `json:"category"`
	Question string `json:"question"`
}

// Layer2Result is the final deliverable of an analysis run.
type Layer2Result struct {
	GlobalOriginalityScore int                  `json:"global_originality_score"`
	GlobalOverlapScore     float64              `json:"global_overlap_score"`
	Label                  OriginalityLabel     `json:"label"`
	SentenceAnnotations    []SentenceAnnotation `json:"sentence_annotations"`
	Summary                string               `json:"summary"`
	AggregatedCriteria     CriteriaScores       `json:"aggregated_criteria"`
	PapersAnalyzed         int                  `json:"papers_analyzed"`
	RealityCheck           *RealityCheckResult  `json:"reality_check,omitempty"`
	Cost                   CostBreakdown        `json:"cost"`
	ProcessingSeconds      float64              `json:"processing_seconds,omitempty"`
}

func (r *Layer2Result) SentencesByLabel(label OriginalityLabel) []SentenceAnnotation {
	out := make([]SentenceAnnotation, 0, len(r.SentenceAnnotations))
	for _, sa := range r.SentenceAnnotations {
		if sa.Label == label {
			out = append(out, sa)
		}
	}
	return out
}
