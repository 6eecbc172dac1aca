package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ideascope/internal/models"
	"ideascope/internal/util"
	"ideascope/internal/vector"
)

// SearchIndex is the slice of the vector index the retriever needs.
type SearchIndex interface {
	Search(ctx context.Context, runID, query string, topK int, paperID string) ([]vector.SearchHit, error)
	ChunksByPaper(ctx context.Context, runID, paperID string) ([]models.Chunk, error)
}

// Retriever turns idea sentences into matched evidence sections. Retrieval
// failures degrade to empty results so scoring can proceed on whatever
// evidence exists.
type Retriever struct {
	index     SearchIndex
	topK      int
	threshold float64
	logger    *slog.Logger
}

func New(index SearchIndex, topK int, threshold float64, logger *slog.Logger) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{index: index, topK: topK, threshold: threshold, logger: logger}
}

// FindMatchesForSentence returns evidence sections whose similarity clears
// the threshold, best first. paperID restricts matches to one paper.
func (r *Retriever) FindMatchesForSentence(ctx context.Context, runID, sentence, paperID string) []models.MatchedSection {
	hits, err := r.index.Search(ctx, runID, sentence, r.topK, paperID)
	if err != nil {
		r.logger.Warn("sentence retrieval failed", "run_id", runID, "err", err)
		return []models.MatchedSection{}
	}
	out := make([]models.MatchedSection, 0, len(hits))
	for _, h := range hits {
		if h.Similarity < r.threshold {
			continue
		}
		out = append(out, models.MatchedSection{
			ChunkID:     h.ChunkID,
			PaperID:     h.PaperID,
			PaperTitle:  h.PaperTitle,
			Heading:     h.Heading,
			TextSnippet: util.Snippet(h.Text, 500),
			Similarity:  h.Similarity,
			Reason:      fmt.Sprintf("semantic similarity: %.2f", h.Similarity),
		})
	}
	return out
}

// BatchSearchSentences retrieves matches for each sentence independently.
// Sentence order is preserved; a failed sentence yields an empty slice.
func (r *Retriever) BatchSearchSentences(ctx context.Context, runID string, sentences []string, paperID string) [][]models.MatchedSection {
	out := make([][]models.MatchedSection, len(sentences))
	for i, s := range sentences {
		out[i] = r.FindMatchesForSentence(ctx, runID, s, paperID)
	}
	return out
}

// ContextForPaper assembles the retrieval context fed to the per-paper
// oracle: the paper's chunks most similar to the idea, one block per chunk.
// An empty query returns every stored chunk of the paper instead.
func (r *Retriever) ContextForPaper(ctx context.Context, runID, ideaText, paperID string, topK int) []string {
	if topK <= 0 {
		topK = r.topK
	}
	if strings.TrimSpace(ideaText) == "" {
		chunks, err := r.index.ChunksByPaper(ctx, runID, paperID)
		if err != nil {
			r.logger.Warn("paper chunk listing failed",
				"run_id", runID, "paper_id", paperID, "err", err)
			return []string{}
		}
		blocks := make([]string, 0, len(chunks))
		for _, c := range chunks {
			b := strings.Builder{}
			b.WriteString("[" + c.ChunkID + "] ")
			if c.Heading != "" {
				b.WriteString(c.Heading + ": ")
			}
			b.WriteString(c.Text)
			blocks = append(blocks, b.String())
		}
		return blocks
	}
	hits, err := r.index.Search(ctx, runID, ideaText, topK, paperID)
	if err != nil {
		r.logger.Warn("paper context retrieval failed",
			"run_id", runID, "paper_id", paperID, "err", err)
		return []string{}
	}
	blocks := make([]string, 0, len(hits))
	for _, h := range hits {
		b := strings.Builder{}
		b.WriteString("[" + h.ChunkID + "] ")
		if h.Heading != "" {
			b.WriteString(h.Heading + ": ")
		}
		b.WriteString(h.Text)
		blocks = append(blocks, b.String())
	}
	return blocks
}

// IdeaPaperSimilarity is the best similarity between the idea and any chunk
// of the paper, zero when nothing is retrievable.
func (r *Retriever) IdeaPaperSimilarity(ctx context.Context, runID, ideaText, paperID string) float64 {
	hits, err := r.index.Search(ctx, runID, ideaText, 1, paperID)
	if err != nil || len(hits) == 0 {
		return 0
	}
	return hits[0].Similarity
}
