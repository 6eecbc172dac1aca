package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideascope/internal/models"
	"ideascope/internal/vector"
)

type fakeIndex struct {
	hits   []vector.SearchHit
	chunks []models.Chunk
	err    error

	lastQuery   string
	lastPaperID string
	searched    bool
}

func (f *fakeIndex) Search(ctx context.Context, runID, query string, topK int, paperID string) ([]vector.SearchHit, error) {
	f.lastQuery = query
	f.lastPaperID = paperID
	f.searched = true
	if f.err != nil {
		return nil, f.err
	}
	if topK < len(f.hits) {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

func (f *fakeIndex) ChunksByPaper(ctx context.Context, runID, paperID string) ([]models.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

func TestFindMatchesForSentenceFiltersByThreshold(t *testing.T) {
	idx := &fakeIndex{hits: []vector.SearchHit{
		{ChunkID: "p1_h01_c00", PaperID: "p1", PaperTitle: "Paper One", Heading: "Methods", Text: "strong match", Similarity: 0.82},
		{ChunkID: "p1_h01_c01", PaperID: "p1", PaperTitle: "Paper One", Heading: "Results", Text: "weak match", Similarity: 0.12},
	}}
	r := New(idx, 5, 0.3, nil)

	matches := r.FindMatchesForSentence(context.Background(), "run1", "we propose a new method", "p1")
	require.Len(t, matches, 1)
	assert.Equal(t, "p1_h01_c00", matches[0].ChunkID)
	assert.Equal(t, "semantic similarity: 0.82", matches[0].Reason)
	assert.Equal(t, "p1", idx.lastPaperID)
}

func TestFindMatchesForSentenceDegradesOnError(t *testing.T) {
	idx := &fakeIndex{err: errors.New("index offline")}
	r := New(idx, 5, 0.3, nil)

	matches := r.FindMatchesForSentence(context.Background(), "run1", "anything", "")
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestFindMatchesSnippetTruncated(t *testing.T) {
	long := strings.Repeat("x", 1200)
	idx := &fakeIndex{hits: []vector.SearchHit{
		{ChunkID: "c", PaperID: "p", Text: long, Similarity: 0.9},
	}}
	r := New(idx, 5, 0.3, nil)

	matches := r.FindMatchesForSentence(context.Background(), "run1", "q", "")
	require.Len(t, matches, 1)
	assert.LessOrEqual(t, len([]rune(matches[0].TextSnippet)), 500)
}

func TestBatchSearchSentencesPreservesOrder(t *testing.T) {
	idx := &fakeIndex{hits: []vector.SearchHit{{ChunkID: "c", PaperID: "p", Text: "t", Similarity: 0.5}}}
	r := New(idx, 5, 0.3, nil)

	got := r.BatchSearchSentences(context.Background(), "run1", []string{"one", "two", "three"}, "")
	require.Len(t, got, 3)
	for _, matches := range got {
		assert.Len(t, matches, 1)
	}
}

func TestContextForPaperFormatsBlocks(t *testing.T) {
	idx := &fakeIndex{hits: []vector.SearchHit{
		{ChunkID: "p1_h02_c00", PaperID: "p1", Heading: "Approach", Text: "the approach text", Similarity: 0.7},
	}}
	r := New(idx, 5, 0.3, nil)

	blocks := r.ContextForPaper(context.Background(), "run1", "idea", "p1", 3)
	require.Len(t, blocks, 1)
	assert.Equal(t, "[p1_h02_c00] Approach: the approach text", blocks[0])
}

func TestContextForPaperEmptyQueryReturnsAllChunks(t *testing.T) {
	idx := &fakeIndex{chunks: []models.Chunk{
		{ChunkID: "p1_h01_c00", Heading: "Introduction", Text: "intro text"},
		{ChunkID: "p1_h01_c01", Heading: "Introduction", Text: "more intro"},
		{ChunkID: "p1_h02_c00", Heading: "Method", Text: "method text"},
	}}
	r := New(idx, 5, 0.3, nil)

	blocks := r.ContextForPaper(context.Background(), "run1", "", "p1", 3)
	require.Len(t, blocks, 3)
	assert.Equal(t, "[p1_h01_c00] Introduction: intro text", blocks[0])
	assert.False(t, idx.searched)
}

func TestIdeaPaperSimilarity(t *testing.T) {
	idx := &fakeIndex{hits: []vector.SearchHit{{Similarity: 0.64}, {Similarity: 0.2}}}
	r := New(idx, 5, 0.3, nil)
	assert.InDelta(t, 0.64, r.IdeaPaperSimilarity(context.Background(), "run1", "idea", "p1"), 1e-9)

	empty := New(&fakeIndex{}, 5, 0.3, nil)
	assert.Zero(t, empty.IdeaPaperSimilarity(context.Background(), "run1", "idea", "p1"))
}
