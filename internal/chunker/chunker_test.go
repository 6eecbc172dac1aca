package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideascope/internal/models"
)

func testHeading(index int, text string) *models.Heading {
	return &models.Heading{Index: index, Text: text, Level: 1}
}

func TestChunkSectionTooShort(t *testing.T) {
	c := New(512, 50, 100, nil)
	h := testHeading(1, "Introduction")

	chunks := c.ChunkSection("Tiny.", "p1", h)
	require.Len(t, chunks, 1)
	assert.False(t, chunks[0].IsValid)
	assert.Equal(t, "Section too short", chunks[0].QualityReason)
	assert.Equal(t, "p1_h01_c00", chunks[0].ChunkID)
}

func TestChunkSectionShortButAcceptable(t *testing.T) {
	c := New(512, 50, 100, nil)
	h := testHeading(2, "Related Work")

	// Between min/2 and min: single chunk, still valid.
	text := strings.Repeat("related work survey ", 4) // ~80 chars
	chunks := c.ChunkSection(text, "p1", h)
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].IsValid)
	assert.Empty(t, chunks[0].QualityReason)
}

func TestChunkSectionSplitsParagraphs(t *testing.T) {
	c := New(200, 20, 50, nil)
	h := testHeading(3, "Methods")

	para := strings.Repeat("We evaluate the proposed approach on standard benchmarks. ", 3)
	text := para + "\n\n" + para + "\n\n" + para

	chunks := c.ChunkSection(text, "p1", h)
	require.Greater(t, len(chunks), 1)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
		assert.Equal(t, models.ChunkID("p1", 3, i), ch.ChunkID)
		assert.LessOrEqual(t, len(ch.Text), 200*3/2)
		assert.Equal(t, "Methods", ch.Heading)
	}
}

func TestChunkSectionDeterministic(t *testing.T) {
	c := New(256, 30, 80, nil)
	h := testHeading(4, "Results")
	text := strings.Repeat("The model achieves strong results on every dataset we tried. ", 20)

	a := c.ChunkSection(text, "p1", h)
	b := c.ChunkSection(text, "p1", h)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Text, b[i].Text)
		assert.Equal(t, a[i].ChunkID, b[i].ChunkID)
	}
}

func TestChunkSectionSealsUndersizedBuffer(t *testing.T) {
	c := New(512, 50, 100, nil)
	h := testHeading(5, "Introduction")

	opening := "This unique opening statement defines the core problem."
	body := strings.TrimSpace(strings.Repeat("The remainder of the section elaborates on evaluation setup and datasets. ", 7))
	chunks := c.ChunkSection(opening+"\n\n"+body, "p1", h)

	var joined strings.Builder
	for _, ch := range chunks {
		joined.WriteString(ch.Text)
		joined.WriteString("\n")
	}
	assert.Contains(t, joined.String(), "unique opening statement")

	// The short buffer is sealed as its own chunk and flagged, not dropped.
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, opening, chunks[0].Text)
	assert.False(t, chunks[0].IsValid)
	assert.True(t, chunks[1].IsValid)
}

func TestChunkSectionCoversAllContent(t *testing.T) {
	c := New(200, 30, 50, nil)
	h := testHeading(6, "Evaluation")

	markers := []string{"marker-alpha", "marker-bravo", "marker-charlie", "marker-delta", "marker-echo"}
	paras := make([]string, len(markers))
	for i, m := range markers {
		paras[i] = "Paragraph " + m + " describes one distinct aspect of the evaluation in enough words to matter."
	}
	// A deliberately tiny paragraph between two full ones.
	paras[2] = "Key caveat: marker-charlie."

	chunks := c.ChunkSection(strings.Join(paras, "\n\n"), "p1", h)
	var joined strings.Builder
	for _, ch := range chunks {
		joined.WriteString(ch.Text)
		joined.WriteString("\n")
	}
	for _, m := range markers {
		assert.Contains(t, joined.String(), m)
	}
}

func TestSplitLargeChunkSeedsOverlap(t *testing.T) {
	c := New(150, 60, 50, nil)
	h := testHeading(7, "Discussion")

	var sb strings.Builder
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&sb, "Sentence number %d carries marker tag%02d and padding words to reach length. ", i, i)
	}
	chunks := c.ChunkSection(strings.TrimSpace(sb.String()), "p1", h)
	require.Greater(t, len(chunks), 1)

	// Every chunk after the first starts with text carried over from the
	// tail of the previous one.
	for i := 1; i < len(chunks); i++ {
		prefix := chunks[i].Text
		if len(prefix) > 20 {
			prefix = prefix[:20]
		}
		assert.Contains(t, chunks[i-1].Text, prefix,
			"chunk %d should open with overlap from chunk %d", i, i-1)
	}
}

func TestCleanTextRemovesArtifacts(t *testing.T) {
	got := cleanText("Prior work [12] shows gains.\n\n\n\nSee Fig. 3 for   details.")
	assert.NotContains(t, got, "[12]")
	assert.NotContains(t, got, "Fig. 3")
	assert.Contains(t, got, "Figure")
	assert.NotContains(t, got, "\n\n\n")
	assert.NotContains(t, got, "  ")
}

func TestValidateQuality(t *testing.T) {
	longWords := strings.Repeat("different words appear in this reasonably unique sentence again ", 3)
	cases := []struct {
		name   string
		text   string
		valid  bool
		reason string
	}{
		{"ok", longWords, true, ""},
		{"too short", "short", false, "Chunk too short"},
		{"numeric", strings.Repeat("123 456 789 0.12 ", 10), false, "Too few alphabetic characters"},
		{"repetitive", strings.Repeat("same same same same ", 10), false, "Too repetitive"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := ValidateQuality(&models.Chunk{Text: tc.text}, 100)
			assert.Equal(t, tc.valid, ok)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestProcessPaperFlagsInvalidChunks(t *testing.T) {
	c := New(512, 50, 100, nil)
	paper := &models.Paper{
		PaperID: "p9",
		Headings: []models.Heading{
			{Index: 1, Text: "Tables", SectionText: strings.Repeat("1 2 3 4 5 6 7 8 9 0 ", 10)},
			{Index: 2, Text: "Discussion", SectionText: strings.Repeat("We discuss broader implications of these findings in detail here. ", 5)},
			{Index: 3, Text: "Empty"},
		},
	}

	c.ProcessPaper(paper)
	require.NotEmpty(t, paper.Headings[0].Chunks)
	assert.False(t, paper.Headings[0].Chunks[0].IsValid)
	require.NotEmpty(t, paper.Headings[1].Chunks)
	assert.True(t, paper.Headings[1].Chunks[0].IsValid)
	assert.Empty(t, paper.Headings[2].Chunks)

	st := ChunkStats(paper)
	assert.Equal(t, st.TotalChunks, st.ValidChunks+st.InvalidChunks)
	assert.Equal(t, 2, st.HeadingsWithChunks)
	assert.Greater(t, st.AvgChunkLength, 0.0)
}
