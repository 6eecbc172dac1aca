package docproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePaper = `Abstract
We study a thing and find it works.

1. Introduction
Prior approaches fall short in several ways.
We propose a better one.

2. Related Work
Many have tried before us.

3. Method
Our method has two stages.

4. Experiments
We test on three datasets.

5. Conclusion
It works.

References
[1] Someone et al. 2019.
Appendix A
Extra proofs.`

func TestSplitHeadingsCanonicalOrder(t *testing.T) {
	headings := SplitHeadings("p1", samplePaper)
	require.Len(t, headings, 6)

	names := make([]string, len(headings))
	for i, h := range headings {
		names[i] = h.Text
		assert.Equal(t, i+1, h.Index)
		assert.NotEmpty(t, h.SectionText)
		assert.True(t, h.IsValid)
	}
	assert.Equal(t, []string{"Abstract", "Introduction", "Related Work", "Method", "Experiments", "Conclusion"}, names)
}

func TestSplitHeadingsStopsAtReferences(t *testing.T) {
	headings := SplitHeadings("p1", samplePaper)
	for _, h := range headings {
		assert.NotContains(t, h.SectionText, "Someone et al.")
		assert.NotContains(t, h.SectionText, "Extra proofs")
	}
}

func TestSplitHeadingsFallbackFullText(t *testing.T) {
	headings := SplitHeadings("p2", "Just a wall of text without any recognizable structure at all.")
	require.Len(t, headings, 1)
	assert.Equal(t, "Full Text", headings[0].Text)
	assert.Equal(t, "p2_h01", headings[0].HeadingID)
}

func TestSplitHeadingsEmptyText(t *testing.T) {
	assert.Empty(t, SplitHeadings("p3", "   \n  "))
}
