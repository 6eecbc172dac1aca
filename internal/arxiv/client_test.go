package arxiv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <entry>
    <id>http://arxiv.org/abs/2401.00001v1</id>
    <title>Attention Is
      All You Need Again</title>
    <summary>We revisit   attention mechanisms.</summary>
    <published>2024-01-01T00:00:00Z</published>
    <author><name>A. Author</name></author>
    <author><name>B. Author</name></author>
    <link href="http://arxiv.org/abs/2401.00001v1" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2401.00001v1" rel="related" type="application/pdf"/>
    <category term="cs.CL"/>
    <category term="cs.LG"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2401.00002v2</id>
    <title>Second Paper</title>
    <summary>Abstract two.</summary>
    <published>2024-02-02T00:00:00Z</published>
  </entry>
</feed>`

func TestParseFeed(t *testing.T) {
	papers, err := ParseFeed([]byte(sampleFeed))
	require.NoError(t, err)
	require.Len(t, papers, 2)

	p := papers[0]
	assert.Equal(t, "2401.00001v1", p.ArxivID)
	assert.Equal(t, "Attention Is All You Need Again", p.Title)
	assert.Equal(t, "We revisit attention mechanisms.", p.Abstract)
	assert.Equal(t, []string{"A. Author", "B. Author"}, p.Authors)
	assert.Equal(t, "http://arxiv.org/pdf/2401.00001v1", p.PDFURL)
	assert.Equal(t, "http://arxiv.org/abs/2401.00001v1", p.URL)
	assert.Equal(t, []string{"cs.CL", "cs.LG"}, p.Categories)
	assert.Equal(t, "2024-01-01T00:00:00Z", p.PublishedDate)
}

func TestParseFeedConstructsMissingLinks(t *testing.T) {
	papers, err := ParseFeed([]byte(sampleFeed))
	require.NoError(t, err)

	p := papers[1]
	assert.Equal(t, "https://arxiv.org/pdf/2401.00002v2", p.PDFURL)
	assert.Equal(t, "https://arxiv.org/abs/2401.00002v2", p.URL)
}

func TestParseFeedRejectsGarbage(t *testing.T) {
	_, err := ParseFeed([]byte("not xml at all <"))
	assert.Error(t, err)
}
