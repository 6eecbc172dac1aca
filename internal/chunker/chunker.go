package chunker

import (
	"log/slog"
	"regexp"
	"strings"

	"ideascope/internal/models"
	"ideascope/internal/util"
)

// Chunker splits heading section text into embeddable chunks. Headings give
// structure and context; chunks are paragraph or sentence blocks within a
// heading, each keeping a reference to its parent heading.
type Chunker struct {
	MaxChunkSize int
	ChunkOverlap int
	MinChunkSize int

	// SplitSentences can be swapped for a smarter splitter. Defaults to
	// util.SplitSentences.
	SplitSentences util.SentenceSplitter

	Logger *slog.Logger
}

func New(maxChunkSize, chunkOverlap, minChunkSize int, logger *slog.Logger) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = 512
	}
	if chunkOverlap < 0 || chunkOverlap >= maxChunkSize {
		chunkOverlap = 0
	}
	if minChunkSize <= 0 {
		minChunkSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chunker{
		MaxChunkSize:   maxChunkSize,
		ChunkOverlap:   chunkOverlap,
		MinChunkSize:   minChunkSize,
		SplitSentences: util.SplitSentences,
		Logger:         logger,
	}
}

// ProcessPaper chunks every heading that has section text and runs quality
// validation over the results. The paper is mutated in place and returned.
func (c *Chunker) ProcessPaper(paper *models.Paper) *models.Paper {
	for i := range paper.Headings {
		h := &paper.Headings[i]
		if strings.TrimSpace(h.SectionText) == "" {
			c.Logger.Warn("heading has no section text",
				"paper_id", paper.PaperID, "heading", h.Text)
			continue
		}
		h.Chunks = c.ChunkSection(h.SectionText, paper.PaperID, h)
		for j := range h.Chunks {
			ch := &h.Chunks[j]
			if !ch.IsValid {
				continue
			}
			if ok, reason := ValidateQuality(ch, c.MinChunkSize); !ok {
				ch.IsValid = false
				ch.QualityReason = reason
			}
		}
		invalid := 0
		for _, ch := range h.Chunks {
			if !ch.IsValid {
				invalid++
			}
		}
		if invalid > 0 {
			c.Logger.Warn("invalid chunks in heading",
				"paper_id", paper.PaperID, "heading", h.Text,
				"invalid", invalid, "total", len(h.Chunks))
		}
	}
	return paper
}

// ChunkSection splits one section's text into chunks. Paragraph splits come
// first; chunks that still exceed 1.5x the max size get re-split by sentence.
func (c *Chunker) ChunkSection(text, paperID string, heading *models.Heading) []models.Chunk {
	text = cleanText(text)

	trimmed := strings.TrimSpace(text)
	if len(trimmed) < c.MinChunkSize {
		ch := models.Chunk{
			PaperID:      paperID,
			Heading:      heading.Text,
			HeadingIndex: heading.Index,
			ChunkIndex:   0,
			Text:         trimmed,
			CharStart:    0,
			CharEnd:      len(text),
			IsValid:      len(trimmed) >= c.MinChunkSize/2,
		}
		if !ch.IsValid {
			ch.QualityReason = "Section too short"
		}
		ch.ChunkID = models.ChunkID(paperID, heading.Index, 0)
		return []models.Chunk{ch}
	}

	paragraphs := splitParagraphs(text)

	var chunks []models.Chunk
	current := ""
	currentStart := 0
	charPos := 0

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if current != "" && len(current)+len(para)+2 > c.MaxChunkSize {
			// Undersized buffers are sealed as invalid rather than dropped;
			// every byte of section text stays covered by some chunk.
			sealed := strings.TrimSpace(current)
			chunks = append(chunks, models.Chunk{
				PaperID:      paperID,
				Heading:      heading.Text,
				HeadingIndex: heading.Index,
				ChunkIndex:   len(chunks),
				Text:         sealed,
				CharStart:    currentStart,
				CharEnd:      charPos,
				IsValid:      len(sealed) >= c.MinChunkSize,
			})
			overlap := c.overlapText(current)
			current = overlap + para
			currentStart = charPos - len(overlap)
		} else {
			if current != "" {
				current += "\n\n" + para
			} else {
				current = para
				currentStart = charPos
			}
		}
		charPos += len(para) + 2
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, models.Chunk{
			PaperID:      paperID,
			Heading:      heading.Text,
			HeadingIndex: heading.Index,
			ChunkIndex:   len(chunks),
			Text:         strings.TrimSpace(current),
			CharStart:    currentStart,
			CharEnd:      len(text),
			IsValid:      len(strings.TrimSpace(current)) >= c.MinChunkSize,
		})
	}

	var final []models.Chunk
	for _, ch := range chunks {
		if len(ch.Text) > c.MaxChunkSize*3/2 {
			final = append(final, c.splitLargeChunk(ch, paperID, heading, len(final))...)
		} else {
			ch.ChunkIndex = len(final)
			final = append(final, ch)
		}
	}

	for i := range final {
		final[i].ChunkIndex = i
		final[i].ChunkID = models.ChunkID(paperID, heading.Index, i)
	}
	return final
}

func (c *Chunker) splitLargeChunk(chunk models.Chunk, paperID string, heading *models.Heading, startIndex int) []models.Chunk {
	sentences := c.SplitSentences(chunk.Text)

	var subChunks []models.Chunk
	current := ""
	currentStart := chunk.CharStart

	for _, sent := range sentences {
		if len(current)+len(sent)+1 > c.MaxChunkSize {
			if strings.TrimSpace(current) != "" {
				subChunks = append(subChunks, models.Chunk{
					PaperID:      paperID,
					Heading:      heading.Text,
					HeadingIndex: heading.Index,
					ChunkIndex:   startIndex + len(subChunks),
					Text:         strings.TrimSpace(current),
					CharStart:    currentStart,
					CharEnd:      currentStart + len(current),
					IsValid:      len(strings.TrimSpace(current)) >= c.MinChunkSize,
				})
				currentStart += len(current)
			}
			overlap := c.overlapText(current)
			current = overlap + sent
			currentStart -= len(overlap)
		} else if current != "" {
			current += " " + sent
		} else {
			current = sent
		}
	}

	if strings.TrimSpace(current) != "" {
		subChunks = append(subChunks, models.Chunk{
			PaperID:      paperID,
			Heading:      heading.Text,
			HeadingIndex: heading.Index,
			ChunkIndex:   startIndex + len(subChunks),
			Text:         strings.TrimSpace(current),
			CharStart:    currentStart,
			CharEnd:      chunk.CharEnd,
			IsValid:      len(strings.TrimSpace(current)) >= c.MinChunkSize,
		})
	}
	return subChunks
}

// overlapText returns the tail of the previous chunk, trimmed to the first
// word boundary so the next chunk does not start mid-word.
func (c *Chunker) overlapText(text string) string {
	if len(text) <= c.ChunkOverlap {
		return ""
	}
	region := text[len(text)-c.ChunkOverlap:]
	if idx := strings.Index(region, " "); idx > 0 {
		return region[idx+1:]
	}
	return region
}

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	runsOfSpace    = regexp.MustCompile(`[ \t]+`)
	citationMarker = regexp.MustCompile(`\[\d+\]`)
	figureRef      = regexp.MustCompile(`Fig\.\s*\d+`)
	paragraphSplit = regexp.MustCompile(`\n\s*\n|\n(#+\s)`)
)

func cleanText(text string) string {
	if text == "" {
		return ""
	}
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	text = runsOfSpace.ReplaceAllString(text, " ")
	text = citationMarker.ReplaceAllString(text, "")
	text = figureRef.ReplaceAllString(text, "Figure")
	return strings.TrimSpace(text)
}

func splitParagraphs(text string) []string {
	// Keep markdown headings with the paragraph they introduce.
	marked := paragraphSplit.ReplaceAllString(text, "\n\n$1")
	parts := strings.Split(marked, "\n\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
