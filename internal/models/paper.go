package models

import (
	"fmt"
	"time"
)

// Chunk is the atomic unit for embedding and retrieval. Its id is derived
// from position, so re-chunking the same section always reproduces it.
type Chunk struct {
	ChunkID       string `json:"chunk_id"`
	PaperID       string `json:"paper_id"`
	Heading       string `json:"heading"`
	HeadingIndex  int    `json:"heading_index"`
	ChunkIndex    int    `json:"chunk_index"`
	Text          string `json:"text"`
	CharStart     int    `json:"char_start"`
	CharEnd       int    `json:"char_end"`
	IsValid       bool   `json:"is_valid"`
	QualityReason string `json:"quality_reason,omitempty"`
}

func ChunkID(paperID string, headingIndex, chunkIndex int) string {
	return fmt.Sprintf("%s_h%02d_c%02d", paperID, headingIndex, chunkIndex)
}

func HeadingID(paperID string, index int) string {
	return fmt.Sprintf("%s_h%02d", paperID, index)
}

// Heading is a labeled section of a paper with the chunks carved from it.
// Index values are unique and increasing within a paper in document order.
type Heading struct {
	HeadingID    string  `json:"heading_id"`
	PaperID      string  `json:"paper_id"`
	Index        int     `json:"index"`
	Level        int     `json:"level"`
	Text         string  `json:"text"`
	RawText      string  `json:"raw_text"`
	SectionText  string  `json:"section_text"`
	Chunks       []Chunk `json:"chunks,omitempty"`
	IsValid      bool    `json:"is_valid"`
	QualityScore float64 `json:"quality_score"`
}

type Paper struct {
	PaperID       string    `json:"paper_id"`
	ArxivID       string    `json:"arxiv_id"`
	Title         string    `json:"title"`
	Abstract      string    `json:"abstract"`
	URL           string    `json:"url"`
	PDFURL        string    `json:"pdf_url"`
	Authors       []string  `json:"authors,omitempty"`
	Categories    []string  `json:"categories,omitempty"`
	PublishedDate string    `json:"published_date,omitempty"`
	Headings      []Heading `json:"headings,omitempty"`

	IsProcessed     bool       `json:"is_processed"`
	ProcessingError string     `json:"processing_error,omitempty"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
}

func (p *Paper) TotalChunks() int {
	n := 0
	for _, h := range p.Headings {
		n += len(h.Chunks)
	}
	return n
}

func (p *Paper) ValidChunks() []Chunk {
	out := make([]Chunk, 0, p.TotalChunks())
	for _, h := range p.Headings {
		for _, c := range h.Chunks {
			if c.IsValid {
				out = append(out, c)
			}
		}
	}
	return out
}
