package chunker

import (
	"strings"
	"unicode"

	"ideascope/internal/models"
)

// ValidateQuality flags chunks that would only add noise to the index:
// too short, mostly non-alphabetic, or highly repetitive.
func ValidateQuality(chunk *models.Chunk, minChunkSize int) (bool, string) {
	text := strings.TrimSpace(chunk.Text)
	if len(text) < minChunkSize {
		return false, "Chunk too short"
	}

	alpha := 0
	for _, r := range chunk.Text {
		if unicode.IsLetter(r) {
			alpha++
		}
	}
	total := len([]rune(chunk.Text))
	if total == 0 {
		total = 1
	}
	if float64(alpha)/float64(total) < 0.5 {
		return false, "Too few alphabetic characters"
	}

	words := strings.Fields(strings.ToLower(chunk.Text))
	if len(words) > 10 {
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[w] = struct{}{}
		}
		if float64(len(unique))/float64(len(words)) < 0.3 {
			return false, "Too repetitive"
		}
	}
	return true, ""
}

// Stats summarizes chunking quality across a paper.
type Stats struct {
	TotalChunks        int     `json:"total_chunks"`
	ValidChunks        int     `json:"valid_chunks"`
	InvalidChunks      int     `json:"invalid_chunks"`
	AvgChunkLength     float64 `json:"avg_chunk_length"`
	HeadingsWithChunks int     `json:"headings_with_chunks"`
}

func ChunkStats(paper *models.Paper) Stats {
	var st Stats
	totalLen := 0
	for _, h := range paper.Headings {
		if len(h.Chunks) > 0 {
			st.HeadingsWithChunks++
		}
		for _, ch := range h.Chunks {
			st.TotalChunks++
			totalLen += len(ch.Text)
			if ch.IsValid {
				st.ValidChunks++
			} else {
				st.InvalidChunks++
			}
		}
	}
	st.InvalidChunks = st.TotalChunks - st.ValidChunks
	if st.TotalChunks > 0 {
		st.AvgChunkLength = float64(totalLen) / float64(st.TotalChunks)
	}
	return st
}
