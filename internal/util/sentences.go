package util

import (
	"regexp"
	"strings"
)

// SentenceSplitter turns idea text into the ordered sentence list that all
// downstream scoring indexes into. Segmentation is pluggable; the pipeline
// only requires that the same splitter is used for the whole run.
type SentenceSplitter func(text string) []string

// sentence boundary: terminal punctuation, whitespace, then a capital letter.
var sentenceBoundary = regexp.MustCompile(`([.!?])\s+([A-Z])`)

// SplitSentences is the default splitter. Sentences shorter than 10
// characters are dropped as fragments.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	marked := sentenceBoundary.ReplaceAllString(text, "$1\x1f$2")
	parts := strings.Split(marked, "\x1f")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) > 10 {
			out = append(out, p)
		}
	}
	return out
}
