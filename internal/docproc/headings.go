package docproc

import (
	"regexp"
	"strings"

	"ideascope/internal/models"
)

// canonicalSections is the heading vocabulary of a typical arXiv paper, in
// reading order. Section text is everything between one matched heading and
// the next; references and appendices are cut off.
var canonicalSections = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"Abstract", regexp.MustCompile(`(?im)^\s*(?:\d+\.?\s*)?abstract\b`)},
	{"Introduction", regexp.MustCompile(`(?im)^\s*(?:\d+\.?\s*)?introduction\b`)},
	{"Background", regexp.MustCompile(`(?im)^\s*(?:\d+\.?\s*)?(?:background|preliminaries)\b`)},
	{"Related Work", regexp.MustCompile(`(?im)^\s*(?:\d+\.?\s*)?related\s+works?\b`)},
	{"Method", regexp.MustCompile(`(?im)^\s*(?:\d+\.?\s*)?(?:methods?|methodology|approach|proposed\s+(?:method|approach|model))\b`)},
	{"Experiments", regexp.MustCompile(`(?im)^\s*(?:\d+\.?\s*)?(?:experiments?|experimental\s+setup|evaluation)\b`)},
	{"Results", regexp.MustCompile(`(?im)^\s*(?:\d+\.?\s*)?(?:results?|findings)\b`)},
	{"Discussion", regexp.MustCompile(`(?im)^\s*(?:\d+\.?\s*)?(?:discussion|limitations)\b`)},
	{"Conclusion", regexp.MustCompile(`(?im)^\s*(?:\d+\.?\s*)?(?:conclusions?|summary)\b`)},
}

var stopSection = regexp.MustCompile(`(?im)^\s*(?:\d+\.?\s*)?(?:references|bibliography|acknowledg(?:e)?ments?|appendix)\b`)

type headingMark struct {
	name string
	pos  int
}

// SplitHeadings carves extracted paper text into canonical sections. When no
// canonical heading matches, the whole body becomes a single "Full Text"
// heading so the paper still gets chunked and indexed.
func SplitHeadings(paperID, text string) []models.Heading {
	end := len(text)
	if loc := stopSection.FindStringIndex(text); loc != nil {
		end = loc[0]
	}
	body := text[:end]

	marks := make([]headingMark, 0, len(canonicalSections))
	for _, section := range canonicalSections {
		if loc := section.pattern.FindStringIndex(body); loc != nil {
			marks = append(marks, headingMark{name: section.name, pos: loc[0]})
		}
	}
	// Keep document order, not vocabulary order.
	for i := 1; i < len(marks); i++ {
		for j := i; j > 0 && marks[j].pos < marks[j-1].pos; j-- {
			marks[j], marks[j-1] = marks[j-1], marks[j]
		}
	}

	if len(marks) == 0 {
		body = strings.TrimSpace(body)
		if body == "" {
			return nil
		}
		return []models.Heading{{
			HeadingID:   models.HeadingID(paperID, 1),
			PaperID:     paperID,
			Index:       1,
			Level:       1,
			Text:        "Full Text",
			SectionText: body,
			IsValid:     true,
		}}
	}

	headings := make([]models.Heading, 0, len(marks))
	for i, m := range marks {
		sectionEnd := len(body)
		if i+1 < len(marks) {
			sectionEnd = marks[i+1].pos
		}
		section := body[m.pos:sectionEnd]
		// Drop the heading line itself.
		if nl := strings.IndexByte(section, '\n'); nl >= 0 {
			section = section[nl+1:]
		} else {
			section = ""
		}
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		idx := len(headings) + 1
		headings = append(headings, models.Heading{
			HeadingID:   models.HeadingID(paperID, idx),
			PaperID:     paperID,
			Index:       idx,
			Level:       1,
			Text:        m.name,
			RawText:     firstLine(body[m.pos:sectionEnd]),
			SectionText: section,
			IsValid:     true,
		})
	}
	return headings
}

func firstLine(s string) string {
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[:nl]
	}
	return strings.TrimSpace(s)
}
