package rag

import "strings"

// Segment is one rendered piece of a response: prose, or a fenced code
// block with an optional inferred language.
type Segment struct {
	Code     bool   `json:"code"`
	Language string `json:"language,omitempty"`
	Text     string `json:"text"`
}

var knownLanguages = map[string]bool{
	"python":     true,
	"javascript": true,
	"typescript": true,
	"html":       true,
	"css":        true,
	"json":       true,
	"go":         true,
}

// Format splits a cleaned response on triple-backtick fences. Segments
// alternate prose and code; whitespace-only prose segments are dropped.
// When the first line of a fenced segment names a known language it
// becomes the segment's language tag instead of code text.
func Format(s string) []Segment {
	if !strings.Contains(s, "```") {
		return []Segment{{Text: s}}
	}

	parts := strings.Split(s, "```")
	segments := make([]Segment, 0, len(parts))
	for i, part := range parts {
		if i%2 == 0 {
			if strings.TrimSpace(part) == "" {
				continue
			}
			segments = append(segments, Segment{Text: part})
			continue
		}
		lang, code := inferLanguage(part)
		segments = append(segments, Segment{Code: true, Language: lang, Text: code})
	}
	return segments
}

func inferLanguage(part string) (string, string) {
	trimmed := strings.TrimSpace(part)
	lines := strings.Split(trimmed, "\n")
	// A fence may carry a language tag with no code after it.
	if knownLanguages[strings.TrimSpace(lines[0])] {
		return strings.TrimSpace(lines[0]), strings.Join(lines[1:], "\n")
	}
	return "", part
}
