// Package chunker splits instructional text into bounded, ordered chunks.
package chunker

import (
	"regexp"
)

const (
	// DefaultMaxSize is the chunk window used when the caller passes a non-positive size.
	DefaultMaxSize = 1000
	// AutoSection is the section label attached to every chunk.
	AutoSection = "auto"
)

// sectionMarker matches a newline directly followed by a section label.
// Only the start offset is used; the label itself stays with the next segment.
var sectionMarker = regexp.MustCompile(`(?i)\n(?:Rule|Examples|Drill|Exercise|Assessment|Dialogue|Audio)`)

// Chunk is one bounded slice of a document.
type Chunk struct {
	Text       string
	Section    string
	OrderInDoc int
}

// Split cuts text at section markers and slices every segment into
// consecutive windows of at most maxSize characters (code points).
// OrderInDoc counts across the whole document. When nothing is produced
// the full text is returned as a single chunk.
func Split(text string, maxSize int) []Chunk {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	var chunks []Chunk
	order := 0
	for _, segment := range segments(text) {
		runes := []rune(segment)
		for i := 0; i < len(runes); i += maxSize {
			end := i + maxSize
			if end > len(runes) {
				end = len(runes)
			}
			chunks = append(chunks, Chunk{
				Text:       string(runes[i:end]),
				Section:    AutoSection,
				OrderInDoc: order,
			})
			order++
		}
	}

	if len(chunks) == 0 {
		return []Chunk{{Text: text, Section: AutoSection, OrderInDoc: 0}}
	}
	return chunks
}

// segments splits text before every section marker, dropping the separating newline.
func segments(text string) []string {
	matches := sectionMarker.FindAllStringIndex(text, -1)
	parts := make([]string, 0, len(matches)+1)
	start := 0
	for _, m := range matches {
		parts = append(parts, text[start:m[0]])
		start = m[0] + 1
	}
	return append(parts, text[start:])
}
