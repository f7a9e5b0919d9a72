package ingest

import "regexp"

var (
	// Three or more newline sequences (optionally CR-prefixed) collapse to two newlines.
	newlineRuns = regexp.MustCompile(`(\r?\n){3,}`)
	// Five or more non-newline whitespace characters collapse to a single instance.
	whitespaceRuns = regexp.MustCompile(`([\t\v\f\r ]){5,}`)
)

// Normalize applies whitespace hygiene to chunk contents and drops chunks
// that end up empty. It is pure text cleanup; metadata is never consulted.
func Normalize(chunks []Chunk) []Chunk {
	normalized := make([]Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		content := newlineRuns.ReplaceAllString(chunk.Content, "\n\n")
		content = whitespaceRuns.ReplaceAllString(content, "${1}")
		if content == "" {
			continue
		}
		chunk.Content = content
		normalized = append(normalized, chunk)
	}
	return normalized
}
