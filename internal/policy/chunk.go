package policy

import (
	"strings"
)

// ChunkText splits a document into overlapping chunks of roughly size runes,
// breaking on paragraph and word boundaries where possible. Used by the
// ingest pipeline before embedding.
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakPoint(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
		start = end - overlap
	}
	return chunks
}

// breakPoint walks back from end looking for a paragraph break, then a line
// break, then a space, so chunks do not split mid-word.
func breakPoint(runes []rune, start, end int) int {
	window := string(runes[start:end])
	for _, sep := range []string{"\n\n", "\n", " "} {
		if idx := strings.LastIndex(window, sep); idx > 0 {
			return start + len([]rune(window[:idx+len(sep)]))
		}
	}
	return end
}
