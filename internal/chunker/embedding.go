package chunker

import (
	"strings"
	"unicode/utf8"
)

// maxEmbeddingCodeBytes bounds the code portion of embedding text (spec
// §4.3): the first 1000 bytes of code, truncated on a valid UTF-8 boundary.
const maxEmbeddingCodeBytes = 1000

// EmbeddingText builds the text sent to the embedding endpoint for a chunk:
// documentation, then signature, then the first ≤1000 bytes of code,
// joined by blank lines, in that order.
func EmbeddingText(c CodeChunk) string {
	var parts []string
	if c.Documentation != "" {
		parts = append(parts, c.Documentation)
	}
	if c.Signature != "" {
		parts = append(parts, c.Signature)
	}
	if code := truncateUTF8(c.Code, maxEmbeddingCodeBytes); code != "" {
		parts = append(parts, code)
	}
	return strings.Join(parts, "\n\n")
}

// truncateUTF8 truncates s to at most max bytes without splitting a UTF-8
// code point.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
