package chunker

import (
	"fmt"
	"strings"

	"github.com/sammcj/depindex/internal/chunker/markdown"
)

// markdownChunkParser adapts internal/chunker/markdown's fenced-code-block
// extraction into CodeChunks (spec §4.3's Markdown row).
type markdownChunkParser struct{}

func (markdownChunkParser) Parse(source []byte, filePath string) ([]CodeChunk, error) {
	blocks := markdown.ExtractCodeBlocks(source)
	chunks := make([]CodeChunk, 0, len(blocks))
	langCounts := map[string]int{}
	for i, b := range blocks {
		name := b.HeadingSlug
		if name == "" {
			if b.Language != "" {
				name = fmt.Sprintf("%s_%d", b.Language, langCounts[b.Language])
				langCounts[b.Language]++
			} else {
				name = fmt.Sprintf("code_block_%d", i)
			}
		}

		var docParts []string
		if b.HeadingSlug != "" {
			docParts = append(docParts, b.HeadingSlug)
		}
		docParts = append(docParts, b.Paragraphs...)
		documentation := strings.TrimSpace(strings.Join(docParts, "\n\n"))

		chunks = append(chunks, CodeChunk{
			Type:          ChunkDocumentation,
			Visibility:    VisibilityPublic,
			Name:          name,
			Code:          b.Code,
			Documentation: documentation,
			FilePath:      filePath,
			StartLine:     b.StartLine,
			EndLine:       b.EndLine,
			StartByte:     b.StartByte,
			EndByte:       b.EndByte,
		})
	}
	return chunks, nil
}
