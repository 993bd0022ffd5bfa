package chunker

import (
	"testing"

	"github.com/sammcj/depindex/internal/chunker/markdown"
)

func TestMarkdownChunkParserNameFallback(t *testing.T) {
	source := []byte("```go\nfunc A() {}\n```\n\n```go\nfunc B() {}\n```\n")
	chunks, err := (markdownChunkParser{}).Parse(source, "README.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Name != "go_0" || chunks[1].Name != "go_1" {
		t.Errorf("got names %q, %q, want go_0, go_1", chunks[0].Name, chunks[1].Name)
	}
	if chunks[0].Type != ChunkDocumentation {
		t.Errorf("expected ChunkDocumentation, got %q", chunks[0].Type)
	}
}

func TestMarkdownChunkParserUsesHeadingSlugWhenPresent(t *testing.T) {
	blocks := markdown.ExtractCodeBlocks([]byte("# My Heading\n\n```go\nfunc A() {}\n```\n"))
	if len(blocks) != 1 || blocks[0].HeadingSlug != "my-heading" {
		t.Fatalf("precondition failed: %+v", blocks)
	}

	chunks, err := (markdownChunkParser{}).Parse([]byte("# My Heading\n\n```go\nfunc A() {}\n```\n"), "README.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Name != "my-heading" {
		t.Errorf("got %+v, want one chunk named my-heading", chunks)
	}
}
