package markdown

import (
	"strings"
	"testing"
)

func TestExtractCodeBlocksCarriesHeadingAndParagraphs(t *testing.T) {
	source := []byte(`# Getting Started

Install the package first.

Then import it in your project.

` + "```go\nfunc Example() {}\n```\n")

	blocks := ExtractCodeBlocks(source)
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	b := blocks[0]
	if b.HeadingSlug != "getting-started" {
		t.Errorf("HeadingSlug = %q, want %q", b.HeadingSlug, "getting-started")
	}
	if b.Language != "go" {
		t.Errorf("Language = %q, want go", b.Language)
	}
	if !strings.Contains(b.Code, "func Example()") {
		t.Errorf("Code = %q", b.Code)
	}
	if len(b.Paragraphs) != 2 {
		t.Fatalf("got %d paragraphs, want 2", len(b.Paragraphs))
	}
}

func TestExtractCodeBlocksLimitsToThreePreviousParagraphs(t *testing.T) {
	source := []byte("p1\n\np2\n\np3\n\np4\n\n```text\ncode\n```\n")
	blocks := ExtractCodeBlocks(source)
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	if len(blocks[0].Paragraphs) != 3 {
		t.Fatalf("got %d paragraphs, want 3", len(blocks[0].Paragraphs))
	}
	if blocks[0].Paragraphs[0] != "p2" {
		t.Errorf("expected oldest paragraph to be dropped, got %v", blocks[0].Paragraphs)
	}
}
