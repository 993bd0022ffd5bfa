// Package markdown extracts fenced code blocks from Markdown documents,
// carrying nearby heading and paragraph context for documentation binding.
package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock is one fenced code block with its surrounding context.
type CodeBlock struct {
	Language    string
	Code        string
	HeadingSlug string
	Paragraphs  []string
	StartLine   int // 1-indexed
	EndLine     int // 1-indexed
	StartByte   uint32
	EndByte     uint32
}

// ExtractCodeBlocks walks source's Markdown AST and returns each fenced
// code block paired with the nearest preceding heading and up to three
// preceding paragraphs.
func ExtractCodeBlocks(source []byte) []CodeBlock {
	md := goldmark.New()
	reader := text.NewReader(source)
	doc := md.Parser().Parse(reader)

	var blocks []CodeBlock
	var currentHeading string
	var paragraphs []string

	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			switch node := child.(type) {
			case *ast.Heading:
				currentHeading = headingSlug(node, source)
				paragraphs = nil
			case *ast.Paragraph:
				text := paragraphText(node, source)
				if text != "" {
					paragraphs = append(paragraphs, text)
					if len(paragraphs) > 3 {
						paragraphs = paragraphs[len(paragraphs)-3:]
					}
				}
			case *ast.FencedCodeBlock:
				code := fencedCodeText(node, source)
				lang := string(node.Language(source))
				lines := node.Lines()
				var startByte, endByte uint32
				startLine, endLine := 0, 0
				if lines.Len() > 0 {
					first := lines.At(0)
					last := lines.At(lines.Len() - 1)
					startByte = uint32(first.Start)
					endByte = uint32(last.Stop)
					startLine = lineNumber(source, first.Start)
					endLine = lineNumber(source, last.Start)
				}
				blocks = append(blocks, CodeBlock{
					Language:    lang,
					Code:        code,
					HeadingSlug: currentHeading,
					Paragraphs:  append([]string(nil), paragraphs...),
					StartLine:   startLine,
					EndLine:     endLine,
					StartByte:   startByte,
					EndByte:     endByte,
				})
			}
			walk(child)
		}
	}
	walk(doc)
	return blocks
}

func fencedCodeText(node *ast.FencedCodeBlock, source []byte) string {
	var sb strings.Builder
	for i := 0; i < node.Lines().Len(); i++ {
		line := node.Lines().At(i)
		sb.Write(line.Value(source))
	}
	return sb.String()
}

func paragraphText(node *ast.Paragraph, source []byte) string {
	var sb strings.Builder
	for i := 0; i < node.Lines().Len(); i++ {
		line := node.Lines().At(i)
		sb.Write(line.Value(source))
	}
	return strings.TrimSpace(sb.String())
}

func headingSlug(node *ast.Heading, source []byte) string {
	var sb strings.Builder
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		if seg, ok := c.(*ast.Text); ok {
			sb.Write(seg.Segment.Value(source))
		}
	}
	return slugify(sb.String())
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var sb strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(sb.String(), "-")
}

func lineNumber(source []byte, offset int) int {
	if offset > len(source) {
		offset = len(source)
	}
	return 1 + strings.Count(string(source[:offset]), "\n")
}
