//go:build cgo && (darwin || (linux && amd64))

package chunker

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// bindDocumentation walks node's preceding siblings collecting the
// contiguous run of comment nodes immediately adjacent to node (no
// blank-line gap of 2 or more lines), then cleans the recognised doc-comment
// style for lang (spec §4.3). Empty documentation is returned as "".
func bindDocumentation(node *sitter.Node, source []byte, lang Language) string {
	if lang == LanguagePython {
		if doc := pythonDocstring(node, source); doc != "" {
			return doc
		}
		return ""
	}

	parent := node.Parent()
	if parent == nil {
		return ""
	}

	var comments []*sitter.Node
	nextLine := int(node.StartPoint().Row)
	childCount := int(parent.ChildCount())
	// Find node's index among parent's children.
	idx := -1
	for i := 0; i < childCount; i++ {
		if parent.Child(i) == node {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ""
	}

	commentType := commentNodeType(lang)
	for i := idx - 1; i >= 0; i-- {
		sib := parent.Child(i)
		if sib == nil {
			continue
		}
		if sib.Type() != commentType {
			break
		}
		gap := nextLine - int(sib.EndPoint().Row)
		if gap >= 2 {
			break
		}
		comments = append([]*sitter.Node{sib}, comments...)
		nextLine = int(sib.StartPoint().Row)
	}
	if len(comments) == 0 {
		return ""
	}

	var lines []string
	for _, c := range comments {
		raw := string(source[c.StartByte():c.EndByte()])
		lines = append(lines, cleanDocComment(raw, lang)...)
	}
	doc := strings.TrimSpace(strings.Join(lines, "\n"))
	return doc
}

// cleanDocComment strips comment-syntax markers from one raw comment node's
// text, yielding its content lines.
func cleanDocComment(raw string, lang Language) []string {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "/**"):
		body := strings.TrimSuffix(strings.TrimPrefix(raw, "/**"), "*/")
		return stripLeadingStars(body)
	case strings.HasPrefix(raw, "/*"):
		body := strings.TrimSuffix(strings.TrimPrefix(raw, "/*"), "*/")
		return stripLeadingStars(body)
	case strings.HasPrefix(raw, "///"):
		return []string{strings.TrimSpace(strings.TrimPrefix(raw, "///"))}
	case strings.HasPrefix(raw, "//!"):
		return []string{strings.TrimSpace(strings.TrimPrefix(raw, "//!"))}
	case strings.HasPrefix(raw, "//"):
		return []string{strings.TrimSpace(strings.TrimPrefix(raw, "//"))}
	case strings.HasPrefix(raw, "#"):
		return []string{strings.TrimSpace(strings.TrimPrefix(raw, "#"))}
	default:
		return []string{raw}
	}
}

func stripLeadingStars(body string) []string {
	rawLines := strings.Split(body, "\n")
	var out []string
	for _, l := range rawLines {
		l = strings.TrimSpace(l)
		l = strings.TrimPrefix(l, "*")
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// pythonDocstring finds the first expression_statement containing a string
// inside node's body and cleans the triple-quote docstring.
func pythonDocstring(node *sitter.Node, source []byte) string {
	var body *sitter.Node
	childCount := int(node.ChildCount())
	for i := 0; i < childCount; i++ {
		child := node.Child(i)
		if child != nil && child.Type() == "block" {
			body = child
			break
		}
	}
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first == nil || first.Type() != "expression_statement" {
		return ""
	}
	if first.ChildCount() == 0 {
		return ""
	}
	strNode := first.Child(0)
	if strNode == nil || strNode.Type() != "string" {
		return ""
	}
	raw := string(source[strNode.StartByte():strNode.EndByte()])
	return cleanPythonDocstring(raw)
}

func cleanPythonDocstring(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, q := range []string{`"""`, `'''`} {
		if strings.HasPrefix(raw, q) && strings.HasSuffix(raw, q) && len(raw) >= 2*len(q) {
			raw = raw[len(q) : len(raw)-len(q)]
			break
		}
	}
	for _, q := range []string{`"`, `'`} {
		if strings.HasPrefix(raw, q) && strings.HasSuffix(raw, q) && len(raw) >= 2 {
			raw = raw[1 : len(raw)-1]
			break
		}
	}

	lines := strings.Split(raw, "\n")
	if len(lines) <= 1 {
		return strings.TrimSpace(raw)
	}

	minIndent := -1
	for _, l := range lines[1:] {
		if strings.TrimSpace(l) == "" {
			continue
		}
		indent := len(l) - len(strings.TrimLeft(l, " \t"))
		if minIndent == -1 || indent < minIndent {
			minIndent = indent
		}
	}
	if minIndent < 0 {
		minIndent = 0
	}

	out := make([]string, 0, len(lines))
	out = append(out, strings.TrimSpace(lines[0]))
	for _, l := range lines[1:] {
		if len(l) >= minIndent {
			l = l[minIndent:]
		}
		out = append(out, strings.TrimRight(l, " \t"))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
