//go:build cgo && (darwin || (linux && amd64))

package chunker

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// treeSitterParser parses one Language via its tree-sitter grammar and a
// closed per-language declaration walker (decls.go).
type treeSitterParser struct {
	lang Language
}

func (p treeSitterParser) Parse(source []byte, filePath string) ([]CodeChunk, error) {
	grammar := sitterLanguage(p.lang)
	if grammar == nil {
		return nil, fmt.Errorf("chunker: no tree-sitter grammar registered for %s", p.lang)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(grammar)
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("chunker: parse %s: %w", filePath, err)
	}
	if tree == nil || tree.RootNode() == nil {
		return nil, nil
	}

	return collectChunks(tree.RootNode(), source, p.lang, filePath), nil
}

// parsers is the closed dispatch table from Language to Parser, built once
// at package init (spec §9 design notes: a tagged enumeration with a
// dispatch table, not an open inheritance hierarchy).
var parsers = map[Language]Parser{
	LanguageTypeScript: treeSitterParser{lang: LanguageTypeScript},
	LanguageJavaScript: treeSitterParser{lang: LanguageJavaScript},
	LanguagePython:     treeSitterParser{lang: LanguagePython},
	LanguageRust:       treeSitterParser{lang: LanguageRust},
	LanguageGo:         treeSitterParser{lang: LanguageGo},
	LanguageJava:       treeSitterParser{lang: LanguageJava},
	LanguageMarkdown:   markdownChunkParser{},
}

// ParserFor returns the registered Parser for lang, if any.
func ParserFor(lang Language) (Parser, bool) {
	p, ok := parsers[lang]
	return p, ok
}

// Parse detects filePath's language and runs its parser. An unsupported
// language, or a tree-sitter parse failure, yields an empty chunk list with
// no error (spec §4.4 step 4: per-file failures are swallowed locally).
func Parse(source []byte, filePath string) ([]CodeChunk, error) {
	lang, ok := DetectLanguage(filePath)
	if !ok {
		return nil, nil
	}
	p, ok := ParserFor(lang)
	if !ok {
		return nil, nil
	}
	chunks, err := p.Parse(source, filePath)
	if err != nil {
		return nil, nil
	}
	return chunks, nil
}
