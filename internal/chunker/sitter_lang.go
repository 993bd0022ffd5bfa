//go:build cgo && (darwin || (linux && amd64))

package chunker

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// sitterLanguage returns the tree-sitter grammar for a code language, or nil
// for languages this package does not parse with tree-sitter (Markdown).
func sitterLanguage(lang Language) *sitter.Language {
	switch lang {
	case LanguageTypeScript:
		return typescript.GetLanguage()
	case LanguageJavaScript:
		return javascript.GetLanguage()
	case LanguagePython:
		return python.GetLanguage()
	case LanguageRust:
		return rust.GetLanguage()
	case LanguageGo:
		return golang.GetLanguage()
	case LanguageJava:
		return java.GetLanguage()
	default:
		return nil
	}
}

// bodyNodeTypes returns the node types marking a declaration's body, used to
// find the boundary between signature and body.
func bodyNodeTypes(lang Language) []string {
	switch lang {
	case LanguagePython:
		return []string{"block"}
	case LanguageGo:
		return []string{"block"}
	case LanguageTypeScript, LanguageJavaScript:
		return []string{"statement_block"}
	case LanguageRust:
		return []string{"block"}
	case LanguageJava:
		return []string{"block"}
	default:
		return nil
	}
}

// commentNodeType is the tree-sitter node type representing a comment for a
// given language; all six code grammars here use the same generic name.
func commentNodeType(lang Language) string {
	return "comment"
}
