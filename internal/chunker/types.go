// Package chunker extracts named code declarations from source files using
// tree-sitter grammars, and from Markdown using goldmark.
package chunker

import (
	"path/filepath"
	"strings"
)

// Language is the closed set of languages this package can parse.
type Language string

const (
	LanguageTypeScript Language = "typescript"
	LanguageJavaScript Language = "javascript"
	LanguagePython     Language = "python"
	LanguageRust       Language = "rust"
	LanguageGo         Language = "go"
	LanguageJava       Language = "java"
	LanguageMarkdown   Language = "markdown"
)

// ChunkType classifies an extracted declaration.
type ChunkType string

const (
	ChunkFunction      ChunkType = "function"
	ChunkMethod        ChunkType = "method"
	ChunkClass         ChunkType = "class"
	ChunkInterface     ChunkType = "interface"
	ChunkTypeAlias     ChunkType = "type"
	ChunkConstant      ChunkType = "constant"
	ChunkModule        ChunkType = "module"
	ChunkExample       ChunkType = "example"
	ChunkDocumentation ChunkType = "documentation"
)

// Visibility is the normalised access level of a declaration.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityProtected Visibility = "protected"
	VisibilityInternal  Visibility = "internal"
	VisibilityPrivate   Visibility = "private"
)

// CodeChunk is one extracted declaration.
type CodeChunk struct {
	Type          ChunkType
	Visibility    Visibility
	Name          string
	Signature     string
	Code          string
	Documentation string
	FilePath      string
	StartLine     int // 1-indexed, inclusive
	EndLine       int // 1-indexed, inclusive
	StartByte     uint32
	EndByte       uint32 // exclusive
}

// Parser extracts chunks from one file's source. Implementations are pure
// functions of (source, filePath) after grammar initialization.
type Parser interface {
	Parse(source []byte, filePath string) ([]CodeChunk, error)
}

// DetectLanguage maps a file extension to a Language. The second return
// value is false for unsupported extensions.
func DetectLanguage(filePath string) (Language, bool) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".ts", ".mts", ".cts", ".tsx":
		return LanguageTypeScript, true
	case ".js", ".jsx", ".mjs", ".cjs":
		return LanguageJavaScript, true
	case ".py", ".pyi":
		return LanguagePython, true
	case ".rs":
		return LanguageRust, true
	case ".go":
		return LanguageGo, true
	case ".java":
		return LanguageJava, true
	case ".md", ".markdown":
		return LanguageMarkdown, true
	default:
		return "", false
	}
}
