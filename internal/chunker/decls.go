//go:build cgo && (darwin || (linux && amd64))

package chunker

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// maxASTDepth bounds recursion over pathological/adversarial trees.
const maxASTDepth = 500

// collectChunks dispatches to the per-language declaration walker.
func collectChunks(root *sitter.Node, source []byte, lang Language, filePath string) []CodeChunk {
	switch lang {
	case LanguageGo:
		return collectGoChunks(root, source, filePath)
	case LanguagePython:
		return collectPythonChunks(root, source, filePath)
	case LanguageRust:
		return collectRustChunks(root, source, filePath)
	case LanguageJava:
		return collectJavaChunks(root, source, filePath)
	case LanguageTypeScript, LanguageJavaScript:
		return collectTSJSChunks(root, source, lang, filePath)
	default:
		return nil
	}
}

func identifierName(node *sitter.Node, source []byte) string {
	childCount := int(node.ChildCount())
	for i := 0; i < childCount; i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "identifier", "type_identifier", "field_identifier", "property_identifier", "name":
			return string(source[child.StartByte():child.EndByte()])
		}
	}
	return ""
}

func firstLine(code string) string {
	if idx := strings.IndexByte(code, '\n'); idx >= 0 {
		return strings.TrimSpace(code[:idx])
	}
	return strings.TrimSpace(code)
}

// extractSignature returns the span from the declaration start through its
// parameter/return-type prefix (everything before the body node), falling
// back to the first line of code when no body is found (spec §4.3).
func extractSignature(node *sitter.Node, source []byte, lang Language) string {
	bodyTypes := bodyNodeTypes(lang)
	var bodyStart uint32
	childCount := int(node.ChildCount())
	for i := 0; i < childCount; i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if contains(bodyTypes, child.Type()) {
			bodyStart = child.StartByte()
			break
		}
	}

	sigStart := node.StartByte()
	sigEnd := bodyStart
	if sigEnd == 0 || sigEnd <= sigStart || sigEnd > uint32(len(source)) {
		code := string(source[node.StartByte():node.EndByte()])
		return firstLine(code)
	}

	sig := strings.TrimSpace(string(source[sigStart:sigEnd]))
	sig = strings.TrimSuffix(sig, "{")
	sig = strings.TrimSuffix(sig, ":")
	sig = strings.TrimSpace(sig)
	sig = strings.Join(strings.Fields(sig), " ")
	if sig == "" {
		return firstLine(string(source[node.StartByte():node.EndByte()]))
	}
	return sig
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}

func makeChunk(node *sitter.Node, source []byte, lang Language, filePath string, typ ChunkType, vis Visibility, name string) CodeChunk {
	return CodeChunk{
		Type:          typ,
		Visibility:    vis,
		Name:          name,
		Signature:     extractSignature(node, source, lang),
		Code:          string(source[node.StartByte():node.EndByte()]),
		Documentation: bindDocumentation(node, source, lang),
		FilePath:      filePath,
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
		StartByte:     node.StartByte(),
		EndByte:       node.EndByte(),
	}
}

// --- Go ---

func collectGoChunks(root *sitter.Node, source []byte, filePath string) []CodeChunk {
	var chunks []CodeChunk
	var walk func(node *sitter.Node, depth int)
	walk = func(node *sitter.Node, depth int) {
		if node == nil || depth >= maxASTDepth {
			return
		}
		switch node.Type() {
		case "function_declaration":
			name := identifierName(node, source)
			if name != "" {
				chunks = append(chunks, makeChunk(node, source, LanguageGo, filePath, ChunkFunction, goVisibility(name), name))
			}
		case "method_declaration":
			name := identifierName(node, source)
			if name != "" {
				chunks = append(chunks, makeChunk(node, source, LanguageGo, filePath, ChunkMethod, goVisibility(name), name))
			}
		case "type_declaration":
			chunks = append(chunks, collectGoTypeSpecs(node, source, filePath)...)
			return
		}
		childCount := int(node.ChildCount())
		for i := 0; i < childCount; i++ {
			walk(node.Child(i), depth+1)
		}
	}
	walk(root, 0)
	return chunks
}

func collectGoTypeSpecs(typeDecl *sitter.Node, source []byte, filePath string) []CodeChunk {
	var specs []*sitter.Node
	childCount := int(typeDecl.ChildCount())
	for i := 0; i < childCount; i++ {
		child := typeDecl.Child(i)
		if child != nil && child.Type() == "type_spec" {
			specs = append(specs, child)
		}
	}

	var chunks []CodeChunk
	for _, spec := range specs {
		name := identifierName(spec, source)
		if name == "" {
			continue
		}
		typ := ChunkTypeAlias
		specChildren := int(spec.ChildCount())
		for i := 0; i < specChildren; i++ {
			child := spec.Child(i)
			if child == nil {
				continue
			}
			switch child.Type() {
			case "struct_type":
				typ = ChunkTypeAlias
			case "interface_type":
				typ = ChunkInterface
			}
		}
		docNode := spec
		if len(specs) == 1 {
			docNode = typeDecl
		}
		chunk := makeChunk(spec, source, LanguageGo, filePath, typ, goVisibility(name), name)
		chunk.Documentation = bindDocumentation(docNode, source, LanguageGo)
		chunks = append(chunks, chunk)
	}
	return chunks
}

// --- Python ---

func collectPythonChunks(root *sitter.Node, source []byte, filePath string) []CodeChunk {
	var chunks []CodeChunk
	var walk func(node *sitter.Node, depth int)
	walk = func(node *sitter.Node, depth int) {
		if node == nil || depth >= maxASTDepth {
			return
		}
		switch node.Type() {
		case "function_definition":
			name := identifierName(node, source)
			if name != "" {
				chunks = append(chunks, makeChunk(node, source, LanguagePython, filePath, ChunkFunction, pythonVisibility(name), name))
			}
		case "class_definition":
			name := identifierName(node, source)
			if name != "" {
				chunks = append(chunks, makeChunk(node, source, LanguagePython, filePath, ChunkClass, pythonVisibility(name), name))
			}
		}
		childCount := int(node.ChildCount())
		for i := 0; i < childCount; i++ {
			walk(node.Child(i), depth+1)
		}
	}
	walk(root, 0)
	return chunks
}

// --- Rust ---

func collectRustChunks(root *sitter.Node, source []byte, filePath string) []CodeChunk {
	var chunks []CodeChunk
	var walk func(node *sitter.Node, depth int, inImpl bool)
	walk = func(node *sitter.Node, depth int, inImpl bool) {
		if node == nil || depth >= maxASTDepth {
			return
		}
		switch node.Type() {
		case "function_item":
			name := identifierName(node, source)
			if name != "" {
				vis := rustVisibility(rustVisibilityModifier(node, source))
				typ := ChunkFunction
				if inImpl {
					typ = ChunkMethod
				}
				chunks = append(chunks, makeChunk(node, source, LanguageRust, filePath, typ, vis, name))
			}
		case "struct_item", "enum_item":
			name := identifierName(node, source)
			if name != "" {
				chunks = append(chunks, makeChunk(node, source, LanguageRust, filePath, ChunkTypeAlias, rustVisibility(rustVisibilityModifier(node, source)), name))
			}
		case "trait_item":
			name := identifierName(node, source)
			if name != "" {
				chunks = append(chunks, makeChunk(node, source, LanguageRust, filePath, ChunkInterface, rustVisibility(rustVisibilityModifier(node, source)), name))
			}
		}
		childInImpl := inImpl || node.Type() == "impl_item"
		childCount := int(node.ChildCount())
		for i := 0; i < childCount; i++ {
			walk(node.Child(i), depth+1, childInImpl)
		}
	}
	walk(root, 0, false)
	return chunks
}

func rustVisibilityModifier(node *sitter.Node, source []byte) string {
	childCount := int(node.ChildCount())
	for i := 0; i < childCount; i++ {
		child := node.Child(i)
		if child != nil && child.Type() == "visibility_modifier" {
			return string(source[child.StartByte():child.EndByte()])
		}
	}
	return ""
}

// --- Java ---

func collectJavaChunks(root *sitter.Node, source []byte, filePath string) []CodeChunk {
	var chunks []CodeChunk
	var walk func(node *sitter.Node, depth int)
	walk = func(node *sitter.Node, depth int) {
		if node == nil || depth >= maxASTDepth {
			return
		}
		switch node.Type() {
		case "method_declaration":
			name := identifierName(node, source)
			if name != "" {
				chunks = append(chunks, makeChunk(node, source, LanguageJava, filePath, ChunkMethod, javaVisibility(javaModifiers(node, source)), name))
			}
		case "class_declaration":
			name := identifierName(node, source)
			if name != "" {
				chunks = append(chunks, makeChunk(node, source, LanguageJava, filePath, ChunkClass, javaVisibility(javaModifiers(node, source)), name))
			}
		case "interface_declaration":
			name := identifierName(node, source)
			if name != "" {
				chunks = append(chunks, makeChunk(node, source, LanguageJava, filePath, ChunkInterface, javaVisibility(javaModifiers(node, source)), name))
			}
		case "enum_declaration":
			name := identifierName(node, source)
			if name != "" {
				chunks = append(chunks, makeChunk(node, source, LanguageJava, filePath, ChunkClass, javaVisibility(javaModifiers(node, source)), name))
			}
		}
		childCount := int(node.ChildCount())
		for i := 0; i < childCount; i++ {
			walk(node.Child(i), depth+1)
		}
	}
	walk(root, 0)
	return chunks
}

func javaModifiers(node *sitter.Node, source []byte) []string {
	childCount := int(node.ChildCount())
	for i := 0; i < childCount; i++ {
		child := node.Child(i)
		if child == nil || child.Type() != "modifiers" {
			continue
		}
		var mods []string
		modCount := int(child.ChildCount())
		for j := 0; j < modCount; j++ {
			m := child.Child(j)
			if m != nil {
				mods = append(mods, string(source[m.StartByte():m.EndByte()]))
			}
		}
		return mods
	}
	return nil
}

// --- TypeScript / JavaScript ---

func collectTSJSChunks(root *sitter.Node, source []byte, lang Language, filePath string) []CodeChunk {
	var chunks []CodeChunk
	var walk func(node *sitter.Node, depth int)
	walk = func(node *sitter.Node, depth int) {
		if node == nil || depth >= maxASTDepth {
			return
		}
		switch node.Type() {
		case "function_declaration":
			name := identifierName(node, source)
			if name != "" {
				chunks = append(chunks, makeChunk(node, source, lang, filePath, ChunkFunction, tsVisibility(name, isExported(node)), name))
			}
		case "method_definition":
			name := identifierName(node, source)
			if name != "" {
				chunks = append(chunks, makeChunk(node, source, lang, filePath, ChunkMethod, tsVisibility(name, isExported(node)), name))
			}
		case "class_declaration":
			name := identifierName(node, source)
			if name != "" {
				chunks = append(chunks, makeChunk(node, source, lang, filePath, ChunkClass, tsVisibility(name, isExported(node)), name))
			}
		case "interface_declaration":
			if lang == LanguageTypeScript {
				name := identifierName(node, source)
				if name != "" {
					chunks = append(chunks, makeChunk(node, source, lang, filePath, ChunkInterface, tsVisibility(name, isExported(node)), name))
				}
			}
		case "type_alias_declaration":
			if lang == LanguageTypeScript {
				name := identifierName(node, source)
				if name != "" {
					chunks = append(chunks, makeChunk(node, source, lang, filePath, ChunkTypeAlias, tsVisibility(name, isExported(node)), name))
				}
			}
		case "lexical_declaration":
			chunks = append(chunks, collectConstArrowFunctions(node, source, lang, filePath)...)
		}
		childCount := int(node.ChildCount())
		for i := 0; i < childCount; i++ {
			walk(node.Child(i), depth+1)
		}
	}
	walk(root, 0)
	return chunks
}

// collectConstArrowFunctions handles `const name = (...) => {...}` declarations.
func collectConstArrowFunctions(lexDecl *sitter.Node, source []byte, lang Language, filePath string) []CodeChunk {
	isConst := false
	childCount := int(lexDecl.ChildCount())
	for i := 0; i < childCount; i++ {
		child := lexDecl.Child(i)
		if child != nil && child.Type() == "const" {
			isConst = true
		}
	}
	if !isConst {
		return nil
	}

	var chunks []CodeChunk
	for i := 0; i < childCount; i++ {
		declarator := lexDecl.Child(i)
		if declarator == nil || declarator.Type() != "variable_declarator" {
			continue
		}
		var name string
		var arrow *sitter.Node
		declChildren := int(declarator.ChildCount())
		for j := 0; j < declChildren; j++ {
			child := declarator.Child(j)
			if child == nil {
				continue
			}
			switch child.Type() {
			case "identifier":
				name = string(source[child.StartByte():child.EndByte()])
			case "arrow_function":
				arrow = child
			}
		}
		if name == "" || arrow == nil {
			continue
		}
		chunk := makeChunk(lexDecl, source, lang, filePath, ChunkFunction, tsVisibility(name, isExported(lexDecl)), name)
		chunk.Signature = extractSignature(arrow, source, lang)
		chunks = append(chunks, chunk)
	}
	return chunks
}

// isExported reports whether any ancestor of node below the program root is
// an export_statement (covers both `export function f` and `export const x`).
func isExported(node *sitter.Node) bool {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "export_statement" {
			return true
		}
		if p.Type() == "program" {
			return false
		}
	}
	return false
}
