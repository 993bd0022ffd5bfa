// Package mcptools implements the three MCP tools SPEC_FULL.md exposes to
// AI-agent collaborators (search_code, list_packages, index_package), each
// wired against a single shared *app.App opened for the server's lifetime.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/depindex/internal/app"
	"github.com/sammcj/depindex/internal/search"
	"github.com/sirupsen/logrus"
)

// SearchCodeTool implements search_code(query, package?, registry?, version?, include_code?, limit?).
type SearchCodeTool struct {
	App *app.App
}

func (t *SearchCodeTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"search_code",
		mcp.WithDescription("Search indexed dependency source code by natural-language query, optionally scoped to a package, registry, or version."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language description of the code to find")),
		mcp.WithString("package", mcp.Description("Restrict to this package name")),
		mcp.WithString("registry", mcp.Description("Restrict to this registry: npm, pypi, crates, go, or maven")),
		mcp.WithString("version", mcp.Description("Restrict to this exact version (requires package and registry)")),
		mcp.WithBoolean("include_code", mcp.Description("Hydrate the full code body from the blob store instead of just the stored snippet")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 10)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

func (t *SearchCodeTool) Execute(ctx context.Context, logger *logrus.Logger, _ *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("search_code: query is required")
	}

	q := search.Query{
		Text:     query,
		Package:  stringArg(args, "package"),
		Registry: stringArg(args, "registry"),
		Version:  stringArg(args, "version"),
		Limit:    intArg(args, "limit", 10),
	}

	results, err := t.App.Search.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search_code: %w", err)
	}

	includeCode, _ := args["include_code"].(bool)
	type hit struct {
		ID         string  `json:"id"`
		Registry   string  `json:"registry"`
		Package    string  `json:"package"`
		Version    string  `json:"version"`
		ChunkType  string  `json:"chunk_type"`
		Name       string  `json:"name"`
		FilePath   string  `json:"file_path"`
		StartLine  int     `json:"start_line"`
		EndLine    int     `json:"end_line"`
		Visibility string  `json:"visibility"`
		Signature  string  `json:"signature,omitempty"`
		Docstring  string  `json:"docstring,omitempty"`
		Snippet    string  `json:"snippet"`
		Score      float64 `json:"score"`
	}

	out := make([]hit, 0, len(results))
	for _, r := range results {
		snippet := r.Snippet
		if includeCode {
			if full, err := t.App.Blobs.Get(r.StorageKey); err == nil {
				snippet = string(full)
			} else if logger != nil {
				logger.WithFields(logrus.Fields{"storage_key": r.StorageKey, "error": err.Error()}).Warn("search_code: failed to hydrate full code body")
			}
		}
		out = append(out, hit{
			ID: r.ID, Registry: r.Registry, Package: r.Package, Version: r.Version,
			ChunkType: r.ChunkType, Name: r.Name, FilePath: r.FilePath,
			StartLine: r.StartLine, EndLine: r.EndLine, Visibility: r.Visibility,
			Signature: r.Signature, Docstring: r.Docstring, Snippet: snippet, Score: r.Score,
		})
	}

	body, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("search_code: marshal results: %w", err)
	}
	return mcp.NewToolResultText(string(body)), nil
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return def
}
