package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/depindex/internal/app"
	"github.com/sammcj/depindex/internal/depreg"
	"github.com/sirupsen/logrus"
)

// IndexPackageTool implements index_package(registry, package, version).
type IndexPackageTool struct {
	App *app.App
}

func (t *IndexPackageTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"index_package",
		mcp.WithDescription("Download, chunk, embed, and index one exact (registry, package, version). Skips if already indexed."),
		mcp.WithString("registry", mcp.Required(), mcp.Description("npm, pypi, crates, go, or maven"), mcp.Enum("npm", "pypi", "crates", "go", "maven")),
		mcp.WithString("package", mcp.Required(), mcp.Description("Package name")),
		mcp.WithString("version", mcp.Required(), mcp.Description("Exact version string")),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

func (t *IndexPackageTool) Execute(ctx context.Context, _ *logrus.Logger, _ *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	registry := depreg.Registry(stringArg(args, "registry"))
	if !registry.Valid() {
		return nil, fmt.Errorf("index_package: unknown registry %q", args["registry"])
	}
	name := stringArg(args, "package")
	if name == "" {
		return nil, fmt.Errorf("index_package: package is required")
	}
	version := stringArg(args, "version")
	if version == "" {
		return nil, fmt.Errorf("index_package: version is required")
	}

	result, err := t.App.Indexer.IndexVersion(ctx, registry, name, version)
	if err != nil {
		return nil, fmt.Errorf("index_package: %w", err)
	}

	body, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("index_package: marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(body)), nil
}
