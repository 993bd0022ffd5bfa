package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/depindex/internal/app"
	"github.com/sirupsen/logrus"
)

// ListPackagesTool implements list_packages(registry?).
type ListPackagesTool struct {
	App *app.App
}

func (t *ListPackagesTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"list_packages",
		mcp.WithDescription("List packages currently indexed, with each version's status."),
		mcp.WithString("registry", mcp.Description("Restrict to this registry: npm, pypi, crates, go, or maven")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

func (t *ListPackagesTool) Execute(_ context.Context, _ *logrus.Logger, _ *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	registryFilter := stringArg(args, "registry")

	packages, err := t.App.Meta.ListPackages()
	if err != nil {
		return nil, fmt.Errorf("list_packages: %w", err)
	}

	type versionEntry struct {
		Version    string `json:"version"`
		Status     string `json:"status"`
		ChunkCount int    `json:"chunk_count"`
	}
	type packageEntry struct {
		Registry string         `json:"registry"`
		Name     string         `json:"name"`
		Versions []versionEntry `json:"versions"`
	}

	out := make([]packageEntry, 0, len(packages))
	for _, pkg := range packages {
		if registryFilter != "" && pkg.Registry != registryFilter {
			continue
		}
		versions, err := t.App.Meta.ListVersions(pkg.ID)
		if err != nil {
			return nil, fmt.Errorf("list_packages: list versions for %s/%s: %w", pkg.Registry, pkg.Name, err)
		}
		entry := packageEntry{Registry: pkg.Registry, Name: pkg.Name}
		for _, v := range versions {
			entry.Versions = append(entry.Versions, versionEntry{
				Version: v.VersionString, Status: string(v.Status), ChunkCount: v.ChunkCount,
			})
		}
		out = append(out, entry)
	}

	body, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("list_packages: marshal results: %w", err)
	}
	return mcp.NewToolResultText(string(body)), nil
}
