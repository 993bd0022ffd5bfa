// Package cliapp wires the CLI verb surface (spec.md §6) onto the app
// composition root: init, update, index, search, list, status, remove,
// prune, retry, skip, stats, clean, mcp, watch.
package cliapp

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sammcj/depindex/internal/app"
	"github.com/sammcj/depindex/internal/depreg"
	"github.com/sammcj/depindex/internal/project"
	"github.com/sammcj/depindex/internal/registry"
	"github.com/sammcj/depindex/internal/search"
	"github.com/sammcj/depindex/internal/store/meta"
	"github.com/sammcj/depindex/internal/tools/mcptools"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentPackages bounds top-level per-package indexing fan-out,
// per spec.md §5's default of 4.
const maxConcurrentPackages = 4

// New builds the CLI application, sharing logger across every command.
func New(logger *logrus.Logger, version string) *cli.App {
	return &cli.App{
		Name:    "idx",
		Usage:   "index and search a project's dependency source code",
		Version: version,
		Commands: []*cli.Command{
			initCommand(logger),
			updateCommand(logger),
			indexCommand(logger),
			searchCommand(logger),
			listCommand(logger),
			statusCommand(logger),
			removeCommand(logger),
			pruneCommand(logger),
			retryCommand(logger),
			skipCommand(logger),
			statsCommand(logger),
			cleanCommand(logger),
			mcpCommand(logger),
			watchCommand(logger),
		},
	}
}

func cwd() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("cliapp: get working directory: %w", err)
	}
	return dir, nil
}

// openInitialised opens the App rooted at the nearest ancestor (or cwd)
// that already has a .index directory, erroring if none is found.
func openInitialised(logger *logrus.Logger) (*app.App, error) {
	start, err := cwd()
	if err != nil {
		return nil, err
	}
	root, initialised, err := app.FindRoot(start)
	if err != nil {
		return nil, err
	}
	if !initialised {
		return nil, fmt.Errorf("cliapp: no .index found at or above %s; run `idx init` first", start)
	}
	return app.Open(root, logger)
}

func initCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "scan manifests under the current directory and index every direct dependency",
		Action: func(c *cli.Context) error {
			root, err := cwd()
			if err != nil {
				return err
			}
			a, err := app.Open(root, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			deps, err := project.Scan(root, logger)
			if err != nil {
				return fmt.Errorf("init: scan manifests: %w", err)
			}
			return indexAll(c.Context, a, logger, deps)
		},
	}
}

func updateCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "reindex packages whose declared version differs from what's indexed",
		Action: func(c *cli.Context) error {
			a, err := openInitialised(logger)
			if err != nil {
				return err
			}
			defer a.Close()

			deps, err := project.Scan(a.Root, logger)
			if err != nil {
				return fmt.Errorf("update: scan manifests: %w", err)
			}
			return indexAll(c.Context, a, logger, deps)
		},
	}
}

// indexAll runs IndexVersion over deps with bounded concurrency (spec.md §5).
// IndexVersion itself no-ops an already-Indexed version, so this serves
// both a first index (init) and a reindex of drifted versions (update).
func indexAll(ctx context.Context, a *app.App, logger *logrus.Logger, deps []depreg.Dependency) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPackages)

	var indexed, skipped, failed int
	for _, d := range deps {
		d := d
		g.Go(func() error {
			result, err := a.Indexer.IndexVersion(gctx, d.Registry, d.Name, d.Version)
			if err != nil {
				failed++
				if logger != nil {
					logger.WithFields(logrus.Fields{"registry": d.Registry, "package": d.Name, "version": d.Version, "error": err.Error()}).Warn("index failed")
				}
				return nil
			}
			if result.Skipped {
				skipped++
			} else {
				indexed++
			}
			return nil
		})
	}
	_ = g.Wait()

	fmt.Printf("indexed=%d skipped=%d failed=%d\n", indexed, skipped, failed)
	return nil
}

func indexCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     "index one exact registry:name@version",
		ArgsUsage: "registry:name@version",
		Action: func(c *cli.Context) error {
			raw := c.Args().First()
			if raw == "" {
				return fmt.Errorf("index: a spec argument is required")
			}
			spec, err := parseSpec(raw)
			if err != nil {
				return err
			}
			if err := spec.requireVersion(raw); err != nil {
				return err
			}

			root, err := cwd()
			if err != nil {
				return err
			}
			a, err := app.Open(root, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Indexer.IndexVersion(c.Context, spec.Registry, spec.Name, spec.Version)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			if result.Skipped {
				fmt.Println("already indexed")
			} else {
				fmt.Printf("indexed %d chunks\n", result.ChunkCount)
			}
			return nil
		},
	}
}

func searchCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "search indexed code by natural-language query",
		ArgsUsage: "query",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "package"},
			&cli.StringFlag{Name: "registry"},
			&cli.StringFlag{Name: "version"},
			&cli.IntFlag{Name: "limit", Value: 10},
			&cli.BoolFlag{Name: "code", Usage: "hydrate the full code body instead of the stored snippet"},
		},
		Action: func(c *cli.Context) error {
			queryText := c.Args().First()
			if queryText == "" {
				return fmt.Errorf("search: a query argument is required")
			}
			a, err := openInitialised(logger)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.Search.Search(c.Context, search.Query{
				Text:     queryText,
				Package:  c.String("package"),
				Registry: c.String("registry"),
				Version:  c.String("version"),
				Limit:    c.Int("limit"),
			})
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			for _, r := range results {
				fmt.Printf("%.3f  %s/%s@%s  %s %s  %s:%d-%d\n", r.Score, r.Registry, r.Package, r.Version, r.ChunkType, r.Name, r.FilePath, r.StartLine, r.EndLine)
				if c.Bool("code") {
					body, err := a.Blobs.Get(r.StorageKey)
					if err != nil {
						fmt.Println("  <failed to hydrate code body>")
						continue
					}
					fmt.Println(string(body))
				} else if r.Snippet != "" {
					fmt.Println("  " + r.Snippet)
				}
			}
			return nil
		},
	}
}

func listCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list indexed packages",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "registry", Aliases: []string{"r"}},
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}},
			&cli.BoolFlag{Name: "names-only"},
		},
		Action: func(c *cli.Context) error {
			a, err := openInitialised(logger)
			if err != nil {
				return err
			}
			defer a.Close()

			packages, err := a.Meta.ListPackages()
			if err != nil {
				return fmt.Errorf("list: %w", err)
			}
			registryFilter := c.String("registry")
			statusFilter := meta.VersionStatus(c.String("status"))
			namesOnly := c.Bool("names-only")

			for _, pkg := range packages {
				if registryFilter != "" && pkg.Registry != registryFilter {
					continue
				}
				versions, err := a.Meta.ListVersions(pkg.ID)
				if err != nil {
					return fmt.Errorf("list: list versions for %s/%s: %w", pkg.Registry, pkg.Name, err)
				}
				for _, v := range versions {
					if statusFilter != "" && v.Status != statusFilter {
						continue
					}
					if namesOnly {
						fmt.Printf("%s:%s\n", pkg.Registry, pkg.Name)
						break
					}
					fmt.Printf("%s:%s@%s  %s  chunks=%d\n", pkg.Registry, pkg.Name, v.VersionString, v.Status, v.ChunkCount)
				}
			}
			return nil
		},
	}
}

func statusCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "report missing/extra/failed/skipped package counts",
		Action: func(c *cli.Context) error {
			a, err := openInitialised(logger)
			if err != nil {
				return err
			}
			defer a.Close()

			deps, err := project.Scan(a.Root, logger)
			if err != nil {
				return fmt.Errorf("status: scan manifests: %w", err)
			}
			declared := project.KeySet(deps)

			packages, err := a.Meta.ListPackages()
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			indexed := make(map[project.Key]bool, len(packages))
			for _, pkg := range packages {
				indexed[project.Key{Registry: depreg.Registry(pkg.Registry), Name: pkg.Name}] = true
			}

			missing := 0
			for k := range declared {
				if !indexed[k] {
					missing++
				}
			}
			extra := 0
			for k := range indexed {
				if _, ok := declared[k]; !ok {
					extra++
				}
			}

			failed, err := a.Meta.ListVersionsByStatus(meta.StatusFailed)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			skippedVersions, err := a.Meta.ListVersionsByStatus(meta.StatusSkipped)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}

			fmt.Printf("missing=%d extra=%d failed=%d skipped=%d\n", missing, extra, len(failed), len(skippedVersions))
			return nil
		},
	}
}

func removeCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "remove an indexed package or one of its versions",
		ArgsUsage: "registry:name[@version]",
		Action: func(c *cli.Context) error {
			raw := c.Args().First()
			if raw == "" {
				return fmt.Errorf("remove: a spec argument is required")
			}
			spec, err := parseSpec(raw)
			if err != nil {
				return err
			}
			a, err := openInitialised(logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if spec.Version == "" {
				return a.Indexer.RemovePackage(string(spec.Registry), spec.Name)
			}
			return a.Indexer.RemoveVersion(string(spec.Registry), spec.Name, spec.Version)
		},
	}
}

func pruneCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "remove indexed packages no longer referenced by any manifest",
		Action: func(c *cli.Context) error {
			a, err := openInitialised(logger)
			if err != nil {
				return err
			}
			defer a.Close()

			deps, err := project.Scan(a.Root, logger)
			if err != nil {
				return fmt.Errorf("prune: scan manifests: %w", err)
			}
			declared := project.KeySet(deps)

			packages, err := a.Meta.ListPackages()
			if err != nil {
				return fmt.Errorf("prune: %w", err)
			}

			var pruned []string
			for _, pkg := range packages {
				key := project.Key{Registry: depreg.Registry(pkg.Registry), Name: pkg.Name}
				if _, ok := declared[key]; ok {
					continue
				}
				if err := a.Indexer.RemovePackage(pkg.Registry, pkg.Name); err != nil {
					return fmt.Errorf("prune: remove %s/%s: %w", pkg.Registry, pkg.Name, err)
				}
				pruned = append(pruned, pkg.Registry+":"+pkg.Name)
			}

			sort.Strings(pruned)
			for _, p := range pruned {
				fmt.Println("pruned " + p)
			}
			fmt.Printf("pruned=%d\n", len(pruned))
			return nil
		},
	}
}

func retryCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:      "retry",
		Usage:     "retry a failed or skipped version, or every such version with --all",
		ArgsUsage: "registry:name@version",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all"},
		},
		Action: func(c *cli.Context) error {
			a, err := openInitialised(logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if c.Bool("all") {
				return retryAll(c.Context, a, logger)
			}

			raw := c.Args().First()
			if raw == "" {
				return fmt.Errorf("retry: a spec argument is required (or pass --all)")
			}
			spec, err := parseSpec(raw)
			if err != nil {
				return err
			}
			if err := spec.requireVersion(raw); err != nil {
				return err
			}
			if err := a.Indexer.Retry(string(spec.Registry), spec.Name, spec.Version); err != nil {
				return fmt.Errorf("retry: %w", err)
			}
			_, err = a.Indexer.IndexVersion(c.Context, spec.Registry, spec.Name, spec.Version)
			return err
		},
	}
}

// retryAll retries every Failed or Skipped version in the index, reusing
// each version's owning Package to recover its (registry, name).
func retryAll(ctx context.Context, a *app.App, logger *logrus.Logger) error {
	for _, status := range []meta.VersionStatus{meta.StatusFailed, meta.StatusSkipped} {
		versions, err := a.Meta.ListVersionsByStatus(status)
		if err != nil {
			return fmt.Errorf("retry: list %s versions: %w", status, err)
		}
		for _, v := range versions {
			pkg, err := a.Meta.GetPackage(v.PackageID)
			if err != nil {
				return fmt.Errorf("retry: %w", err)
			}
			if err := a.Indexer.Retry(pkg.Registry, pkg.Name, v.VersionString); err != nil {
				return fmt.Errorf("retry: %s/%s@%s: %w", pkg.Registry, pkg.Name, v.VersionString, err)
			}
			if _, err := a.Indexer.IndexVersion(ctx, depreg.Registry(pkg.Registry), pkg.Name, v.VersionString); err != nil && logger != nil {
				logger.WithFields(logrus.Fields{"registry": pkg.Registry, "package": pkg.Name, "version": v.VersionString, "error": err.Error()}).Warn("retry failed again")
			}
		}
	}
	return nil
}

func skipCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:      "skip",
		Usage:     "mark a version skipped without attempting to index it",
		ArgsUsage: "registry:name@version",
		Action: func(c *cli.Context) error {
			raw := c.Args().First()
			if raw == "" {
				return fmt.Errorf("skip: a spec argument is required")
			}
			spec, err := parseSpec(raw)
			if err != nil {
				return err
			}
			if err := spec.requireVersion(raw); err != nil {
				return err
			}
			a, err := openInitialised(logger)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Indexer.Skip(spec.Registry, spec.Name, spec.Version)
		},
	}
}

func statsCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print aggregate counts across packages, versions, and chunks",
		Action: func(c *cli.Context) error {
			a, err := openInitialised(logger)
			if err != nil {
				return err
			}
			defer a.Close()

			packages, err := a.Meta.ListPackages()
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			var totalVersions, totalChunks int
			byStatus := map[meta.VersionStatus]int{}
			for _, pkg := range packages {
				versions, err := a.Meta.ListVersions(pkg.ID)
				if err != nil {
					return fmt.Errorf("stats: %w", err)
				}
				totalVersions += len(versions)
				for _, v := range versions {
					byStatus[v.Status]++
					totalChunks += v.ChunkCount
				}
			}

			fmt.Printf("packages=%d versions=%d chunks=%d\n", len(packages), totalVersions, totalChunks)
			for _, status := range []meta.VersionStatus{meta.StatusPending, meta.StatusInProgress, meta.StatusIndexed, meta.StatusFailed, meta.StatusSkipped} {
				fmt.Printf("  %s=%d\n", status, byStatus[status])
			}
			return nil
		},
	}
}

func cleanCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "clean",
		Usage: "remove every indexed package, emptying the index",
		Action: func(c *cli.Context) error {
			a, err := openInitialised(logger)
			if err != nil {
				return err
			}
			defer a.Close()

			packages, err := a.Meta.ListPackages()
			if err != nil {
				return fmt.Errorf("clean: %w", err)
			}
			for _, pkg := range packages {
				if err := a.Indexer.RemovePackage(pkg.Registry, pkg.Name); err != nil {
					return fmt.Errorf("clean: remove %s/%s: %w", pkg.Registry, pkg.Name, err)
				}
			}
			return nil
		},
	}
}

func mcpCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "run as an MCP stdio server exposing search_code, list_packages, and index_package",
		Action: func(c *cli.Context) error {
			root, err := cwd()
			if err != nil {
				return err
			}
			a, err := app.Open(root, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			registry.Init(logger)
			registry.Register(&mcptools.SearchCodeTool{App: a})
			registry.Register(&mcptools.ListPackagesTool{App: a})
			registry.Register(&mcptools.IndexPackageTool{App: a})

			mcpSrv := mcpserver.NewMCPServer("depindex", c.App.Version)
			for name, tool := range registry.GetEnabledTools() {
				toolName, toolImpl := name, tool
				mcpSrv.AddTool(toolImpl.Definition(), func(toolCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
					args, ok := request.Params.Arguments.(map[string]any)
					if !ok {
						return nil, fmt.Errorf("invalid arguments type for %s: %T", toolName, request.Params.Arguments)
					}
					current, ok := registry.GetTool(toolName)
					if !ok {
						return nil, fmt.Errorf("tool not found: %s", toolName)
					}
					return current.Execute(toolCtx, registry.GetLogger(), registry.GetCache(), args)
				})
			}
			return mcpserver.ServeStdio(mcpSrv)
		},
	}
}

func watchCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "watch project manifests and run update on change",
		Action: func(c *cli.Context) error {
			return watchAndUpdate(c.Context, logger)
		},
	}
}
