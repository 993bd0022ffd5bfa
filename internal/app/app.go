// Package app is the composition root: it locates a project's .index
// directory, opens the three stores and the registry-client/embedding
// clients against it, and wires them into an Indexer and a search Engine.
// Both the CLI and the MCP tool surface build one of these per invocation.
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sammcj/depindex/internal/config"
	"github.com/sammcj/depindex/internal/depreg/clients"
	"github.com/sammcj/depindex/internal/embed"
	"github.com/sammcj/depindex/internal/indexer"
	"github.com/sammcj/depindex/internal/search"
	"github.com/sammcj/depindex/internal/store/blob"
	"github.com/sammcj/depindex/internal/store/meta"
	"github.com/sammcj/depindex/internal/store/vector"
	"github.com/sirupsen/logrus"
)

// indexDirName is the on-disk directory name per spec.md §6.
const indexDirName = ".index"

// App holds every long-lived resource a command needs against one project.
type App struct {
	Root    string
	Cfg     *config.Config
	Blobs   *blob.Store
	Meta    *meta.Store
	Vectors *vector.Store
	Embed   *embed.Client
	Clients *clients.Set
	Indexer *indexer.Indexer
	Search  *search.Engine
}

// FindRoot walks start and its parents looking for a .index directory,
// per spec.md §6 ("discovery walks parents to find one"). It returns start
// itself, uninitialised, if no ancestor has one.
func FindRoot(start string) (root string, initialised bool, err error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false, fmt.Errorf("app: resolve %s: %w", start, err)
	}
	for {
		if info, statErr := os.Stat(filepath.Join(dir, indexDirName)); statErr == nil && info.IsDir() {
			return dir, true, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", false, fmt.Errorf("app: resolve %s: %w", start, err)
	}
	return abs, false, nil
}

// Open opens (creating the .index directory tree if absent) every store
// rooted at root and wires the indexer and search engine. A missing or
// empty api_key fails with a directed error, per spec.md §6.
func Open(root string, logger *logrus.Logger) (*App, error) {
	cfg, err := config.Get()
	if err != nil {
		return nil, fmt.Errorf("app: load config: %w", err)
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	indexDir := filepath.Join(root, indexDirName)
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("app: create %s: %w", indexDir, err)
	}

	blobs := blob.New(filepath.Join(indexDir, "blobs"))

	metadata, err := meta.Open(filepath.Join(indexDir, "db.sqlite"), logger)
	if err != nil {
		return nil, fmt.Errorf("app: open metadata store: %w", err)
	}

	vectors, err := vector.New(filepath.Join(indexDir, "vectors"), logger)
	if err != nil {
		return nil, fmt.Errorf("app: open vector store: %w", err)
	}

	embedder, err := embed.New(embed.Config{BaseURL: cfg.BaseURL, BearerToken: cfg.APIKey, Model: cfg.Model}, logger)
	if err != nil {
		return nil, fmt.Errorf("app: construct embedding client: %w", err)
	}

	registryClients := clients.NewSet(logger)

	idx := indexer.New(registryClients, blobs, metadata, vectors, embedder, logger)
	searchEngine := search.New(embedder, vectors, metadata, blobs)

	return &App{
		Root:    root,
		Cfg:     cfg,
		Blobs:   blobs,
		Meta:    metadata,
		Vectors: vectors,
		Embed:   embedder,
		Clients: registryClients,
		Indexer: idx,
		Search:  searchEngine,
	}, nil
}

// Close releases the metadata store's underlying connection.
func (a *App) Close() error {
	return a.Meta.Close()
}
