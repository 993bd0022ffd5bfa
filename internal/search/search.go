// Package search is the query-then-hydrate orchestrator: embed a query,
// narrow the candidate namespace set, run ANN search, and hydrate each hit
// from the metadata store into a caller-facing SearchResult.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sammcj/depindex/internal/embed"
	"github.com/sammcj/depindex/internal/store/blob"
	"github.com/sammcj/depindex/internal/store/meta"
	"github.com/sammcj/depindex/internal/store/vector"
	"gorm.io/gorm"
)

// Result is one hydrated search hit.
type Result struct {
	ID         string
	Registry   string
	Package    string
	Version    string
	ChunkType  string
	Name       string
	FilePath   string
	StartLine  int
	EndLine    int
	Visibility string
	Signature  string
	Docstring  string
	Snippet    string
	StorageKey string
	Score      float64
}

// Query is the search orchestrator's input (spec.md §4.9).
type Query struct {
	Text     string
	Package  string
	Registry string
	Version  string
	Limit    int
}

// Engine wires the embedding client, vector store, and metadata store
// together for the search(...) and get_code(...) operations.
type Engine struct {
	embedder *embed.Client
	vectors  *vector.Store
	metadata *meta.Store
	blobs    *blob.Store
}

// New constructs a search Engine.
func New(embedder *embed.Client, vectors *vector.Store, metadata *meta.Store, blobs *blob.Store) *Engine {
	return &Engine{embedder: embedder, vectors: vectors, metadata: metadata, blobs: blobs}
}

// Search runs the five-step operation from spec.md §4.9.
func (e *Engine) Search(ctx context.Context, q Query) ([]Result, error) {
	if q.Limit <= 0 {
		q.Limit = 10
	}

	vec, err := e.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	namespaces := e.candidateNamespaces(q)
	if len(namespaces) == 0 {
		return nil, nil
	}

	hits, err := e.vectors.SearchMulti(ctx, namespaces, vec, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("search: vector search: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		chunk, version, pkg, err := e.metadata.GetChunkWithPackage(hit.ChunkID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Eventual-consistency defense: the vector store still has
				// an entry for a chunk whose row was since deleted.
				continue
			}
			return nil, fmt.Errorf("search: hydrate chunk %s: %w", hit.ChunkID, err)
		}
		results = append(results, Result{
			ID:         chunk.ChunkID,
			Registry:   pkg.Registry,
			Package:    pkg.Name,
			Version:    version.VersionString,
			ChunkType:  chunk.ChunkType,
			Name:       chunk.Name,
			FilePath:   chunk.FilePath,
			StartLine:  chunk.StartLine,
			EndLine:    chunk.EndLine,
			Visibility: chunk.Visibility,
			Signature:  chunk.Signature,
			Docstring:  chunk.Docstring,
			Snippet:    chunk.Snippet,
			StorageKey: chunk.StorageKey,
			Score:      vector.Score(hit.Distance),
		})
	}
	return results, nil
}

// candidateNamespaces implements spec.md §4.9 step 2.
func (e *Engine) candidateNamespaces(q Query) []string {
	all := e.vectors.ListNamespaces()

	switch {
	case q.Package != "" && q.Registry != "" && q.Version != "":
		ns := q.Registry + "/" + q.Package + "/" + q.Version
		for _, n := range all {
			if n == ns {
				return []string{ns}
			}
		}
		return nil

	case q.Package != "" && q.Registry != "":
		prefix := q.Registry + "/" + q.Package + "/"
		var out []string
		for _, n := range all {
			if strings.HasPrefix(n, prefix) {
				out = append(out, n)
			}
		}
		return out

	case q.Package != "":
		mid := "/" + q.Package + "/"
		suffix := "/" + q.Package
		var out []string
		for _, n := range all {
			if strings.Contains(n, mid) || strings.HasSuffix(n, suffix) {
				out = append(out, n)
			}
		}
		return out

	default:
		return all
	}
}

// GetCode hydrates a full code body from the blob store on demand.
func (e *Engine) GetCode(storageKey string) (string, error) {
	data, err := e.blobs.Get(storageKey)
	if err != nil {
		return "", fmt.Errorf("search: get code %s: %w", storageKey, err)
	}
	return string(data), nil
}
