package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sammcj/depindex/internal/embed"
	"github.com/sammcj/depindex/internal/store/blob"
	"github.com/sammcj/depindex/internal/store/meta"
	"github.com/sammcj/depindex/internal/store/vector"
)

func newTestEngine(t *testing.T) (*Engine, *meta.Store, *vector.Store, *blob.Store) {
	t.Helper()
	dir := t.TempDir()

	blobs := blob.New(filepath.Join(dir, "blobs"))
	metadata, err := meta.Open(filepath.Join(dir, "meta.db"), nil)
	if err != nil {
		t.Fatalf("meta.Open: %v", err)
	}
	t.Cleanup(func() { metadata.Close() })
	vectors, err := vector.New(filepath.Join(dir, "vectors"), nil)
	if err != nil {
		t.Fatalf("vector.New: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "test",
			"data": []map[string]any{
				{"embedding": []float64{1, 0, 0, 0}, "index": 0, "object": "embedding"},
			},
		})
	}))
	t.Cleanup(srv.Close)
	embedder, err := embed.New(embed.Config{BaseURL: srv.URL, BearerToken: "x", Model: "test"}, nil)
	if err != nil {
		t.Fatalf("embed.New: %v", err)
	}

	return New(embedder, vectors, metadata, blobs), metadata, vectors, blobs
}

func seedChunk(t *testing.T, metadata *meta.Store, vectors *vector.Store, blobs *blob.Store, registry, name, version, chunkID string) {
	t.Helper()
	pkg, err := metadata.GetOrCreatePackage(registry, name)
	if err != nil {
		t.Fatalf("GetOrCreatePackage: %v", err)
	}
	v, err := metadata.GetOrCreateVersion(pkg.ID, version)
	if err != nil {
		t.Fatalf("GetOrCreateVersion: %v", err)
	}
	storageKey, err := blobs.Put(registry, name, version, []byte("function f() {}"))
	if err != nil {
		t.Fatalf("blobs.Put: %v", err)
	}
	if err := metadata.InsertChunks([]meta.Chunk{{
		ChunkID: chunkID, VersionID: v.ID, Namespace: registry + "/" + name + "/" + version,
		ChunkType: "Function", Name: "f", FilePath: "index.js", Visibility: "Public",
		Snippet: "function f() {}", StorageKey: storageKey, ContentHash: "h",
	}}); err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}
	if err := vectors.Insert(context.Background(), registry+"/"+name+"/"+version, []vector.Record{
		{ChunkID: chunkID, ContentHash: "h", Vector: []float32{1, 0, 0, 0}},
	}); err != nil {
		t.Fatalf("vectors.Insert: %v", err)
	}
}

func TestSearchHydratesHits(t *testing.T) {
	engine, metadata, vectors, blobs := newTestEngine(t)
	seedChunk(t, metadata, vectors, blobs, "npm", "left-pad", "1.0.0", "c1")

	results, err := engine.Search(context.Background(), Query{Text: "pad a string", Limit: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Name != "f" || results[0].Package != "left-pad" {
		t.Errorf("unexpected result: %+v", results[0])
	}
}

func TestSearchScopedByRegistryPackageVersion(t *testing.T) {
	engine, metadata, vectors, blobs := newTestEngine(t)
	seedChunk(t, metadata, vectors, blobs, "npm", "left-pad", "1.0.0", "c1")
	seedChunk(t, metadata, vectors, blobs, "npm", "left-pad", "2.0.0", "c2")

	results, err := engine.Search(context.Background(), Query{
		Text: "x", Registry: "npm", Package: "left-pad", Version: "1.0.0", Limit: 5,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Version != "1.0.0" {
		t.Fatalf("expected exactly version 1.0.0, got %+v", results)
	}
}

func TestSearchDropsDeletedChunks(t *testing.T) {
	engine, metadata, vectors, blobs := newTestEngine(t)
	seedChunk(t, metadata, vectors, blobs, "npm", "left-pad", "1.0.0", "c1")

	pkg, _ := metadata.GetOrCreatePackage("npm", "left-pad")
	v, _ := metadata.GetOrCreateVersion(pkg.ID, "1.0.0")
	if err := metadata.DeleteVersion(v.ID); err != nil {
		t.Fatalf("DeleteVersion: %v", err)
	}

	results, err := engine.Search(context.Background(), Query{Text: "x", Limit: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected orphaned vector hit to be dropped, got %d results", len(results))
	}
}

func TestGetCodeHydratesBlob(t *testing.T) {
	engine, metadata, vectors, blobs := newTestEngine(t)
	seedChunk(t, metadata, vectors, blobs, "npm", "left-pad", "1.0.0", "c1")

	chunk, _, _, err := metadata.GetChunkWithPackage("c1")
	if err != nil {
		t.Fatalf("GetChunkWithPackage: %v", err)
	}

	code, err := engine.GetCode(chunk.StorageKey)
	if err != nil {
		t.Fatalf("GetCode: %v", err)
	}
	if code != "function f() {}" {
		t.Errorf("GetCode = %q", code)
	}
}
