package indexer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sammcj/depindex/internal/depreg"
	"github.com/sammcj/depindex/internal/embed"
	"github.com/sammcj/depindex/internal/store/blob"
	"github.com/sammcj/depindex/internal/store/meta"
	"github.com/sammcj/depindex/internal/store/vector"
)

type fakeClient struct {
	files []depreg.PackageFile
	err   error
}

func (f *fakeClient) GetPackage(ctx context.Context, name string) (*depreg.PackageInfo, error) {
	return nil, nil
}
func (f *fakeClient) GetVersion(ctx context.Context, name, version string) (*depreg.VersionInfo, error) {
	return nil, nil
}
func (f *fakeClient) DownloadSource(ctx context.Context, name, version string) ([]depreg.PackageFile, error) {
	return f.files, f.err
}

type fakeResolver struct {
	client depreg.Client
}

func (r *fakeResolver) For(registry depreg.Registry) (depreg.Client, error) {
	return r.client, nil
}

func newTestEmbedServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input any    `json:"input"`
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		var n int
		switch v := req.Input.(type) {
		case string:
			n = 1
		case []any:
			n = len(v)
		}
		data := make([]map[string]any, n)
		for i := 0; i < n; i++ {
			vec := make([]float64, dim)
			for j := range vec {
				vec[j] = float64(i+1) * 0.1
			}
			data[i] = map[string]any{"embedding": vec, "index": i, "object": "embedding"}
		}
		resp := map[string]any{"data": data, "model": req.Model, "object": "list"}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestIndexer(t *testing.T, client depreg.Client) *Indexer {
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

	srv := newTestEmbedServer(t, 4)
	t.Cleanup(srv.Close)
	embedder, err := embed.New(embed.Config{BaseURL: srv.URL, BearerToken: "x", Model: "test"}, nil)
	if err != nil {
		t.Fatalf("embed.New: %v", err)
	}

	return New(&fakeResolver{client: client}, blobs, metadata, vectors, embedder, nil)
}

func TestIndexVersionHappyPath(t *testing.T) {
	client := &fakeClient{files: []depreg.PackageFile{
		{Path: "index.js", Content: "function leftPad(str, len) {\n  return str;\n}\n"},
	}}
	idx := newTestIndexer(t, client)

	result, err := idx.IndexVersion(context.Background(), depreg.Npm, "left-pad", "1.0.0")
	if err != nil {
		t.Fatalf("IndexVersion: %v", err)
	}
	if result.Skipped {
		t.Fatalf("expected not skipped")
	}
	if result.ChunkCount != 1 {
		t.Fatalf("ChunkCount = %d, want 1", result.ChunkCount)
	}
}

func TestIndexVersionSkipsAlreadyIndexed(t *testing.T) {
	client := &fakeClient{files: []depreg.PackageFile{
		{Path: "index.js", Content: "function leftPad(str, len) {\n  return str;\n}\n"},
	}}
	idx := newTestIndexer(t, client)

	if _, err := idx.IndexVersion(context.Background(), depreg.Npm, "left-pad", "1.0.0"); err != nil {
		t.Fatalf("first IndexVersion: %v", err)
	}
	result, err := idx.IndexVersion(context.Background(), depreg.Npm, "left-pad", "1.0.0")
	if err != nil {
		t.Fatalf("second IndexVersion: %v", err)
	}
	if !result.Skipped {
		t.Errorf("expected second call to be skipped")
	}
}

func TestIndexVersionEmptyChunksMarksIndexedZero(t *testing.T) {
	client := &fakeClient{files: []depreg.PackageFile{
		{Path: "README.txt", Content: "just prose, no code"},
	}}
	idx := newTestIndexer(t, client)

	result, err := idx.IndexVersion(context.Background(), depreg.Npm, "left-pad", "1.0.0")
	if err != nil {
		t.Fatalf("IndexVersion: %v", err)
	}
	if result.ChunkCount != 0 {
		t.Errorf("ChunkCount = %d, want 0", result.ChunkCount)
	}
}

func TestIndexVersionDownloadFailureMarksFailed(t *testing.T) {
	client := &fakeClient{err: depreg.NewPackageNotFound("left-pad")}
	idx := newTestIndexer(t, client)

	_, err := idx.IndexVersion(context.Background(), depreg.Npm, "left-pad", "1.0.0")
	if err == nil {
		t.Fatalf("expected error from download failure")
	}

	failed, err := idx.metadata.ListVersionsByStatus(meta.StatusFailed)
	if err != nil {
		t.Fatalf("ListVersionsByStatus: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("got %d failed versions, want 1", len(failed))
	}
}

func TestRemoveVersionDeletesEverything(t *testing.T) {
	client := &fakeClient{files: []depreg.PackageFile{
		{Path: "index.js", Content: "function leftPad(str, len) {\n  return str;\n}\n"},
	}}
	idx := newTestIndexer(t, client)

	if _, err := idx.IndexVersion(context.Background(), depreg.Npm, "left-pad", "1.0.0"); err != nil {
		t.Fatalf("IndexVersion: %v", err)
	}
	if err := idx.RemoveVersion("npm", "left-pad", "1.0.0"); err != nil {
		t.Fatalf("RemoveVersion: %v", err)
	}

	namespaces := idx.vectors.ListNamespaces()
	for _, ns := range namespaces {
		if ns == "npm/left-pad/1.0.0" {
			t.Errorf("namespace still present after RemoveVersion")
		}
	}
}

func TestRetryRequiresFailedOrSkipped(t *testing.T) {
	client := &fakeClient{files: []depreg.PackageFile{
		{Path: "index.js", Content: "function leftPad(str, len) {\n  return str;\n}\n"},
	}}
	idx := newTestIndexer(t, client)

	if _, err := idx.IndexVersion(context.Background(), depreg.Npm, "left-pad", "1.0.0"); err != nil {
		t.Fatalf("IndexVersion: %v", err)
	}
	if err := idx.Retry("npm", "left-pad", "1.0.0"); err == nil {
		t.Errorf("expected Retry to reject an Indexed version")
	}
}

func TestPruneVectorsReapsOrphanNamespace(t *testing.T) {
	idx := newTestIndexer(t, &fakeClient{})
	if err := idx.vectors.Insert(context.Background(), "npm/orphan/1.0.0", []vector.Record{
		{ChunkID: "c1", ContentHash: "h1", Vector: []float32{0.1, 0.2, 0.3, 0.4}},
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	pruned, err := idx.PruneVectors()
	if err != nil {
		t.Fatalf("PruneVectors: %v", err)
	}
	if len(pruned) != 1 || pruned[0] != "npm/orphan/1.0.0" {
		t.Errorf("pruned = %v, want [npm/orphan/1.0.0]", pruned)
	}
}

func TestDeriveChunkIDDeterministicAndDistinct(t *testing.T) {
	a := deriveChunkID("npm/left-pad/1.0.0", "index.js", 0, 10, "leftPad", "Function")
	b := deriveChunkID("npm/left-pad/1.0.0", "index.js", 0, 10, "leftPad", "Function")
	if a != b {
		t.Errorf("expected deterministic chunk IDs")
	}
	c := deriveChunkID("npm/left-pad/1.0.0", "index.js", 0, 11, "leftPad", "Function")
	if a == c {
		t.Errorf("expected distinct chunk IDs for different spans")
	}
}
