package meta

import (
	"math"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meta.db")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPackFloat32RoundTrip(t *testing.T) {
	in := []float32{1.5, -2.25, 0, 3.14159}
	packed := PackFloat32(in)
	if len(packed) != 4*len(in) {
		t.Fatalf("packed length = %d, want %d", len(packed), 4*len(in))
	}
	out := UnpackFloat32(packed)
	if len(out) != len(in) {
		t.Fatalf("unpacked length = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if math.Abs(float64(in[i]-out[i])) > 1e-6 {
			t.Errorf("index %d: got %v, want %v", i, out[i], in[i])
		}
	}
}

func TestGetOrCreatePackageIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	p1, err := s.GetOrCreatePackage("npm", "left-pad")
	if err != nil {
		t.Fatalf("GetOrCreatePackage: %v", err)
	}
	p2, err := s.GetOrCreatePackage("npm", "left-pad")
	if err != nil {
		t.Fatalf("GetOrCreatePackage second call: %v", err)
	}
	if p1.ID != p2.ID {
		t.Errorf("expected same package ID, got %d and %d", p1.ID, p2.ID)
	}
}

func TestGetOrCreateVersionStartsPending(t *testing.T) {
	s := openTestStore(t)
	pkg, err := s.GetOrCreatePackage("npm", "left-pad")
	if err != nil {
		t.Fatalf("GetOrCreatePackage: %v", err)
	}
	v, err := s.GetOrCreateVersion(pkg.ID, "1.0.0")
	if err != nil {
		t.Fatalf("GetOrCreateVersion: %v", err)
	}
	if v.Status != StatusPending {
		t.Errorf("Status = %q, want %q", v.Status, StatusPending)
	}
}

func TestClaimPendingIsExclusive(t *testing.T) {
	s := openTestStore(t)
	pkg, _ := s.GetOrCreatePackage("npm", "left-pad")
	v, _ := s.GetOrCreateVersion(pkg.ID, "1.0.0")

	won, err := s.ClaimPending(v.ID)
	if err != nil {
		t.Fatalf("ClaimPending: %v", err)
	}
	if !won {
		t.Fatalf("expected first claim to win")
	}

	wonAgain, err := s.ClaimPending(v.ID)
	if err != nil {
		t.Fatalf("ClaimPending second call: %v", err)
	}
	if wonAgain {
		t.Errorf("expected second concurrent claim to lose")
	}
}

func TestResolveVersionSetsIndexedAt(t *testing.T) {
	s := openTestStore(t)
	pkg, _ := s.GetOrCreatePackage("npm", "left-pad")
	v, _ := s.GetOrCreateVersion(pkg.ID, "1.0.0")
	if _, err := s.ClaimPending(v.ID); err != nil {
		t.Fatalf("ClaimPending: %v", err)
	}
	if err := s.ResolveVersion(v.ID, StatusIndexed, 3, ""); err != nil {
		t.Fatalf("ResolveVersion: %v", err)
	}

	versions, err := s.ListVersionsByStatus(StatusIndexed)
	if err != nil {
		t.Fatalf("ListVersionsByStatus: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("got %d indexed versions, want 1", len(versions))
	}
	if versions[0].ChunkCount != 3 {
		t.Errorf("ChunkCount = %d, want 3", versions[0].ChunkCount)
	}
	if versions[0].IndexedAt == nil {
		t.Errorf("IndexedAt not set")
	}
}

func TestInsertChunksAndGetChunkWithPackage(t *testing.T) {
	s := openTestStore(t)
	pkg, _ := s.GetOrCreatePackage("npm", "left-pad")
	v, _ := s.GetOrCreateVersion(pkg.ID, "1.0.0")

	chunk := Chunk{
		ChunkID:     "abc123",
		VersionID:   v.ID,
		Namespace:   "npm/left-pad/1.0.0",
		ChunkType:   "Function",
		Name:        "leftPad",
		FilePath:    "index.js",
		StartLine:   1,
		EndLine:     5,
		Visibility:  "Public",
		Snippet:     "function leftPad() {}",
		StorageKey:  "npm/left-pad/1.0.0/deadbeef",
		ContentHash: "deadbeef",
	}
	if err := s.InsertChunks([]Chunk{chunk}); err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}

	got, gotVersion, gotPkg, err := s.GetChunkWithPackage("abc123")
	if err != nil {
		t.Fatalf("GetChunkWithPackage: %v", err)
	}
	if got.Name != "leftPad" {
		t.Errorf("Name = %q, want leftPad", got.Name)
	}
	if gotVersion.ID != v.ID {
		t.Errorf("version mismatch")
	}
	if gotPkg.ID != pkg.ID {
		t.Errorf("package mismatch")
	}
}

func TestDeleteVersionRemovesChunks(t *testing.T) {
	s := openTestStore(t)
	pkg, _ := s.GetOrCreatePackage("npm", "left-pad")
	v, _ := s.GetOrCreateVersion(pkg.ID, "1.0.0")
	if err := s.InsertChunks([]Chunk{{
		ChunkID: "abc123", VersionID: v.ID, Namespace: "npm/left-pad/1.0.0",
		ChunkType: "Function", Name: "leftPad", FilePath: "index.js",
		Visibility: "Public", Snippet: "x", StorageKey: "k", ContentHash: "h",
	}}); err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}

	if err := s.DeleteVersion(v.ID); err != nil {
		t.Fatalf("DeleteVersion: %v", err)
	}
	if _, _, _, err := s.GetChunkWithPackage("abc123"); err == nil {
		t.Errorf("expected chunk to be gone after DeleteVersion")
	}
}

func TestDeletePackageCascades(t *testing.T) {
	s := openTestStore(t)
	pkg, _ := s.GetOrCreatePackage("npm", "left-pad")
	v1, _ := s.GetOrCreateVersion(pkg.ID, "1.0.0")
	v2, _ := s.GetOrCreateVersion(pkg.ID, "2.0.0")
	_ = s.InsertChunks([]Chunk{
		{ChunkID: "c1", VersionID: v1.ID, Namespace: "n1", ChunkType: "Function", Name: "a", FilePath: "f", Visibility: "Public", Snippet: "x", StorageKey: "k1", ContentHash: "h1"},
		{ChunkID: "c2", VersionID: v2.ID, Namespace: "n2", ChunkType: "Function", Name: "b", FilePath: "f", Visibility: "Public", Snippet: "x", StorageKey: "k2", ContentHash: "h2"},
	})

	if err := s.DeletePackage(pkg.ID); err != nil {
		t.Fatalf("DeletePackage: %v", err)
	}
	versions, err := s.ListVersions(pkg.ID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 0 {
		t.Errorf("expected no versions after DeletePackage, got %d", len(versions))
	}
	if _, _, _, err := s.GetChunkWithPackage("c1"); err == nil {
		t.Errorf("expected chunk c1 gone")
	}
	if _, _, _, err := s.GetChunkWithPackage("c2"); err == nil {
		t.Errorf("expected chunk c2 gone")
	}
}
