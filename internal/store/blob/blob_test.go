package blob

import (
	"path/filepath"
	"testing"
)

func TestPutGetExistsRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	data := []byte("package main\n\nfunc main() {}\n")

	key, err := s.Put("npm", "left-pad", "1.0.0", data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	wantPrefix := filepath.ToSlash(filepath.Join("npm", "left-pad", "1.0.0"))
	if key[:len(wantPrefix)] != wantPrefix {
		t.Errorf("key = %q, want prefix %q", key, wantPrefix)
	}
	if !s.Exists(key) {
		t.Errorf("Exists(%q) = false, want true", key)
	}

	got, err := s.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Get returned %q, want %q", got, data)
	}
}

func TestPutIsIdempotent(t *testing.T) {
	s := New(t.TempDir())
	data := []byte("same content")

	key1, err := s.Put("npm", "pkg", "1.0.0", data)
	if err != nil {
		t.Fatalf("Put 1: %v", err)
	}
	key2, err := s.Put("npm", "pkg", "1.0.0", data)
	if err != nil {
		t.Fatalf("Put 2: %v", err)
	}
	if key1 != key2 {
		t.Errorf("keys differ across idempotent puts: %q vs %q", key1, key2)
	}
}

func TestDeleteRemovesBlob(t *testing.T) {
	s := New(t.TempDir())
	key, err := s.Put("npm", "pkg", "1.0.0", []byte("x"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Exists(key) {
		t.Errorf("Exists after Delete = true, want false")
	}
	if err := s.Delete(key); err != nil {
		t.Errorf("Delete of absent key should be a no-op, got %v", err)
	}
}

func TestDeletePackageRemovesAllBlobs(t *testing.T) {
	s := New(t.TempDir())
	k1, _ := s.Put("npm", "pkg", "1.0.0", []byte("a"))
	k2, _ := s.Put("npm", "pkg", "1.0.0", []byte("b"))

	if err := s.DeletePackage("npm", "pkg", "1.0.0"); err != nil {
		t.Fatalf("DeletePackage: %v", err)
	}
	if s.Exists(k1) || s.Exists(k2) {
		t.Errorf("blobs still exist after DeletePackage")
	}
}

func TestGetMissingReturnsError(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Get("npm/pkg/1.0.0/deadbeef"); err == nil {
		t.Errorf("Get of missing key should error")
	}
}
