package manifest

import (
	"testing"
	"testing/fstest"
)

func TestExpandOneLevelGlobMatchesOneLevelOnly(t *testing.T) {
	fsys := fstest.MapFS{
		"crates/a/Cargo.toml":      {Data: []byte("")},
		"crates/b/Cargo.toml":      {Data: []byte("")},
		"crates/b/nested/file.rs":  {Data: []byte("")},
	}
	got := expandOneLevelGlob(fsys, "crates/*")
	if len(got) != 2 {
		t.Fatalf("expected 2 members, got %d: %v", len(got), got)
	}
}

func TestExpandOneLevelGlobNonGlobPassthrough(t *testing.T) {
	got := expandOneLevelGlob(fstest.MapFS{}, "crates/single")
	if len(got) != 1 || got[0] != "crates/single" {
		t.Fatalf("expected passthrough, got %v", got)
	}
}

func TestCargoSpecOfSkipsPathAndGit(t *testing.T) {
	if _, _, skip := cargoSpecOf(map[string]any{"path": "../local"}); !skip {
		t.Error("expected path dependency to be skipped")
	}
	if _, _, skip := cargoSpecOf(map[string]any{"git": "https://example.com/repo"}); !skip {
		t.Error("expected git dependency to be skipped")
	}
	if spec, inherited, skip := cargoSpecOf(map[string]any{"workspace": true}); !inherited || skip || spec != "" {
		t.Errorf("expected workspace inheritance marker, got (%q, %v, %v)", spec, inherited, skip)
	}
	if spec, _, skip := cargoSpecOf("1.2.3"); skip || spec != "1.2.3" {
		t.Errorf("expected bare string passthrough, got (%q, %v)", spec, skip)
	}
}
