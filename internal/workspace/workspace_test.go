package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sammcj/depindex/internal/depreg"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestDetectNpmSimple(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"name": "left-pad"}`)
	writeFile(t, filepath.Join(root, "index.js"), `function leftPad() {}`)

	got, err := Detect(root, nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d packages, want 1: %+v", len(got), got)
	}
	if got[0].Registry != depreg.Npm || got[0].Name != "left-pad" || got[0].RootPath != root {
		t.Errorf("unexpected package: %+v", got[0])
	}
}

func TestDetectCargoWorkspaceMembersGlob(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Cargo.toml"), "[workspace]\nmembers = [\"crates/*\"]\n")
	writeFile(t, filepath.Join(root, "crates/foo/Cargo.toml"), "[package]\nname = \"foo\"\n")
	writeFile(t, filepath.Join(root, "crates/foo/src/lib.rs"), "fn foo() {}")
	writeFile(t, filepath.Join(root, "crates/bar/Cargo.toml"), "[package]\nname = \"bar\"\n")
	writeFile(t, filepath.Join(root, "crates/bar/src/lib.rs"), "fn bar() {}")
	// Outside any declared member; must not surface as its own package.
	writeFile(t, filepath.Join(root, "other/Cargo.toml"), "[package]\nname = \"other\"\n")
	writeFile(t, filepath.Join(root, "other/src/lib.rs"), "fn other() {}")

	got, err := Detect(root, nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d packages, want 2: %+v", len(got), got)
	}
	names := map[string]bool{}
	for _, p := range got {
		names[p.Name] = true
	}
	if !names["foo"] || !names["bar"] || names["other"] {
		t.Errorf("unexpected member set: %+v", got)
	}
}

func TestDetectCargoNestedGlobNotMatched(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Cargo.toml"), "[workspace]\nmembers = [\"crates/*\"]\n")
	// Two levels below the glob prefix: crates/* matches one level only.
	writeFile(t, filepath.Join(root, "crates/foo/nested/Cargo.toml"), "[package]\nname = \"nested\"\n")
	writeFile(t, filepath.Join(root, "crates/foo/nested/src/lib.rs"), "fn nested() {}")

	got, err := Detect(root, nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected nested non-member crate to be dropped, got %+v", got)
	}
}

func TestDetectPolyglotDirectoryPicksLanguageWithSource(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"name": "mixed"}`)
	writeFile(t, filepath.Join(root, "pyproject.toml"), "[project]\nname = \"mixed\"\n")
	writeFile(t, filepath.Join(root, "main.py"), "def main(): pass")

	got, err := Detect(root, nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d packages, want 1: %+v", len(got), got)
	}
	if got[0].Registry != depreg.Pypi {
		t.Errorf("expected pypi to win (only .py source present), got %+v", got[0])
	}
}

func TestDetectSkipsTestDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"name": "root"}`)
	writeFile(t, filepath.Join(root, "index.js"), "function f() {}")
	writeFile(t, filepath.Join(root, "test/fixtures/package.json"), `{"name": "fixture"}`)
	writeFile(t, filepath.Join(root, "test/fixtures/index.js"), "function g() {}")

	got, err := Detect(root, nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(got) != 1 || got[0].Name != "root" {
		t.Fatalf("expected only the root package, got %+v", got)
	}
}

func TestIsMemberSingleLevelGlobOnly(t *testing.T) {
	members := []string{"packages/*"}
	if !isMember("packages/foo", members) {
		t.Errorf("expected packages/foo to match packages/*")
	}
	if isMember("packages/foo/bar", members) {
		t.Errorf("expected packages/foo/bar not to match packages/* (single level only)")
	}
}

func TestIsMemberExactMatch(t *testing.T) {
	if !isMember("apps/web", []string{"apps/web"}) {
		t.Errorf("expected exact member match")
	}
	if isMember("apps/api", []string{"apps/web"}) {
		t.Errorf("expected non-member to be rejected")
	}
}
