// Package workspace implements the cross-ecosystem polyglot-monorepo
// detector: given a repository root, it classifies every manifest directory
// into the set of packages that should actually be indexed, resolving the
// ambiguity of workspace membership and mixed-language directories.
package workspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sammcj/depindex/internal/depreg"
	"github.com/sammcj/depindex/internal/manifest"
	"github.com/sirupsen/logrus"
)

// DetectedPackage is one package candidate surviving all five detection
// steps: a registry, its manifest's declared name (best-effort, may be
// empty), and the directory it was found in.
type DetectedPackage struct {
	Registry depreg.Registry
	Name     string
	RootPath string
}

// skipPatternDirs are directory basenames that disqualify any manifest
// found under them from being a package candidate (spec §4.10 step 3),
// distinct from internal/manifest's neverPruned set: those are still walked
// for nested manifests, but a manifest sitting directly under one of these
// names is not itself a package.
var skipPatternDirs = map[string]bool{
	"test": true, "tests": true,
	"example": true, "examples": true,
	"fixture": true, "fixtures": true,
	"benchmark": true, "benchmarks": true,
	"dependency-cache": true,
}

// sourceExtensions maps a registry to the file extensions that count as
// "the registry's language is present" for spec §4.10 step 4.
var sourceExtensions = map[depreg.Registry][]string{
	depreg.Npm:    {".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs"},
	depreg.Pypi:   {".py"},
	depreg.Crates: {".rs"},
	depreg.Go:     {".go"},
	depreg.Maven:  {".java"},
}

func registryForManifest(name string) (depreg.Registry, bool) {
	switch name {
	case "package.json":
		return depreg.Npm, true
	case "Cargo.toml":
		return depreg.Crates, true
	case "go.mod":
		return depreg.Go, true
	case "pyproject.toml", "requirements.txt":
		return depreg.Pypi, true
	case "pom.xml":
		return depreg.Maven, true
	default:
		return "", false
	}
}

// Detect runs the exact five-step algorithm from spec §4.10 rooted at root.
func Detect(root string, logger *logrus.Logger) ([]DetectedPackage, error) {
	roots, err := manifest.Discover(root, logger) // step 1
	if err != nil {
		return nil, err
	}

	decl := parseDeclarations(root) // step 2

	type key struct {
		path     string
		registry depreg.Registry
	}
	seen := map[key]bool{}
	var out []DetectedPackage

	for _, pr := range roots {
		rel, err := filepath.Rel(root, pr.Path)
		if err != nil {
			continue
		}
		if rel == "." {
			rel = ""
		}
		rel = filepath.ToSlash(rel)

		if underSkipPattern(rel) {
			continue
		}
		if decl.hasMembers() && rel != "" && !isMember(rel, decl.members) {
			continue
		}

		for _, manifestName := range pr.Manifests {
			registry, ok := registryForManifest(manifestName)
			if !ok {
				continue
			}
			if !hasSource(pr.Path, sourceExtensions[registry]) { // step 4
				continue
			}

			k := key{path: pr.Path, registry: registry}
			if seen[k] { // step 5
				continue
			}
			seen[k] = true

			name := packageName(pr.Path, manifestName, registry)
			if name == "" {
				name = filepath.Base(pr.Path)
			}
			out = append(out, DetectedPackage{Registry: registry, Name: name, RootPath: pr.Path})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RootPath != out[j].RootPath {
			return out[i].RootPath < out[j].RootPath
		}
		return out[i].Registry < out[j].Registry
	})
	return out, nil
}

func underSkipPattern(rel string) bool {
	if rel == "" {
		return false
	}
	for _, segment := range strings.Split(rel, "/") {
		if skipPatternDirs[segment] {
			return true
		}
	}
	return false
}

// hasSource reports whether any file in dir's subtree (spec §4.10 step 4)
// carries one of exts. The walk stops at build-output directories (the same
// ones manifest discovery prunes) and at any nested directory that is itself
// a manifest root: that subtree belongs to its own package candidate, not to
// dir's.
func hasSource(dir string, exts []string) bool {
	if len(exts) == 0 {
		return false
	}
	found := false
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if found {
			return fs.SkipAll
		}
		if d.IsDir() {
			if path == dir {
				return nil
			}
			if manifest.DefaultExclusions[d.Name()] || isManifestDir(path) {
				return fs.SkipDir
			}
			return nil
		}
		for _, ext := range exts {
			if strings.HasSuffix(path, ext) {
				found = true
				return fs.SkipAll
			}
		}
		return nil
	})
	return found
}

func isManifestDir(dir string) bool {
	for _, name := range manifest.ManifestNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
