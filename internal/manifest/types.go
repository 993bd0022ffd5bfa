// Package manifest discovers project roots in a filesystem tree and resolves
// each one's direct dependencies from its manifests and lockfiles.
package manifest

import (
	"io/fs"

	"github.com/sammcj/depindex/internal/depreg"
	"github.com/sirupsen/logrus"
)

// ManifestNames are the files that mark a directory as a project root.
var ManifestNames = []string{"package.json", "Cargo.toml", "go.mod", "pyproject.toml", "requirements.txt", "pom.xml"}

// DefaultExclusions is the built-in directory-basename exclusion set
// (spec §4.1): dependency caches, build outputs, language caches,
// virtualenvs, VCS directories, and the index directory itself.
var DefaultExclusions = map[string]bool{
	"node_modules":    true,
	"vendor":          true,
	"target":          true,
	"dist":            true,
	"build":           true,
	".next":           true,
	"out":             true,
	"__pycache__":     true,
	".pytest_cache":   true,
	".mypy_cache":     true,
	".ruff_cache":     true,
	".venv":           true,
	"venv":            true,
	".git":            true,
	".hg":             true,
	".svn":            true,
	".index":          true,
}

// ProjectRoot is a directory identified during discovery as hosting one or
// more manifests.
type ProjectRoot struct {
	Path      string
	Manifests []string
}

// Resolver extracts direct dependencies for one ecosystem from a project
// root's manifest (and lockfile, when present).
type Resolver interface {
	Ecosystem() depreg.Registry
	Resolve(root string, fsys fs.FS, logger *logrus.Logger) ([]depreg.Dependency, error)
}

// DiscoveryOverride is the parsed content of an optional .idx.toml at the
// project root (spec §6).
type DiscoveryOverride struct {
	Roots   []string `toml:"roots"`
	Exclude []string `toml:"exclude"`
}

// AllResolvers returns one Resolver per supported ecosystem.
func AllResolvers() []Resolver {
	return []Resolver{
		NpmResolver{},
		GoResolver{},
		CratesResolver{},
		PypiResolver{},
		MavenResolver{},
	}
}
