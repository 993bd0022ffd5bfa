// Package project scans a repository root for direct dependencies across
// every supported ecosystem, producing the input list the indexer drives
// over for init/update/status/prune.
package project

import (
	"github.com/sammcj/depindex/internal/depreg"
	"github.com/sammcj/depindex/internal/manifest"
	"github.com/sirupsen/logrus"
)

// Scan discovers every manifest under root and resolves the deduplicated
// union of direct dependencies per spec.md §4.1.
func Scan(root string, logger *logrus.Logger) ([]depreg.Dependency, error) {
	roots, err := manifest.Discover(root, logger)
	if err != nil {
		return nil, err
	}
	return manifest.ResolveAll(roots, manifest.AllResolvers(), logger)
}

// Key identifies a dependency by (registry, name), ignoring version, for
// comparisons against what is currently indexed.
type Key struct {
	Registry depreg.Registry
	Name     string
}

// KeySet indexes deps by Key for membership tests.
func KeySet(deps []depreg.Dependency) map[Key]depreg.Dependency {
	out := make(map[Key]depreg.Dependency, len(deps))
	for _, d := range deps {
		out[Key{Registry: d.Registry, Name: d.Name}] = d
	}
	return out
}
