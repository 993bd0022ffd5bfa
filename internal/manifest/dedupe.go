package manifest

import (
	"os"

	"github.com/sammcj/depindex/internal/depreg"
	"github.com/sirupsen/logrus"
)

// Dedupe keeps the first occurrence of each (registry, name) pair across the
// whole dependency list, in stable discovery order (spec §4.1).
func Dedupe(deps []depreg.Dependency) []depreg.Dependency {
	seen := make(map[[2]string]bool, len(deps))
	out := make([]depreg.Dependency, 0, len(deps))
	for _, d := range deps {
		key := [2]string{string(d.Registry), d.Name}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

// ResolveAll runs every resolver against every discovered root and returns
// the deduplicated union.
func ResolveAll(roots []ProjectRoot, resolvers []Resolver, logger *logrus.Logger) ([]depreg.Dependency, error) {
	var all []depreg.Dependency
	for _, root := range roots {
		fsys := os.DirFS(root.Path)
		for _, r := range resolvers {
			deps, err := r.Resolve(root.Path, fsys, logger)
			if err != nil {
				if logger != nil {
					logger.WithFields(logrus.Fields{"root": root.Path, "ecosystem": r.Ecosystem(), "error": err.Error()}).Warn("manifest resolver failed, skipping")
				}
				continue
			}
			all = append(all, deps...)
		}
	}
	return Dedupe(all), nil
}
