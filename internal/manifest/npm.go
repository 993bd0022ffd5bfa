package manifest

import (
	"encoding/json"
	"io/fs"
	"strings"

	"github.com/sammcj/depindex/internal/depreg"
	"github.com/sirupsen/logrus"
)

// NpmResolver resolves direct npm dependencies from package.json, overridden
// by first-level package-lock.json entries.
type NpmResolver struct{}

func (NpmResolver) Ecosystem() depreg.Registry { return depreg.Npm }

type npmManifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

type npmLockPackage struct {
	Version string `json:"version"`
}

type npmLock struct {
	Packages map[string]npmLockPackage `json:"packages"`
}

func (NpmResolver) Resolve(root string, fsys fs.FS, logger *logrus.Logger) ([]depreg.Dependency, error) {
	data, err := fs.ReadFile(fsys, "package.json")
	if err != nil {
		return nil, nil
	}
	var manifestDoc npmManifest
	if err := json.Unmarshal(data, &manifestDoc); err != nil {
		if logger != nil {
			logger.WithFields(logrus.Fields{"root": root, "error": err.Error()}).Warn("malformed package.json")
		}
		return nil, nil
	}

	locked := map[string]string{}
	if lockData, err := fs.ReadFile(fsys, "package-lock.json"); err == nil {
		var lock npmLock
		if err := json.Unmarshal(lockData, &lock); err == nil {
			for path, pkg := range lock.Packages {
				name, ok := firstLevelNodeModule(path)
				if !ok {
					continue
				}
				locked[name] = pkg.Version
			}
		}
	}

	merged := map[string]string{}
	for name, spec := range manifestDoc.Dependencies {
		merged[name] = spec
	}
	for name, spec := range manifestDoc.DevDependencies {
		if _, ok := merged[name]; !ok {
			merged[name] = spec
		}
	}

	var deps []depreg.Dependency
	for name, spec := range merged {
		if isUnversionedSpec(spec) {
			continue
		}
		version := locked[name]
		if version == "" {
			version = clean(spec)
		}
		if version == "" {
			if logger != nil {
				logger.WithFields(logrus.Fields{"package": name, "spec": spec}).Debug("npm dependency rejected: unresolvable version")
			}
			continue
		}
		deps = append(deps, depreg.Dependency{Registry: depreg.Npm, Name: name, Version: version})
		if logger != nil {
			logger.WithFields(logrus.Fields{"package": name, "version": version}).Debug("npm dependency accepted")
		}
	}
	return deps, nil
}

func isUnversionedSpec(spec string) bool {
	return strings.HasPrefix(spec, "git") || strings.HasPrefix(spec, "file:") ||
		strings.HasPrefix(spec, "http") || strings.Contains(spec, "github:")
}

// firstLevelNodeModule returns (name, true) iff path is exactly
// "node_modules/<name>" or "node_modules/@scope/<name>" with no further
// nested node_modules segment (i.e. not transitive).
func firstLevelNodeModule(path string) (string, bool) {
	const prefix = "node_modules/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(path, prefix)
	if strings.Contains(rest, "node_modules/") {
		return "", false
	}
	if strings.HasPrefix(rest, "@") {
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) == 2 {
			return parts[0] + "/" + parts[1], true
		}
		return "", false
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}
