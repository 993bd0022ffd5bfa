package manifest

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

// neverPruned directories may host independent packages (spec §4.1) and are
// never excluded from descent even though they look like build artifacts.
var neverPruned = map[string]bool{
	"test": true, "tests": true, "example": true, "examples": true,
	"spec": true, "benchmark": true, "benchmarks": true,
}

// LoadOverride reads an optional .idx.toml at root. A missing file is not an
// error; it returns a zero-value override.
func LoadOverride(root string) (*DiscoveryOverride, error) {
	path := filepath.Join(root, ".idx.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &DiscoveryOverride{}, nil
		}
		return nil, err
	}
	var override DiscoveryOverride
	if _, err := toml.Decode(string(data), &override); err != nil {
		return nil, err
	}
	return &override, nil
}

// Discover walks root depth-first and reports every directory that contains
// one of ManifestNames as a ProjectRoot, pruning DefaultExclusions (plus any
// additional names from an .idx.toml) but never pruning test/example-style
// directories. When the override sets Roots explicitly, auto-walk is
// disabled and those paths are reported directly.
func Discover(root string, logger *logrus.Logger) ([]ProjectRoot, error) {
	override, err := LoadOverride(root)
	if err != nil {
		return nil, err
	}

	if len(override.Roots) > 0 {
		roots := make([]ProjectRoot, 0, len(override.Roots))
		for _, rel := range override.Roots {
			dir := filepath.Join(root, rel)
			manifests := manifestsIn(dir)
			if len(manifests) > 0 {
				roots = append(roots, ProjectRoot{Path: dir, Manifests: manifests})
			}
		}
		return roots, nil
	}

	exclusions := map[string]bool{}
	for k, v := range DefaultExclusions {
		exclusions[k] = v
	}
	for _, name := range override.Exclude {
		exclusions[name] = true
	}

	var roots []ProjectRoot
	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if logger != nil {
				logger.WithFields(logrus.Fields{"dir": dir, "error": err.Error()}).Warn("manifest discovery could not read directory")
			}
			return nil
		}

		manifests := manifestsIn(dir)
		if len(manifests) > 0 {
			roots = append(roots, ProjectRoot{Path: dir, Manifests: manifests})
		}

		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			name := e.Name()
			if neverPruned[name] {
				if err := walk(filepath.Join(dir, name)); err != nil {
					return err
				}
				continue
			}
			if exclusions[name] {
				continue
			}
			if err := walk(filepath.Join(dir, name)); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root); err != nil {
		return nil, err
	}
	return roots, nil
}

func manifestsIn(dir string) []string {
	var found []string
	for _, name := range ManifestNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			found = append(found, name)
		}
	}
	return found
}
