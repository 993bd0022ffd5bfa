package manifest

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sammcj/depindex/internal/depreg"
	"github.com/sirupsen/logrus"
)

// CratesResolver resolves direct Rust dependencies from Cargo.toml
// (including workspace-inherited entries and workspace member expansion)
// overridden by Cargo.lock when present.
type CratesResolver struct{}

func (CratesResolver) Ecosystem() depreg.Registry { return depreg.Crates }

func (CratesResolver) Resolve(root string, fsys fs.FS, logger *logrus.Logger) ([]depreg.Dependency, error) {
	doc, ok := decodeCargoToml(fsys, "Cargo.toml", logger)
	if !ok {
		return nil, nil
	}

	locked := parseCargoLock(fsys)

	workspaceDeps := tableOf(doc, "workspace", "dependencies")

	members := membersOf(doc)

	var deps []depreg.Dependency
	deps = append(deps, extractCargoDeps(doc, workspaceDeps, locked, logger)...)

	for _, memberGlob := range members {
		matches := expandOneLevelGlob(fsys, memberGlob)
		for _, m := range matches {
			memberPath := filepath.ToSlash(filepath.Join(m, "Cargo.toml"))
			memberDoc, ok := decodeCargoToml(fsys, memberPath, logger)
			if !ok {
				continue
			}
			deps = append(deps, extractCargoDeps(memberDoc, workspaceDeps, locked, logger)...)
		}
	}

	return deps, nil
}

func decodeCargoToml(fsys fs.FS, path string, logger *logrus.Logger) (map[string]any, bool) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, false
	}
	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		if logger != nil {
			logger.WithFields(logrus.Fields{"path": path, "error": err.Error()}).Warn("malformed Cargo.toml")
		}
		return nil, false
	}
	return doc, true
}

func extractCargoDeps(doc map[string]any, workspaceDeps map[string]any, locked map[string]string, logger *logrus.Logger) []depreg.Dependency {
	var deps []depreg.Dependency
	for _, section := range []string{"dependencies", "dev-dependencies", "build-dependencies"} {
		table, ok := doc[section].(map[string]any)
		if !ok {
			continue
		}
		for name, raw := range table {
			spec, inherited, skip := cargoSpecOf(raw)
			if skip {
				continue
			}
			if inherited {
				if wsSpec, ok := workspaceDeps[name]; ok {
					spec, _, skip = cargoSpecOf(wsSpec)
					if skip {
						continue
					}
				} else {
					continue
				}
			}
			version := locked[name]
			if version == "" {
				version = clean(spec)
			}
			if version == "" {
				if logger != nil {
					logger.WithFields(logrus.Fields{"package": name, "spec": spec}).Debug("crates dependency rejected: unresolvable version")
				}
				continue
			}
			deps = append(deps, depreg.Dependency{Registry: depreg.Crates, Name: name, Version: version})
		}
	}
	return deps
}

// cargoSpecOf normalizes a dependency value, which may be a bare version
// string or a table {version, path, git, workspace}.
func cargoSpecOf(raw any) (spec string, inherited bool, skip bool) {
	switch v := raw.(type) {
	case string:
		return v, false, false
	case map[string]any:
		if _, hasPath := v["path"]; hasPath {
			return "", false, true
		}
		if _, hasGit := v["git"]; hasGit {
			return "", false, true
		}
		if ws, ok := v["workspace"].(bool); ok && ws {
			return "", true, false
		}
		if ver, ok := v["version"].(string); ok {
			return ver, false, false
		}
		return "", false, true
	default:
		return "", false, true
	}
}

func tableOf(doc map[string]any, keys ...string) map[string]any {
	cur := doc
	for _, k := range keys {
		next, ok := cur[k].(map[string]any)
		if !ok {
			return map[string]any{}
		}
		cur = next
	}
	return cur
}

func membersOf(doc map[string]any) []string {
	ws, ok := doc["workspace"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := ws["members"].([]any)
	if !ok {
		return nil
	}
	var members []string
	for _, m := range raw {
		if s, ok := m.(string); ok {
			members = append(members, s)
		}
	}
	return members
}

// expandOneLevelGlob expands a "crates/*" style pattern to its one-level
// subdirectories only (spec §8: glob "prefix/*" matches one level, not
// "prefix/a/b").
func expandOneLevelGlob(fsys fs.FS, pattern string) []string {
	if !strings.HasSuffix(pattern, "/*") {
		return []string{pattern}
	}
	prefix := strings.TrimSuffix(pattern, "/*")
	entries, err := fs.ReadDir(fsys, prefix)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, filepath.ToSlash(filepath.Join(prefix, e.Name())))
		}
	}
	return out
}

type cargoLockPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

type cargoLock struct {
	Package []cargoLockPackage `toml:"package"`
}

func parseCargoLock(fsys fs.FS) map[string]string {
	data, err := fs.ReadFile(fsys, "Cargo.lock")
	if err != nil {
		return map[string]string{}
	}
	var lock cargoLock
	if _, err := toml.Decode(string(data), &lock); err != nil {
		return map[string]string{}
	}
	locked := map[string]string{}
	for _, p := range lock.Package {
		locked[p.Name] = p.Version
	}
	return locked
}
