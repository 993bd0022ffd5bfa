package manifest

import (
	"bufio"
	"io/fs"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sammcj/depindex/internal/depreg"
	"github.com/sirupsen/logrus"
)

// PypiResolver resolves direct Python dependencies from PEP 621
// [project].dependencies, Poetry [tool.poetry.dependencies], and
// requirements.txt, with pyproject.toml winning over requirements.txt on
// name collision.
type PypiResolver struct{}

func (PypiResolver) Ecosystem() depreg.Registry { return depreg.Pypi }

func (PypiResolver) Resolve(root string, fsys fs.FS, logger *logrus.Logger) ([]depreg.Dependency, error) {
	seen := map[string]bool{}
	var deps []depreg.Dependency

	if data, err := fs.ReadFile(fsys, "pyproject.toml"); err == nil {
		var doc map[string]any
		if _, err := toml.Decode(string(data), &doc); err != nil {
			if logger != nil {
				logger.WithFields(logrus.Fields{"root": root, "error": err.Error()}).Warn("malformed pyproject.toml")
			}
		} else {
			for _, spec := range pep621Specs(doc) {
				addPythonDep(&deps, seen, spec, logger)
			}
			for name, rawSpec := range poetrySpecs(doc) {
				if name == "python" {
					continue
				}
				addPythonDep(&deps, seen, name+" "+rawSpec, logger)
			}
		}
	}

	if data, err := fs.ReadFile(fsys, "requirements.txt"); err == nil {
		scanner := bufio.NewScanner(strings.NewReader(string(data)))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
				continue
			}
			addPythonDep(&deps, seen, line, logger)
		}
	}

	return deps, nil
}

func addPythonDep(deps *[]depreg.Dependency, seen map[string]bool, spec string, logger *logrus.Logger) {
	name, version, ok := parsePEP508(spec)
	if !ok {
		return
	}
	if seen[name] {
		return
	}
	seen[name] = true
	if version == "" {
		if logger != nil {
			logger.WithFields(logrus.Fields{"package": name}).Debug("python dependency rejected: unresolvable version")
		}
		return
	}
	*deps = append(*deps, depreg.Dependency{Registry: depreg.Pypi, Name: name, Version: version})
}

// parsePEP508 parses a PEP 508-ish spec "name[extras] (op)version; marker".
// Accepts only ==, >=, or ~= as the version operator (spec §4.1); strips
// [extras] and environment markers.
func parsePEP508(spec string) (name, version string, ok bool) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", "", false
	}
	if idx := strings.Index(spec, ";"); idx != -1 {
		spec = strings.TrimSpace(spec[:idx])
	}
	if spec == "" {
		return "", "", false
	}

	nameEnd := len(spec)
	for i, r := range spec {
		if r == '[' || r == '=' || r == '>' || r == '<' || r == '~' || r == ' ' {
			nameEnd = i
			break
		}
	}
	name = strings.TrimSpace(spec[:nameEnd])
	if name == "" {
		return "", "", false
	}
	rest := strings.TrimSpace(spec[nameEnd:])
	if idx := strings.Index(rest, "]"); idx != -1 {
		rest = strings.TrimSpace(rest[idx+1:])
	}
	rest = strings.TrimPrefix(rest, ",")
	rest = strings.TrimSpace(rest)

	for _, op := range []string{"==", ">=", "~="} {
		if strings.HasPrefix(rest, op) {
			return name, clean(strings.TrimPrefix(rest, op)), true
		}
	}
	// No recognized operator (or a rejected operator like ">" alone, or a
	// bare range): emit with no version, letting the caller drop it.
	return name, "", true
}

func pep621Specs(doc map[string]any) []string {
	project, ok := doc["project"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := project["dependencies"].([]any)
	if !ok {
		return nil
	}
	var specs []string
	for _, r := range raw {
		if s, ok := r.(string); ok {
			specs = append(specs, s)
		}
	}
	return specs
}

func poetrySpecs(doc map[string]any) map[string]string {
	tool, ok := doc["tool"].(map[string]any)
	if !ok {
		return nil
	}
	poetry, ok := tool["poetry"].(map[string]any)
	if !ok {
		return nil
	}
	deps, ok := poetry["dependencies"].(map[string]any)
	if !ok {
		return nil
	}
	out := map[string]string{}
	for name, raw := range deps {
		switch v := raw.(type) {
		case string:
			if c := clean(v); c != "" {
				out[name] = "==" + c
			}
		case map[string]any:
			if ver, ok := v["version"].(string); ok {
				if c := clean(ver); c != "" {
					out[name] = "==" + c
				}
			}
		}
	}
	return out
}
