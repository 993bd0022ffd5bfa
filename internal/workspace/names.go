package workspace

import (
	"bufio"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sammcj/depindex/internal/depreg"
)

// packageName makes a best-effort read of the manifest's own declared name.
// An empty result is expected and fine (spec §4.10: DetectedPackage's name
// is optional) — callers fall back to the directory basename.
func packageName(dir, manifestName string, registry depreg.Registry) string {
	switch manifestName {
	case "package.json":
		return jsonField(filepath.Join(dir, "package.json"), "name")
	case "Cargo.toml":
		return cargoPackageName(dir)
	case "go.mod":
		return goModModuleName(dir)
	case "pyproject.toml":
		return pyprojectName(dir)
	case "pom.xml":
		return pomArtifactID(dir)
	default:
		return ""
	}
}

func jsonField(path, key string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var m map[string]any
	if json.Unmarshal(data, &m) != nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func cargoPackageName(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "Cargo.toml"))
	if err != nil {
		return ""
	}
	var c struct {
		Package struct {
			Name string `toml:"name"`
		} `toml:"package"`
	}
	if _, err := toml.Decode(string(data), &c); err != nil {
		return ""
	}
	return c.Package.Name
}

func goModModuleName(dir string) string {
	f, err := os.Open(filepath.Join(dir, "go.mod"))
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "module ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "module "))
		}
	}
	return ""
}

func pyprojectName(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "pyproject.toml"))
	if err != nil {
		return ""
	}
	var p struct {
		Project struct {
			Name string `toml:"name"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Name string `toml:"name"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if _, err := toml.Decode(string(data), &p); err != nil {
		return ""
	}
	if p.Project.Name != "" {
		return p.Project.Name
	}
	return p.Tool.Poetry.Name
}

func pomArtifactID(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "pom.xml"))
	if err != nil {
		return ""
	}
	var p struct {
		ArtifactID string `xml:"artifactId"`
	}
	if err := xml.Unmarshal(data, &p); err != nil {
		return ""
	}
	return p.ArtifactID
}
