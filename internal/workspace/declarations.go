package workspace

import (
	"bufio"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// declarations holds the member glob/path patterns parsed from every
// workspace-declaring manifest found at a repository root (spec §4.10 step 2).
type declarations struct {
	members []string
}

func (d *declarations) hasMembers() bool { return len(d.members) > 0 }

// parseDeclarations reads every workspace-declaration file that may sit at
// root and merges their member lists. A missing or malformed file
// contributes nothing; it is not an error for a repo to have no workspace.
func parseDeclarations(root string) *declarations {
	var d declarations
	d.members = append(d.members, npmWorkspaceMembers(root)...)
	d.members = append(d.members, pnpmWorkspaceMembers(root)...)
	d.members = append(d.members, lernaWorkspaceMembers(root)...)
	d.members = append(d.members, cargoWorkspaceMembers(root)...)
	d.members = append(d.members, goWorkMembers(root)...)
	d.members = append(d.members, mavenModules(root)...)
	return &d
}

// npmWorkspaceMembers covers both npm's own `workspaces: [...]` array form
// and Yarn's `workspaces: {packages: [...]}` object form.
func npmWorkspaceMembers(root string) []string {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return nil
	}
	var pkg struct {
		Workspaces json.RawMessage `json:"workspaces"`
	}
	if json.Unmarshal(data, &pkg) != nil || len(pkg.Workspaces) == 0 {
		return nil
	}

	var arr []string
	if json.Unmarshal(pkg.Workspaces, &arr) == nil {
		return arr
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if json.Unmarshal(pkg.Workspaces, &obj) == nil {
		return obj.Packages
	}
	return nil
}

func pnpmWorkspaceMembers(root string) []string {
	data, err := os.ReadFile(filepath.Join(root, "pnpm-workspace.yaml"))
	if err != nil {
		return nil
	}
	var y struct {
		Packages []string `yaml:"packages"`
	}
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil
	}
	return y.Packages
}

func lernaWorkspaceMembers(root string) []string {
	data, err := os.ReadFile(filepath.Join(root, "lerna.json"))
	if err != nil {
		return nil
	}
	var l struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(data, &l); err != nil {
		return nil
	}
	return l.Packages
}

func cargoWorkspaceMembers(root string) []string {
	data, err := os.ReadFile(filepath.Join(root, "Cargo.toml"))
	if err != nil {
		return nil
	}
	var c struct {
		Workspace struct {
			Members []string `toml:"members"`
		} `toml:"workspace"`
	}
	if _, err := toml.Decode(string(data), &c); err != nil {
		return nil
	}
	return c.Workspace.Members
}

// goWorkMembers parses the `use (...)`/`use path` directives of a go.work
// file, mirroring the way GoResolver walks a go.mod require block.
func goWorkMembers(root string) []string {
	f, err := os.Open(filepath.Join(root, "go.work"))
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	var members []string
	inBlock := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "use ("):
			inBlock = true
		case inBlock && line == ")":
			inBlock = false
		case inBlock:
			members = append(members, cleanGoWorkPath(line))
		case strings.HasPrefix(line, "use "):
			members = append(members, cleanGoWorkPath(strings.TrimPrefix(line, "use ")))
		}
	}
	return members
}

func cleanGoWorkPath(p string) string {
	p = strings.TrimSpace(strings.SplitN(p, "//", 2)[0])
	p = strings.TrimPrefix(p, "./")
	return p
}

type pomProject struct {
	Modules []string `xml:"modules>module"`
}

func mavenModules(root string) []string {
	data, err := os.ReadFile(filepath.Join(root, "pom.xml"))
	if err != nil {
		return nil
	}
	var p pomProject
	if err := xml.Unmarshal(data, &p); err != nil {
		return nil
	}
	return p.Modules
}

// isMember implements spec §4.10 step 3's membership test: an exact path
// match, or a `prefix/*` glob matching exactly one path segment below prefix.
func isMember(rel string, members []string) bool {
	rel = filepath.ToSlash(rel)
	for _, m := range members {
		m = strings.TrimPrefix(filepath.ToSlash(m), "./")
		m = strings.TrimSuffix(m, "/")
		if m == rel {
			return true
		}
		if strings.HasSuffix(m, "/*") {
			prefix := strings.TrimSuffix(m, "*")
			if rest, ok := strings.CutPrefix(rel, prefix); ok && rest != "" && !strings.Contains(rest, "/") {
				return true
			}
		}
	}
	return false
}
