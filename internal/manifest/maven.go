package manifest

import (
	"encoding/xml"
	"io/fs"
	"strings"

	"github.com/sammcj/depindex/internal/depreg"
	"github.com/sirupsen/logrus"
)

// MavenResolver resolves direct Java dependencies from pom.xml, excluding
// entries inside <dependencyManagement> and resolving ${var} references
// against project-depth-2 <properties>.
type MavenResolver struct{}

func (MavenResolver) Ecosystem() depreg.Registry { return depreg.Maven }

type pomProperty struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Scope      string `xml:"scope"`
}

type pomProject struct {
	XMLName      xml.Name `xml:"project"`
	Properties   struct {
		Items []pomProperty `xml:",any"`
	} `xml:"properties"`
	Dependencies struct {
		Items []pomDependency `xml:"dependency"`
	} `xml:"dependencies"`
	DependencyManagement struct {
		Dependencies struct {
			Items []pomDependency `xml:"dependency"`
		} `xml:"dependencies"`
	} `xml:"dependencyManagement"`
}

func (MavenResolver) Resolve(root string, fsys fs.FS, logger *logrus.Logger) ([]depreg.Dependency, error) {
	data, err := fs.ReadFile(fsys, "pom.xml")
	if err != nil {
		return nil, nil
	}
	var pom pomProject
	if err := xml.Unmarshal(data, &pom); err != nil {
		if logger != nil {
			logger.WithFields(logrus.Fields{"root": root, "error": err.Error()}).Warn("malformed pom.xml")
		}
		return nil, nil
	}

	props := map[string]string{}
	for _, p := range pom.Properties.Items {
		props[p.XMLName.Local] = strings.TrimSpace(p.Value)
	}

	var deps []depreg.Dependency
	for _, d := range pom.Dependencies.Items {
		if d.Scope != "" && d.Scope != "compile" && d.Scope != "runtime" {
			continue
		}
		version := resolveMavenVar(d.Version, props)
		if version == "" {
			if logger != nil {
				logger.WithFields(logrus.Fields{"package": d.GroupID + ":" + d.ArtifactID}).Debug("maven dependency rejected: unresolvable version")
			}
			continue
		}
		name := d.GroupID + ":" + d.ArtifactID
		deps = append(deps, depreg.Dependency{Registry: depreg.Maven, Name: name, Version: version})
	}
	return deps, nil
}

// resolveMavenVar resolves a "${var}" reference against props; "${undefined}"
// is left literal (spec §8).
func resolveMavenVar(version string, props map[string]string) string {
	version = strings.TrimSpace(version)
	if !strings.HasPrefix(version, "${") || !strings.HasSuffix(version, "}") {
		return version
	}
	key := strings.TrimSuffix(strings.TrimPrefix(version, "${"), "}")
	if v, ok := props[key]; ok {
		return v
	}
	return version
}
