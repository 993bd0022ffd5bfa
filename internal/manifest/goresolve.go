package manifest

import (
	"bufio"
	"io/fs"
	"strings"

	"github.com/sammcj/depindex/internal/depreg"
	"github.com/sirupsen/logrus"
)

// GoResolver resolves direct dependencies from a go.mod require block,
// skipping indirect requirements.
type GoResolver struct{}

func (GoResolver) Ecosystem() depreg.Registry { return depreg.Go }

func (GoResolver) Resolve(root string, fsys fs.FS, logger *logrus.Logger) ([]depreg.Dependency, error) {
	f, err := fsys.Open("go.mod")
	if err != nil {
		return nil, nil
	}
	defer func() { _ = f.Close() }()

	var deps []depreg.Dependency
	inBlock := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "require ("):
			inBlock = true
			continue
		case inBlock && line == ")":
			inBlock = false
			continue
		case inBlock:
			if dep, ok := parseRequireLine(line); ok {
				deps = append(deps, dep)
			}
		case strings.HasPrefix(line, "require "):
			if dep, ok := parseRequireLine(strings.TrimPrefix(line, "require ")); ok {
				deps = append(deps, dep)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if logger != nil {
			logger.WithFields(logrus.Fields{"root": root, "error": err.Error()}).Warn("malformed go.mod")
		}
		return nil, nil
	}

	for i := range deps {
		if logger != nil {
			logger.WithFields(logrus.Fields{"package": deps[i].Name, "version": deps[i].Version}).Debug("go dependency accepted")
		}
	}
	return deps, nil
}

func parseRequireLine(line string) (depreg.Dependency, bool) {
	if strings.Contains(line, "// indirect") {
		return depreg.Dependency{}, false
	}
	line = strings.SplitN(line, "//", 2)[0]
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return depreg.Dependency{}, false
	}
	path := fields[0]
	version := strings.TrimPrefix(fields[1], "v")
	return depreg.Dependency{Registry: depreg.Go, Name: path, Version: version}, true
}
