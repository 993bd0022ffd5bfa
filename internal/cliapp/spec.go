package cliapp

import (
	"fmt"
	"strings"

	"github.com/sammcj/depindex/internal/depreg"
)

// parsedSpec is one `registry:name@version` or `registry:name` argument, as
// accepted by index/remove/retry/skip.
type parsedSpec struct {
	Registry depreg.Registry
	Name     string
	Version  string // empty when the spec omitted @version
}

// parseSpec parses "registry:name@version" (version required) or
// "registry:name" (version optional, caller decides whether that's valid).
func parseSpec(raw string) (parsedSpec, error) {
	colon := strings.IndexByte(raw, ':')
	if colon < 0 {
		return parsedSpec{}, fmt.Errorf("spec %q must be in registry:name[@version] form", raw)
	}
	registry := depreg.Registry(raw[:colon])
	if !registry.Valid() {
		return parsedSpec{}, fmt.Errorf("spec %q: unknown registry %q", raw, registry)
	}
	rest := raw[colon+1:]
	if rest == "" {
		return parsedSpec{}, fmt.Errorf("spec %q: missing package name", raw)
	}

	// A scoped npm name starts with its own '@' (e.g. "@scope/pkg"); skip it
	// when looking for the version separator so "npm:@scope/pkg" without a
	// version isn't mistaken for name="" version="scope/pkg".
	searchFrom := 0
	if strings.HasPrefix(rest, "@") {
		searchFrom = 1
	}
	at := strings.LastIndexByte(rest[searchFrom:], '@')
	if at < 0 {
		return parsedSpec{Registry: registry, Name: rest}, nil
	}
	at += searchFrom
	name, version := rest[:at], rest[at+1:]
	if name == "" || version == "" {
		return parsedSpec{}, fmt.Errorf("spec %q: malformed name/version", raw)
	}
	return parsedSpec{Registry: registry, Name: name, Version: version}, nil
}

func (s parsedSpec) requireVersion(raw string) error {
	if s.Version == "" {
		return fmt.Errorf("spec %q must include @version", raw)
	}
	return nil
}
