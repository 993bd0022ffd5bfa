// Package clients wires the five depreg.Client implementations behind a
// single lookup keyed by depreg.Registry, so callers (the indexer, the
// manifest-driven CLI commands) never need to know about the individual
// ecosystem packages directly.
package clients

import (
	"fmt"

	"github.com/sammcj/depindex/internal/depreg"
	"github.com/sammcj/depindex/internal/depreg/crates"
	"github.com/sammcj/depindex/internal/depreg/goproxy"
	"github.com/sammcj/depindex/internal/depreg/maven"
	"github.com/sammcj/depindex/internal/depreg/npm"
	"github.com/sammcj/depindex/internal/depreg/pypi"
	"github.com/sirupsen/logrus"
)

// Set holds one Client per registry, constructed once and reused for the
// lifetime of a process (each owns its own rate limiter).
type Set struct {
	byRegistry map[depreg.Registry]depreg.Client
}

// NewSet constructs the standard five-registry client set.
func NewSet(logger *logrus.Logger) *Set {
	return &Set{byRegistry: map[depreg.Registry]depreg.Client{
		depreg.Npm:    npm.New(logger),
		depreg.Pypi:   pypi.New(logger),
		depreg.Crates: crates.New(logger),
		depreg.Go:     goproxy.New(logger),
		depreg.Maven:  maven.New(logger),
	}}
}

// For returns the client for a registry, or an error if the registry is
// unrecognized.
func (s *Set) For(r depreg.Registry) (depreg.Client, error) {
	c, ok := s.byRegistry[r]
	if !ok {
		return nil, fmt.Errorf("unknown registry %q", r)
	}
	return c, nil
}
