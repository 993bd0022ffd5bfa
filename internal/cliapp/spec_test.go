package cliapp

import (
	"testing"

	"github.com/sammcj/depindex/internal/depreg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpecWithVersion(t *testing.T) {
	got, err := parseSpec("npm:lodash@4.17.21")
	require.NoError(t, err)
	assert.Equal(t, depreg.Npm, got.Registry)
	assert.Equal(t, "lodash", got.Name)
	assert.Equal(t, "4.17.21", got.Version)
}

func TestParseSpecWithoutVersion(t *testing.T) {
	got, err := parseSpec("pypi:requests")
	require.NoError(t, err)
	assert.Equal(t, depreg.Pypi, got.Registry)
	assert.Equal(t, "requests", got.Name)
	assert.Empty(t, got.Version)
}

func TestParseSpecScopedNpmName(t *testing.T) {
	got, err := parseSpec("npm:@scope/pkg@1.2.3")
	require.NoError(t, err)
	assert.Equal(t, depreg.Npm, got.Registry)
	assert.Equal(t, "@scope/pkg", got.Name)
	assert.Equal(t, "1.2.3", got.Version)
}

func TestParseSpecScopedNpmNameWithoutVersion(t *testing.T) {
	got, err := parseSpec("npm:@scope/pkg")
	require.NoError(t, err)
	assert.Equal(t, depreg.Npm, got.Registry)
	assert.Equal(t, "@scope/pkg", got.Name)
	assert.Empty(t, got.Version)
}

func TestParseSpecMissingColon(t *testing.T) {
	_, err := parseSpec("lodash")
	assert.Error(t, err)
}

func TestParseSpecUnknownRegistry(t *testing.T) {
	_, err := parseSpec("npmjs:lodash")
	assert.Error(t, err)
}

func TestParseSpecMissingName(t *testing.T) {
	_, err := parseSpec("npm:")
	assert.Error(t, err)
}

func TestParseSpecMalformedVersion(t *testing.T) {
	_, err := parseSpec("npm:lodash@")
	assert.Error(t, err)
}

func TestParseSpecRequireVersion(t *testing.T) {
	withVersion := parsedSpec{Registry: depreg.Npm, Name: "lodash", Version: "4.17.21"}
	assert.NoError(t, withVersion.requireVersion("npm:lodash@4.17.21"))

	withoutVersion := parsedSpec{Registry: depreg.Npm, Name: "lodash"}
	assert.Error(t, withoutVersion.requireVersion("npm:lodash"))
}
