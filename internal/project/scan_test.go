package project

import (
	"testing"

	"github.com/sammcj/depindex/internal/depreg"
	"github.com/stretchr/testify/assert"
)

func TestKeySetDedupesByRegistryAndName(t *testing.T) {
	deps := []depreg.Dependency{
		{Registry: depreg.Npm, Name: "lodash", Version: "4.17.21"},
		{Registry: depreg.Npm, Name: "lodash", Version: "4.17.20"}, // last write wins
		{Registry: depreg.Pypi, Name: "requests", Version: "2.31.0"},
	}

	got := KeySet(deps)

	assert.Len(t, got, 2)
	assert.Equal(t, "4.17.20", got[Key{Registry: depreg.Npm, Name: "lodash"}].Version)
	assert.Equal(t, "2.31.0", got[Key{Registry: depreg.Pypi, Name: "requests"}].Version)
}

func TestKeySetEmptyInput(t *testing.T) {
	got := KeySet(nil)
	assert.Empty(t, got)
}

func TestScanNoManifestsReturnsEmpty(t *testing.T) {
	dir := t.TempDir()

	deps, err := Scan(dir, nil)

	assert.NoError(t, err)
	assert.Empty(t, deps)
}
