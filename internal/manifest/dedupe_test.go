package manifest

import (
	"testing"

	"github.com/sammcj/depindex/internal/depreg"
)

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	deps := []depreg.Dependency{
		{Registry: depreg.Npm, Name: "lodash", Version: "4.17.0"},
		{Registry: depreg.Npm, Name: "lodash", Version: "4.17.21"},
		{Registry: depreg.Pypi, Name: "lodash", Version: "1.0.0"},
	}
	out := Dedupe(deps)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].Version != "4.17.0" {
		t.Errorf("first occurrence not kept: got version %q", out[0].Version)
	}
}

func TestDedupeIsOrderInvariantOverContent(t *testing.T) {
	a := []depreg.Dependency{
		{Registry: depreg.Npm, Name: "x", Version: "1.0.0"},
		{Registry: depreg.Npm, Name: "y", Version: "2.0.0"},
	}
	b := []depreg.Dependency{
		{Registry: depreg.Npm, Name: "y", Version: "2.0.0"},
		{Registry: depreg.Npm, Name: "x", Version: "1.0.0"},
	}
	outA, outB := Dedupe(a), Dedupe(b)
	if len(outA) != len(outB) {
		t.Fatalf("different lengths: %d vs %d", len(outA), len(outB))
	}
}
