package goproxy

import "testing"

func TestEscapeModulePath(t *testing.T) {
	cases := map[string]string{
		"BurntSushi/toml":    "!burnt!sushi/toml",
		"github.com/foo/bar": "github.com/foo/bar",
		"rsc.io/quote":        "rsc.io/quote",
	}
	for in, want := range cases {
		if got := EscapeModulePath(in); got != want {
			t.Errorf("EscapeModulePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeVersion(t *testing.T) {
	if got := NormalizeVersion("0.3.1"); got != "v0.3.1" {
		t.Errorf("NormalizeVersion(%q) = %q", "0.3.1", got)
	}
	if got := NormalizeVersion("v1.2.3"); got != "v1.2.3" {
		t.Errorf("NormalizeVersion(%q) = %q", "v1.2.3", got)
	}
}
