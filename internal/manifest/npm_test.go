package manifest

import "testing"

func TestFirstLevelNodeModule(t *testing.T) {
	cases := []struct {
		path     string
		wantName string
		wantOK   bool
	}{
		{"node_modules/lodash", "lodash", true},
		{"node_modules/@babel/core", "@babel/core", true},
		{"node_modules/lodash/node_modules/isarray", "", false},
		{"apps/web", "", false},
		{"node_modules/", "", false},
	}
	for _, c := range cases {
		name, ok := firstLevelNodeModule(c.path)
		if ok != c.wantOK || name != c.wantName {
			t.Errorf("firstLevelNodeModule(%q) = (%q, %v), want (%q, %v)", c.path, name, ok, c.wantName, c.wantOK)
		}
	}
}

func TestIsUnversionedSpec(t *testing.T) {
	cases := map[string]bool{
		"^1.2.3":                        false,
		"git+https://github.com/a/b":    true,
		"file:../local":                 true,
		"https://example.com/pkg.tgz":   true,
		"github:user/repo":              true,
	}
	for spec, want := range cases {
		if got := isUnversionedSpec(spec); got != want {
			t.Errorf("isUnversionedSpec(%q) = %v, want %v", spec, got, want)
		}
	}
}
