package manifest

import "testing"

func TestParsePEP508AcceptsOnlyAllowedOperators(t *testing.T) {
	cases := []struct {
		spec        string
		wantName    string
		wantVersion string
	}{
		{"requests==2.31.0", "requests", "2.31.0"},
		{"requests>=2.31.0", "requests", "2.31.0"},
		{"requests~=2.31.0", "requests", "2.31.0"},
		{"requests>2.31.0", "requests", ""},
		{"requests[security]==2.31.0", "requests", "2.31.0"},
		{"requests==2.31.0; python_version >= '3.8'", "requests", "2.31.0"},
	}
	for _, c := range cases {
		name, version, ok := parsePEP508(c.spec)
		if !ok {
			t.Errorf("parsePEP508(%q) not ok", c.spec)
			continue
		}
		if name != c.wantName || version != c.wantVersion {
			t.Errorf("parsePEP508(%q) = (%q, %q), want (%q, %q)", c.spec, name, version, c.wantName, c.wantVersion)
		}
	}
}
