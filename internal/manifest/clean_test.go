package manifest

import "testing"

func TestClean(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"^1.2.3", "1.2.3"},
		{"~1.2.3", "1.2.3"},
		{"=1.2.3", "1.2.3"},
		{">1.2.3", "1.2.3"},
		{"v1.2.3", "1.2.3"},
		{"1.2.3", "1.2.3"},
		{"1.2.x", "1.2.x"},
		{"1.2 || 2.0", ""},
		{"*", ""},
		{"1.x, 2.x", ""},
		{"git+https://github.com/foo/bar.git", ""},
		{"file:../local", ""},
		{"github:user/repo", ""},
		{"", ""},
		{"   1.2.3  ", "1.2.3"},
	}
	for _, c := range cases {
		if got := clean(c.in); got != c.want {
			t.Errorf("clean(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
