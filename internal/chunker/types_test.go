package chunker

import "testing"

func TestDetectLanguage(t *testing.T) {
	cases := map[string]Language{
		"foo.ts":       LanguageTypeScript,
		"foo.tsx":      LanguageTypeScript,
		"foo.js":       LanguageJavaScript,
		"foo.py":       LanguagePython,
		"foo.rs":       LanguageRust,
		"foo.go":       LanguageGo,
		"foo.java":     LanguageJava,
		"README.md":    LanguageMarkdown,
		"README.rst":   "",
		"foo.unknown":  "",
	}
	for path, want := range cases {
		got, ok := DetectLanguage(path)
		if want == "" {
			if ok {
				t.Errorf("DetectLanguage(%q) = %q, want unsupported", path, got)
			}
			continue
		}
		if !ok || got != want {
			t.Errorf("DetectLanguage(%q) = (%q, %v), want %q", path, got, ok, want)
		}
	}
}
