package depreg

import (
	"path"
	"strings"
)

// hasAnySuffix reports whether p ends with any of suffixes.
func hasAnySuffix(p string, suffixes ...string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(p, s) {
			return true
		}
	}
	return false
}

// containsAny reports whether p contains any of needles as a literal
// substring (for the "test[s]/" style exclusions the spec phrases loosely).
func containsAny(p string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(p, n) {
			return true
		}
	}
	return false
}

// NpmIndexable implements the npm include/exclude table from spec §4.2.
func NpmIndexable(p string) bool {
	lower := strings.ToLower(p)
	if !hasAnySuffix(lower, ".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs", ".py", ".pyi", ".rs", ".go", ".java", ".md", ".markdown") {
		return false
	}
	if hasAnySuffix(lower, ".min.js", ".min.ts", ".min.css", ".bundle.js", ".bundle.ts") {
		return false
	}
	if containsAny(lower, "node_modules/", "dist/", "build/", "__pycache__/", "test/", "tests/", "__tests__/", "spec/", "benchmark/", "benchmarks/") {
		return false
	}
	return true
}

// PypiIndexable implements the pypi include/exclude table from spec §4.2.
func PypiIndexable(p string) bool {
	lower := strings.ToLower(p)
	if !hasAnySuffix(lower, ".py", ".pyi", ".md", ".markdown", ".rst") {
		return false
	}
	base := path.Base(lower)
	if strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test.py") || base == "conftest.py" {
		return false
	}
	if containsAny(lower, "tests/", "test/", "__pycache__/") {
		return false
	}
	return true
}

// CratesIndexable implements the crates include/exclude table from spec §4.2.
func CratesIndexable(p string) bool {
	lower := strings.ToLower(p)
	if !hasAnySuffix(lower, ".rs", ".md", ".markdown") {
		return false
	}
	if containsAny(lower, "tests/", "benches/") {
		return false
	}
	if strings.Contains(path.Base(lower), "test_") {
		return false
	}
	return true
}

// GoIndexable implements the go include/exclude table from spec §4.2.
func GoIndexable(p string) bool {
	lower := strings.ToLower(p)
	if !hasAnySuffix(lower, ".go", ".md", ".markdown") {
		return false
	}
	if strings.HasSuffix(lower, "_test.go") {
		return false
	}
	if containsAny(lower, "vendor/") {
		return false
	}
	return true
}

// MavenIndexable implements the maven include/exclude table from spec §4.2.
func MavenIndexable(p string) bool {
	lower := strings.ToLower(p)
	if !hasAnySuffix(lower, ".java", ".kt", ".kts", ".md", ".markdown") {
		return false
	}
	if containsAny(lower, "/test/") {
		return false
	}
	if strings.HasSuffix(path.Base(p), "Test.java") {
		return false
	}
	return true
}

// IndexableFilterFor returns the per-registry predicate from the spec §4.2
// table.
func IndexableFilterFor(r Registry) func(string) bool {
	switch r {
	case Npm:
		return NpmIndexable
	case Pypi:
		return PypiIndexable
	case Crates:
		return CratesIndexable
	case Go:
		return GoIndexable
	case Maven:
		return MavenIndexable
	default:
		return func(string) bool { return false }
	}
}
