package manifest

import "strings"

// clean strips a single leading range operator from a manifest version
// specifier and rejects anything still ambiguous (spec §4.1): residue
// containing spaces, commas, "||", "*", or a URL/git/file prefix yields "".
func clean(spec string) string {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return ""
	}

	for _, prefix := range []string{"git+", "git:", "file:", "http://", "https://", "github:"} {
		if strings.HasPrefix(spec, prefix) || strings.Contains(spec, prefix) {
			return ""
		}
	}

	trimmed := spec
	for _, op := range []string{"^", "~", "=", ">", "<", "v"} {
		if strings.HasPrefix(trimmed, op) {
			trimmed = strings.TrimPrefix(trimmed, op)
			break
		}
	}
	trimmed = strings.TrimSpace(trimmed)

	if trimmed == "" {
		return ""
	}
	if strings.ContainsAny(trimmed, " ,*") || strings.Contains(trimmed, "||") {
		return ""
	}
	return trimmed
}
