package chunker

import (
	"strings"
	"unicode"
)

// goVisibility derives Go visibility from the exported-capitalization rule
// (spec §4.3): uppercase-leading names are Public, otherwise Internal.
func goVisibility(name string) Visibility {
	r, _ := firstRune(name)
	if r != 0 && unicode.IsUpper(r) {
		return VisibilityPublic
	}
	return VisibilityInternal
}

// pythonVisibility derives Python visibility: dunder names and otherwise
// unprefixed names are Public; any other leading underscore is Private.
func pythonVisibility(name string) Visibility {
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") && len(name) > 4 {
		return VisibilityPublic
	}
	if strings.HasPrefix(name, "_") {
		return VisibilityPrivate
	}
	return VisibilityPublic
}

// rustVisibility derives Rust visibility from the textual modifier
// ("pub", "pub(crate)", "pub(super)", "pub(in ...)", or "" for bare).
func rustVisibility(modifier string) Visibility {
	switch {
	case modifier == "pub":
		return VisibilityPublic
	case strings.HasPrefix(modifier, "pub(super)") || strings.HasPrefix(modifier, "pub(in "):
		return VisibilityProtected
	case modifier == "pub(crate)":
		return VisibilityInternal
	default:
		return VisibilityPrivate
	}
}

// javaVisibility derives Java visibility from a declaration's modifier list.
func javaVisibility(modifiers []string) Visibility {
	for _, m := range modifiers {
		switch m {
		case "public":
			return VisibilityPublic
		case "protected":
			return VisibilityProtected
		case "private":
			return VisibilityPrivate
		}
	}
	return VisibilityInternal
}

// tsVisibility derives TypeScript/JavaScript visibility: "#name" and
// "_name" (but not "__name") are Private regardless of export status;
// otherwise exported declarations are Public and unexported ones Internal.
func tsVisibility(name string, exported bool) Visibility {
	if strings.HasPrefix(name, "#") {
		return VisibilityPrivate
	}
	if strings.HasPrefix(name, "_") && !strings.HasPrefix(name, "__") {
		return VisibilityPrivate
	}
	if exported {
		return VisibilityPublic
	}
	return VisibilityInternal
}

func firstRune(s string) (rune, int) {
	for _, r := range s {
		return r, 1
	}
	return 0, 0
}
