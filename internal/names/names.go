package names

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Canonical returns the identity form of a player name: trimmed and lower-cased.
// Canonical names are what gets stored; Display is applied only when rendering.
func Canonical(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Display capitalizes the first letter of name for presentation.
func Display(name string) string {
	s := strings.TrimSpace(name)
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Same reports whether two names refer to the same player.
func Same(a, b string) bool {
	return Canonical(a) == Canonical(b)
}
