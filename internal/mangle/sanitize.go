package mangle

import (
	"fmt"
	"strings"
	"unicode"
)

var escapes = map[rune]string{
	'@': "$SP$",
	'*': "$PP$",
	'~': "$UP$",
	'&': "$BP$",
	'<': "$LT$",
	'>': "$GT$",
	'(': "$LP$",
	')': "$RP$",
	',': "$C$",
}

// Sanitize maps an arbitrary string onto the symbol alphabet [A-Za-z0-9_.$].
// Known punctuation gets a fixed `$XX$` escape, '-' and ':' become '.', and
// any other character is written as a `$x..`, `$u....` or `$U........` hex
// escape. A result that would not start with a letter or '_' gets a '_'
// prefix.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if esc, ok := escapes[r]; ok {
			b.WriteString(esc)
			continue
		}
		switch {
		case r == '-' || r == ':':
			b.WriteByte('.')
		case isSymbolChar(r):
			b.WriteRune(r)
		case r <= 0xff:
			fmt.Fprintf(&b, "$x%02x", r)
		case r <= 0xffff:
			fmt.Fprintf(&b, "$u%04x", r)
		default:
			fmt.Fprintf(&b, "$U%08x", r)
		}
	}

	out := b.String()
	if out != "" && out[0] != '_' && !isIdentStart(rune(out[0])) {
		out = "_" + out
	}
	return out
}

func isSymbolChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '.' || r == '$':
		return true
	}
	return false
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || unicode.Is(unicode.Nl, r)
}
