package mangle

import (
	"strconv"
	"strings"
)

const (
	symbolPrefix = "_ZN"
	symbolSuffix = "E"
)

// disambiguatorAlphabet has 62 characters; each Pretty segment contributes
// two of them to the trailing disambiguator segment.
const disambiguatorAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Mangle produces `_ZN<len><seg>...E`. Empty hash or version means the
// corresponding segment is omitted.
//
// Порядок сегментов: путь, затем символы дизамбигуаторов Pretty-сегментов,
// затем hash и version.
func Mangle(path Path, hash, version string) string {
	var b strings.Builder
	b.WriteString(symbolPrefix)

	var extra strings.Builder
	for _, seg := range path {
		writeSegment(&b, seg.text())
		if p, ok := seg.(Pretty); ok {
			extra.WriteString(DisambiguatorChars(p.Disambiguator))
		}
	}
	if extra.Len() > 0 {
		writeSegment(&b, extra.String())
	}
	if hash != "" {
		writeSegment(&b, hash)
	}
	if version != "" {
		writeSegment(&b, versionSegment(version))
	}

	b.WriteString(symbolSuffix)
	return b.String()
}

// ExportedName mangles a publicly visible item with its type hash and the
// crate version.
func ExportedName(path Path, hash, version string) string {
	return Mangle(path, hash, version)
}

// DisambiguatorChars encodes the high and low 32-bit halves of d as two
// characters of the 62-character alphabet.
func DisambiguatorChars(d uint64) string {
	hi := uint32(d >> 32)
	lo := uint32(d)
	n := uint32(len(disambiguatorAlphabet))
	return string([]byte{disambiguatorAlphabet[hi%n], disambiguatorAlphabet[lo%n]})
}

func writeSegment(b *strings.Builder, s string) {
	s = Sanitize(s)
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteString(s)
}

func versionSegment(v string) string {
	for _, r := range v {
		if !isIdentStart(r) {
			return "v" + v
		}
		break
	}
	return v
}
