package mangle

import "strings"

// Segment is one component of an item path. The set of kinds is closed:
// Mod, Name and Pretty.
type Segment interface {
	text() string
	sealed()
}

// Mod is a module path component.
type Mod string

// Name is a plain item name.
type Name string

// Pretty is a human readable name that carries a disambiguator. Two items
// with the same pretty name but different disambiguators mangle differently.
type Pretty struct {
	Name          string
	Disambiguator uint64
}

func (m Mod) text() string    { return string(m) }
func (n Name) text() string   { return string(n) }
func (p Pretty) text() string { return p.Name }

func (Mod) sealed()    {}
func (Name) sealed()   {}
func (Pretty) sealed() {}

// Path is an ordered item path, outermost segment first.
type Path []Segment

// PathOf builds a path of plain names.
func PathOf(names ...string) Path {
	out := make(Path, 0, len(names))
	for _, n := range names {
		out = append(out, Name(n))
	}
	return out
}

// ParsePath splits a `a::b::c` string. The leading components become Mod
// segments and the last one a Name.
func ParsePath(s string) Path {
	parts := strings.Split(s, "::")
	out := make(Path, 0, len(parts))
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == len(parts)-1 {
			out = append(out, Name(p))
		} else {
			out = append(out, Mod(p))
		}
	}
	return out
}

// String renders the path for diagnostics.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = seg.text()
	}
	return strings.Join(parts, "::")
}
