package mangle

import (
	"fmt"
	"slices"

	"rlink/internal/linkmeta"
)

// TypeID identifies a type in the compiler's type table.
type TypeID uint32

// TypeEncoder is the view of the type system the mangler needs.
type TypeEncoder interface {
	// EncodedType returns the stable encoding that feeds the symbol hash.
	EncodedType(t TypeID) string
	// TypeString is the full display form of the type.
	TypeString(t TypeID) string
	// ShortTypeString is an abbreviated display form.
	ShortTypeString(t TypeID) string
}

// Context owns per-session naming state: the type hash cache and the
// counter behind generated names. It is not safe for concurrent use.
type Context struct {
	meta   linkmeta.LinkMeta
	types  TypeEncoder
	hashes map[TypeID]string
	seq    uint64
}

// NewContext creates a naming context for the crate described by meta.
func NewContext(meta linkmeta.LinkMeta, types TypeEncoder) *Context {
	return &Context{
		meta:   meta,
		types:  types,
		hashes: make(map[TypeID]string),
	}
}

// Meta returns the link meta this context hashes against.
func (c *Context) Meta() linkmeta.LinkMeta { return c.meta }

// SymbolHash returns the memoized symbol hash of t. Each type is encoded
// and hashed at most once per context.
func (c *Context) SymbolHash(t TypeID) string {
	if h, ok := c.hashes[t]; ok {
		return h
	}
	h := c.meta.SymbolHash(c.types.EncodedType(t))
	c.hashes[t] = h
	return h
}

// CachedTypes reports how many type hashes are memoized.
func (c *Context) CachedTypes() int { return len(c.hashes) }

// Gensym returns a fresh name derived from hint. Names produced by one
// context never repeat.
func (c *Context) Gensym(hint string) Name {
	c.seq++
	return Name(fmt.Sprintf("%s:%d", hint, c.seq))
}

// MangleExported names a public item of type t.
func (c *Context) MangleExported(path Path, t TypeID) string {
	return ExportedName(path, c.SymbolHash(t), c.meta.PkgID.VersionOrDefault())
}

// InternalByTypeOnly names an item that is identified by its type alone,
// such as a glue function: path [name, short type string] plus the type hash.
func (c *Context) InternalByTypeOnly(t TypeID, name string) string {
	path := Path{Name(name), Name(c.types.ShortTypeString(t))}
	return Mangle(path, c.SymbolHash(t), "")
}

// InternalByTypeAndSeq is like InternalByTypeOnly but adds a generated
// segment, so repeated calls with the same arguments yield distinct names.
func (c *Context) InternalByTypeAndSeq(t TypeID, name string) string {
	path := Path{Name(c.types.TypeString(t)), c.Gensym(name)}
	return Mangle(path, c.SymbolHash(t), "")
}

// InternalByPathAndSeq appends a generated segment to path. No hash.
func (c *Context) InternalByPathAndSeq(path Path, flav string) string {
	p := append(slices.Clone(path), c.Gensym(flav))
	return Mangle(p, "", "")
}

// InternalByPath mangles path as is, without hash or version.
func (c *Context) InternalByPath(path Path) string {
	return Mangle(path, "", "")
}
