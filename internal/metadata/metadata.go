// Package metadata encodes the crate metadata blob stored in every rlib.
// Upstream resolution reads it back to learn a crate's identity, its
// propagated native libraries and its own dependencies.
package metadata

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"rlink/internal/archive"
	"rlink/internal/crates"
	"rlink/internal/linkmeta"
)

// Current schema version - increment when Crate format changes
const SchemaVersion uint16 = 1

var ErrSchema = errors.New("unsupported crate metadata schema")

// Crate is the link-relevant metadata of a compiled crate.
type Crate struct {
	// Schema version for safe invalidation when format changes
	Schema uint16 `msgpack:"schema"`

	Name      string `msgpack:"name"`
	PkgID     string `msgpack:"pkgid"`
	Version   string `msgpack:"version"`
	CrateHash string `msgpack:"hash"`

	// Only non-static native libraries; static ones live inside the rlib.
	NativeLibraries []crates.NativeLibrary `msgpack:"natives"`
	// Dependencies are crate names, resolved against the session registry.
	Dependencies []string `msgpack:"deps"`
}

// FromLinkMeta builds metadata for the crate being linked. Static native
// libraries are dropped: they are bundled into the rlib itself. Link
// arguments stay with the crate that declares them.
func FromLinkMeta(meta linkmeta.LinkMeta, natives []crates.NativeLibrary, deps []string) *Crate {
	c := &Crate{
		Schema:       SchemaVersion,
		Name:         meta.PkgID.Name,
		PkgID:        meta.PkgID.String(),
		Version:      meta.PkgID.VersionOrDefault(),
		CrateHash:    meta.CrateHash,
		Dependencies: deps,
	}
	for _, lib := range natives {
		if lib.Kind == crates.NativeStatic {
			continue
		}
		c.NativeLibraries = append(c.NativeLibraries, lib)
	}
	return c
}

// Encode serializes c.
func Encode(c *Crate) ([]byte, error) {
	if c == nil {
		return nil, errors.New("nil crate metadata")
	}
	if c.Schema == 0 {
		c.Schema = SchemaVersion
	}
	data, err := msgpack.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode crate metadata: %w", err)
	}
	return data, nil
}

// Decode parses a blob and checks its schema.
func Decode(data []byte) (*Crate, error) {
	var c Crate
	if err := msgpack.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode crate metadata: %w", err)
	}
	if c.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrSchema, c.Schema)
	}
	return &c, nil
}

// ReadRlib extracts and decodes the metadata member of an rlib.
func ReadRlib(path string) (*Crate, error) {
	data, err := archive.ReadMember(path, archive.MetadataFilename)
	if err != nil {
		return nil, err
	}
	c, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
