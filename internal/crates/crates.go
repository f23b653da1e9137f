// Package crates holds the data model shared by crate metadata, the crate
// registry and the linker: crate numbers, native library records and
// upstream dependency descriptions.
package crates

import (
	"fmt"
	"strings"
)

// Num identifies an upstream crate inside one link session. Zero is never
// a valid crate number.
type Num uint32

// NativeKind classifies a native library requirement.
type NativeKind uint8

const (
	// NativeUnknown is linked as a regular (usually dynamic) -l library.
	NativeUnknown NativeKind = iota
	// NativeStatic is bundled into the crate archive and never propagated.
	NativeStatic
	// NativeFramework is a macOS framework.
	NativeFramework
)

// String is the spelling used in manifests.
func (k NativeKind) String() string {
	switch k {
	case NativeStatic:
		return "static"
	case NativeFramework:
		return "framework"
	default:
		return "dylib"
	}
}

// Describe is the spelling used in diagnostics.
func (k NativeKind) Describe() string {
	switch k {
	case NativeStatic:
		return "static library"
	case NativeFramework:
		return "framework"
	default:
		return "library"
	}
}

// ParseNativeKind reads a manifest kind. Empty means NativeUnknown.
func ParseNativeKind(s string) (NativeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dylib", "unknown":
		return NativeUnknown, nil
	case "static":
		return NativeStatic, nil
	case "framework":
		return NativeFramework, nil
	}
	return NativeUnknown, fmt.Errorf("unknown native library kind %q (expected: static|dylib|framework)", s)
}

// NativeLibrary is a requirement on a library outside the crate graph.
type NativeLibrary struct {
	Kind NativeKind `msgpack:"kind"`
	Name string     `msgpack:"name"`
}

// Crate describes one upstream crate. Rlib and Dylib are empty when no file
// of that form was found.
type Crate struct {
	Num     Num
	Name    string
	Hash    string
	Rlib    string
	Dylib   string
	Natives []NativeLibrary
	Deps    []Num
}

// Path returns the file for the requested form.
func (c Crate) Path(dynamic bool) string {
	if dynamic {
		return c.Dylib
	}
	return c.Rlib
}
