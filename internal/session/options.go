package session

import (
	"fmt"
	"strings"
)

// OutputKind is a kind of artifact the link step can produce.
type OutputKind uint8

const (
	OutputRlib OutputKind = iota + 1
	OutputDylib
	OutputStaticlib
	OutputExecutable
)

func (k OutputKind) String() string {
	switch k {
	case OutputRlib:
		return "rlib"
	case OutputDylib:
		return "dylib"
	case OutputStaticlib:
		return "staticlib"
	case OutputExecutable:
		return "bin"
	}
	return "unknown"
}

// ParseOutputKind reads a --crate-type value.
func ParseOutputKind(s string) (OutputKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rlib", "lib":
		return OutputRlib, nil
	case "dylib":
		return OutputDylib, nil
	case "staticlib":
		return OutputStaticlib, nil
	case "bin", "exe", "executable":
		return OutputExecutable, nil
	}
	return 0, fmt.Errorf("unknown output kind %q (expected: rlib|dylib|staticlib|bin)", s)
}

// OptLevel mirrors the optimization level of the compiled crate.
type OptLevel uint8

const (
	OptNone OptLevel = iota
	OptLess
	OptDefault
	OptAggressive
)

// ParseOptLevel accepts 0..3.
func ParseOptLevel(s string) (OptLevel, error) {
	switch strings.TrimSpace(s) {
	case "", "0":
		return OptNone, nil
	case "1":
		return OptLess, nil
	case "2":
		return OptDefault, nil
	case "3":
		return OptAggressive, nil
	}
	return OptNone, fmt.Errorf("invalid opt level %q (expected: 0|1|2|3)", s)
}

// Options is the link-relevant part of the compiler configuration.
type Options struct {
	Outputs []OutputKind
	// Test builds always produce exactly one executable.
	Test bool

	LTO           bool
	PreferDynamic bool
	SaveTemps     bool
	// NoBytecode leaves the crate bitcode out of rlibs.
	NoBytecode    bool
	PrintLinkArgs bool
	NoRpath       bool
	DebugInfo     bool
	TimePasses    bool
	OptLevel      OptLevel

	// Linker overrides the platform driver.
	Linker string
	// AndroidCrossPath is the NDK root used to find the Android gcc.
	AndroidCrossPath string
	// LinkArgs are extra driver arguments from the command line.
	LinkArgs []string
	// SearchPaths are user -L directories, searched first.
	SearchPaths []string
	// LibraryPath is the RLINK_PATH list of crate directories.
	LibraryPath []string
	// Sysroot holds lib/rlink/<os>/lib.
	Sysroot string
	// RuntimeLib is the bootstrap runtime static library.
	RuntimeLib string
}

// DefaultRuntimeLib is linked into every executable, dylib and staticlib.
const DefaultRuntimeLib = "morestack"

// OutputKinds resolves the effective list: test builds yield a single
// executable, duplicates are dropped and an empty list means executable.
func (o Options) OutputKinds() []OutputKind {
	if o.Test || len(o.Outputs) == 0 {
		return []OutputKind{OutputExecutable}
	}
	seen := make(map[OutputKind]bool, len(o.Outputs))
	out := make([]OutputKind, 0, len(o.Outputs))
	for _, k := range o.Outputs {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// Runtime returns the configured bootstrap runtime name.
func (o Options) Runtime() string {
	if o.RuntimeLib == "" {
		return DefaultRuntimeLib
	}
	return o.RuntimeLib
}
