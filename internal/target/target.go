// Package target describes the per-OS linking conventions: library file
// naming, the default linker driver and the extra flags each system
// linker expects.
package target

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// OS is a supported target operating system.
type OS uint8

const (
	Linux OS = iota + 1
	MacOS
	Windows
	FreeBSD
	Android
)

func (o OS) String() string {
	switch o {
	case Linux:
		return "linux"
	case MacOS:
		return "macos"
	case Windows:
		return "win32"
	case FreeBSD:
		return "freebsd"
	case Android:
		return "android"
	}
	return "unknown"
}

// ParseOS accepts both the canonical names and common GOOS spellings.
func ParseOS(s string) (OS, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linux":
		return Linux, nil
	case "macos", "darwin", "osx":
		return MacOS, nil
	case "win32", "windows":
		return Windows, nil
	case "freebsd":
		return FreeBSD, nil
	case "android":
		return Android, nil
	}
	return 0, fmt.Errorf("unknown target os %q (expected: linux|macos|win32|freebsd|android)", s)
}

// HostOS maps runtime.GOOS onto OS, defaulting to Linux.
func HostOS() OS {
	if o, err := ParseOS(runtime.GOOS); err == nil {
		return o
	}
	return Linux
}

// ErrNoCrossPath is returned for Android when no NDK path was configured.
var ErrNoCrossPath = errors.New("need Android NDK path for linking (--android-cross-path)")

// Platform collects the conventions of one OS.
type Platform struct {
	OS OS

	DylibPrefix  string
	DylibSuffix  string
	StaticPrefix string
	StaticSuffix string

	// DefaultDriver is the compiler driver used to link.
	DefaultDriver string
	// CCArgs are prepended to every link command line.
	CCArgs []string
	// LinkerFlags go right after the object files (as-needed, etc.).
	LinkerFlags []string
	// OptimizedLinkerFlags are added when optimizing.
	OptimizedLinkerFlags []string
	// ExtraLibPaths are appended after dylib flags.
	ExtraLibPaths []string
	// RpathOrigin is the loader-relative anchor; empty disables rpath.
	RpathOrigin string
	// KeepLibPrefix keeps the "lib" prefix when turning a file name into
	// a -l flag.
	KeepLibPrefix bool
	// DebugPostProcessor is run on the output when debug info is on.
	DebugPostProcessor string
	// Ranlib builds the symbol index of static archives.
	Ranlib string
}

var platforms = map[OS]Platform{
	Linux: {
		OS:                   Linux,
		DylibPrefix:          "lib",
		DylibSuffix:          ".so",
		StaticPrefix:         "lib",
		StaticSuffix:         ".a",
		DefaultDriver:        "cc",
		LinkerFlags:          []string{"-Wl,--as-needed"},
		OptimizedLinkerFlags: []string{"-Wl,-O1"},
		RpathOrigin:          "$ORIGIN",
		Ranlib:               "ranlib",
	},
	MacOS: {
		OS:                 MacOS,
		DylibPrefix:        "lib",
		DylibSuffix:        ".dylib",
		StaticPrefix:       "lib",
		StaticSuffix:       ".a",
		DefaultDriver:      "cc",
		RpathOrigin:        "@loader_path",
		DebugPostProcessor: "dsymutil",
		Ranlib:             "ranlib",
	},
	Windows: {
		OS:            Windows,
		DylibSuffix:   ".dll",
		StaticPrefix:  "lib",
		StaticSuffix:  ".a",
		DefaultDriver: "g++",
		KeepLibPrefix: true,
		Ranlib:        "ranlib",
	},
	FreeBSD: {
		OS:            FreeBSD,
		DylibPrefix:   "lib",
		DylibSuffix:   ".so",
		StaticPrefix:  "lib",
		StaticSuffix:  ".a",
		DefaultDriver: "cc",
		ExtraLibPaths: []string{"/usr/local/lib", "/usr/local/lib/gcc46", "/usr/local/lib/gcc44"},
		RpathOrigin:   "$ORIGIN",
		Ranlib:        "ranlib",
	},
	Android: {
		OS:           Android,
		DylibPrefix:  "lib",
		DylibSuffix:  ".so",
		StaticPrefix: "lib",
		StaticSuffix: ".a",
		RpathOrigin:  "$ORIGIN",
		Ranlib:       "ranlib",
	},
}

// Lookup returns the platform description for os.
func Lookup(o OS) (Platform, error) {
	p, ok := platforms[o]
	if !ok {
		return Platform{}, fmt.Errorf("unsupported target os %d", o)
	}
	return p, nil
}

// DylibFilename wraps a library stem with the dynamic library affixes.
func (p Platform) DylibFilename(stem string) string {
	return p.DylibPrefix + stem + p.DylibSuffix
}

// StaticFilename wraps a library stem with the static archive affixes.
func (p Platform) StaticFilename(stem string) string {
	return p.StaticPrefix + stem + p.StaticSuffix
}

// Driver picks the linker driver: an explicit override first, then the
// Android NDK gcc, then the platform default.
func (p Platform) Driver(override, androidCrossPath string) (string, error) {
	if override != "" {
		return override, nil
	}
	if p.OS == Android {
		if androidCrossPath == "" {
			return "", ErrNoCrossPath
		}
		return filepath.Join(androidCrossPath, "bin", "arm-linux-androideabi-gcc"), nil
	}
	return p.DefaultDriver, nil
}

// LinkName turns a library file stem into the name passed to -l.
func (p Platform) LinkName(stem string) string {
	if p.KeepLibPrefix {
		return stem
	}
	return strings.TrimPrefix(stem, "lib")
}

// DylibFlags are the flags that make the driver produce a shared library.
func (p Platform) DylibFlags(outFile string) []string {
	if p.OS == MacOS {
		return []string{
			"-dynamiclib",
			"-Wl,-dylib",
			"-Wl,-install_name,@rpath/" + filepath.Base(outFile),
		}
	}
	return []string{"-shared"}
}

// TargetLibDir is the per-OS library directory under a sysroot.
func TargetLibDir(sysroot string, o OS) string {
	return filepath.Join(sysroot, "lib", "rlink", o.String(), "lib")
}

// Exists reports whether a path is present on disk.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
