package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rlink/internal/crates"
	"rlink/internal/registry"
	"rlink/internal/session"
	"rlink/internal/target"
)

func writeManifest(t *testing.T, dir, data string) string {
	t.Helper()
	path := filepath.Join(dir, manifestName)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	root := t.TempDir()
	path := writeManifest(t, root, `# test manifest
[crate]
pkgid = "github.com/acme/demo#0.3"
object = "build/demo.o"
output = "build/demo"
outputs = ["rlib", "bin"]
link_args = ["-Wl,-z,now"]

[target]
os = "macos"
sysroot = "/opt/rlink"
linker = "clang"

[options]
lto = true
opt_level = "2"
link_args = "-Wl,--gc-sections '-Wl,-rpath,/opt/my libs'"
search_paths = ["native", "/usr/local/lib"]

[[native]]
name = "m"

[[native]]
name = "Cocoa"
kind = "framework"

[[dependency]]
name = "a"
rlib = "deps/liba.rlib"
deps = ["b"]

[[dependency]]
name = "b"
dylib = "/abs/libb.dylib"
native = [{ name = "z" }]
`)

	m, err := loadManifest(path)
	if err != nil {
		t.Fatalf("loadManifest: %v", err)
	}
	if m.Root != root {
		t.Fatalf("Root = %q, want %q", m.Root, root)
	}

	opts, err := m.sessionOptions()
	if err != nil {
		t.Fatalf("sessionOptions: %v", err)
	}
	if diff := cmp.Diff([]session.OutputKind{session.OutputRlib, session.OutputExecutable}, opts.Outputs); diff != "" {
		t.Fatalf("outputs (-want +got):\n%s", diff)
	}
	if !opts.LTO || opts.OptLevel != session.OptDefault || opts.Linker != "clang" || opts.Sysroot != "/opt/rlink" {
		t.Fatalf("options = %+v", opts)
	}
	if diff := cmp.Diff([]string{"-Wl,--gc-sections", "-Wl,-rpath,/opt/my libs"}, opts.LinkArgs); diff != "" {
		t.Fatalf("link args (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{filepath.Join(root, "native"), "/usr/local/lib"}, opts.SearchPaths); diff != "" {
		t.Fatalf("search paths (-want +got):\n%s", diff)
	}

	o, err := m.targetOS()
	if err != nil || o != target.MacOS {
		t.Fatalf("targetOS = %v, %v", o, err)
	}

	natives, err := m.localNatives()
	if err != nil {
		t.Fatalf("localNatives: %v", err)
	}
	wantNatives := []crates.NativeLibrary{
		{Kind: crates.NativeUnknown, Name: "m"},
		{Kind: crates.NativeFramework, Name: "Cocoa"},
	}
	if diff := cmp.Diff(wantNatives, natives); diff != "" {
		t.Fatalf("natives (-want +got):\n%s", diff)
	}

	specs, err := m.dependencySpecs()
	if err != nil {
		t.Fatalf("dependencySpecs: %v", err)
	}
	wantSpecs := []registry.Spec{
		{Name: "a", Rlib: filepath.Join(root, "deps", "liba.rlib"), Deps: []string{"b"}},
		{Name: "b", Dylib: "/abs/libb.dylib", Natives: []crates.NativeLibrary{{Kind: crates.NativeUnknown, Name: "z"}}},
	}
	if diff := cmp.Diff(wantSpecs, specs); diff != "" {
		t.Fatalf("specs (-want +got):\n%s", diff)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"missing crate", "[options]\nlto = true\n", "missing [crate]"},
		{"missing object", "[crate]\noutput = \"x\"\n", "missing [crate].object"},
		{"unknown key", "[crate]\nobject = \"x.o\"\noutput = \"x\"\nflavour = \"gnu\"\n", "unknown keys: crate.flavour"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tt.data)
			_, err := loadManifest(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("loadManifest error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestBadNativeKind(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `[crate]
object = "x.o"
output = "x"

[[native]]
name = "q"
kind = "weird"
`)
	m, err := loadManifest(path)
	if err != nil {
		t.Fatalf("loadManifest: %v", err)
	}
	if _, err := m.localNatives(); err == nil {
		t.Fatalf("localNatives accepted an unknown kind")
	}
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[crate]\nobject = \"x.o\"\noutput = \"x\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got, ok, err := findManifest(nested)
	if err != nil || !ok {
		t.Fatalf("findManifest = %q, %v, %v", got, ok, err)
	}
	if got != filepath.Join(root, manifestName) {
		t.Fatalf("findManifest = %q", got)
	}
}

func TestResolution(t *testing.T) {
	static, err := registry.New(nil, nil, []crates.Crate{{Name: "a", Rlib: "/r/liba.rlib", Dylib: "/d/liba.so"}})
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	if got := resolution(static, false); got != registry.RequireStatic {
		t.Fatalf("resolution = %s, want static", got)
	}
	if got := resolution(static, true); got != registry.RequireDynamic {
		t.Fatalf("resolution(prefer dynamic) = %s, want dynamic", got)
	}

	mixed, err := registry.New(nil, nil, []crates.Crate{
		{Name: "a", Rlib: "/r/liba.rlib"},
		{Name: "b", Dylib: "/d/libb.so"},
	})
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	if got := resolution(mixed, false); got != registry.RequireDynamic {
		t.Fatalf("resolution(mixed) = %s, want dynamic", got)
	}
}
