package registry

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rlink/internal/archive"
	"rlink/internal/crates"
	"rlink/internal/linkmeta"
	"rlink/internal/metadata"
	"rlink/internal/pkgid"
	"rlink/internal/target"
)

func TestStoreLinkOrder(t *testing.T) {
	// a -> b -> c, a -> c
	s, err := New(nil, nil, []crates.Crate{
		{Name: "c"},
		{Name: "a", Deps: []crates.Num{3, 1}},
		{Name: "b", Deps: []crates.Num{1}},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var names []string
	for _, u := range s.UsedCrates(RequireStatic) {
		names = append(names, u.Name)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, names); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
}

func TestStoreRejectsCycles(t *testing.T) {
	_, err := New(nil, nil, []crates.Crate{
		{Name: "a", Deps: []crates.Num{2}},
		{Name: "b", Deps: []crates.Num{1}},
	})
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("New error = %v, want ErrCycle", err)
	}
	if _, err := New(nil, nil, []crates.Crate{{Name: "a", Deps: []crates.Num{7}}}); err == nil {
		t.Fatalf("dangling dependency accepted")
	}
}

func TestUsedCratesPreference(t *testing.T) {
	s, err := New(nil, nil, []crates.Crate{{Name: "a", Rlib: "/x/liba.rlib"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.UsedCrates(RequireStatic)[0].Path; got != "/x/liba.rlib" {
		t.Fatalf("static path = %q", got)
	}
	if got := s.UsedCrates(RequireDynamic)[0].Path; got != "" {
		t.Fatalf("dynamic path = %q, want empty", got)
	}
}

func TestTree(t *testing.T) {
	s, err := New([]crates.NativeLibrary{{Name: "m"}}, nil, []crates.Crate{
		{Name: "a", Rlib: "liba.rlib", Deps: []crates.Num{2}},
		{Name: "b", Natives: []crates.NativeLibrary{{Name: "z"}}},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out := s.Tree("demo")
	for _, want := range []string{"demo", "native m (dylib)", "a [rlib]", "b [missing]", "native z (dylib)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("tree missing %q:\n%s", want, out)
		}
	}
}

func writeRlib(t *testing.T, path, name string, natives []crates.NativeLibrary, deps []string) {
	t.Helper()
	id, _ := pkgid.Parse(name)
	blob, err := metadata.Encode(metadata.FromLinkMeta(linkmeta.Build(id), natives, deps))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var buf bytes.Buffer
	if err := archive.WriteMembers(&buf, []archive.Member{
		{Name: name + ".o", Data: []byte("obj")},
		{Name: archive.MetadataFilename, Data: blob},
	}, archive.FlavorGNU); err != nil {
		t.Fatalf("WriteMembers: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoaderReadsMetadata(t *testing.T) {
	dir := t.TempDir()
	writeRlib(t, filepath.Join(dir, "libb-0123abcd-0.0.rlib"), "b",
		[]crates.NativeLibrary{{Kind: crates.NativeUnknown, Name: "z"}}, []string{"c"})
	writeRlib(t, filepath.Join(dir, "libc-99999999-0.0.rlib"), "c", nil, nil)
	plat, _ := target.Lookup(target.Linux)

	l := Loader{Platform: plat, LibraryPath: []string{dir}}
	got, err := l.Load(context.Background(), []Spec{{Name: "b"}, {Name: "c"}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got[0].Rlib != filepath.Join(dir, "libb-0123abcd-0.0.rlib") || got[0].Dylib != "" {
		t.Fatalf("b files = %q / %q", got[0].Rlib, got[0].Dylib)
	}
	if diff := cmp.Diff([]crates.Num{2}, got[0].Deps); diff != "" {
		t.Fatalf("b deps (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]crates.NativeLibrary{{Kind: crates.NativeUnknown, Name: "z"}}, got[0].Natives); diff != "" {
		t.Fatalf("b natives (-want +got):\n%s", diff)
	}
	if got[0].Hash == "" {
		t.Fatalf("hash not read from metadata")
	}
}

func TestLoaderErrors(t *testing.T) {
	plat, _ := target.Lookup(target.Linux)
	l := Loader{Platform: plat}
	cases := [][]Spec{
		{{Name: "a"}, {Name: "a"}},
		{{Name: "a", Deps: []string{"ghost"}}},
		{{Name: "a", Natives: []crates.NativeLibrary{{Kind: crates.NativeStatic, Name: "s"}}}},
		{{Name: ""}},
	}
	for i, specs := range cases {
		if _, err := l.Load(context.Background(), specs); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestLoaderMissingFileIsAbsent(t *testing.T) {
	plat, _ := target.Lookup(target.Linux)
	l := Loader{Platform: plat}
	got, err := l.Load(context.Background(), []Spec{{Name: "a", Rlib: filepath.Join(t.TempDir(), "nope.rlib"), Deps: []string{}}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got[0].Rlib != "" {
		t.Fatalf("missing rlib reported as %q", got[0].Rlib)
	}
}
