package buildpipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rlink/internal/archive"
	"rlink/internal/crates"
	"rlink/internal/diag"
	"rlink/internal/linker"
	"rlink/internal/linkmeta"
	"rlink/internal/metadata"
	"rlink/internal/pkgid"
	"rlink/internal/registry"
	"rlink/internal/session"
	"rlink/internal/target"
	"rlink/internal/testkit"
)

type env struct {
	dir    string
	obj    string
	out    string
	runner *testkit.FakeRunner
	sess   *session.Session
}

// newEnv lays out demo.o, demo.bc and a sysroot with the runtime library.
func newEnv(t *testing.T, opts session.Options) *env {
	t.Helper()
	dir := t.TempDir()
	opts.Sysroot = filepath.Join(dir, "sys")
	libdir := target.TargetLibDir(opts.Sysroot, target.Linux)
	if err := os.MkdirAll(libdir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeArchive(t, filepath.Join(libdir, "libmorestack.a"), "morestack.o")

	e := &env{dir: dir, obj: filepath.Join(dir, "demo.o"), out: filepath.Join(dir, "demo")}
	writeFile(t, e.obj, "obj")
	writeFile(t, filepath.Join(dir, "demo.bc"), "bitcode")

	plat, err := target.Lookup(target.Linux)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	e.runner = &testkit.FakeRunner{}
	e.sess = session.New(opts, plat, session.WithRunner(e.runner), session.WithStdout(&bytes.Buffer{}))
	return e
}

func (e *env) link(t *testing.T, store *registry.Store, sink ProgressSink) (LinkResult, error) {
	t.Helper()
	id, err := pkgid.Parse("demo")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return LinkOutputs(context.Background(), &LinkRequest{
		Session:  e.sess,
		Store:    store,
		Meta:     linkmeta.Build(id),
		Object:   e.obj,
		Output:   e.out,
		Progress: sink,
	})
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeArchive(t *testing.T, path string, members ...string) {
	t.Helper()
	ms := make([]archive.Member, 0, len(members))
	for _, m := range members {
		ms = append(ms, archive.Member{Name: m, Data: []byte(m)})
	}
	var buf bytes.Buffer
	if err := archive.WriteMembers(&buf, ms, archive.FlavorGNU); err != nil {
		t.Fatalf("WriteMembers: %v", err)
	}
	writeFile(t, path, buf.String())
}

func mustStore(t *testing.T, local []crates.NativeLibrary, upstream ...crates.Crate) *registry.Store {
	t.Helper()
	s, err := registry.New(local, nil, upstream)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return s
}

func messages(s *session.Session) []string {
	var out []string
	for _, d := range s.Diagnostics().Items() {
		out = append(out, d.Message)
	}
	return out
}

func TestOutputFilename(t *testing.T) {
	meta := linkmeta.LinkMeta{
		PkgID:     pkgid.PackageID{Path: "foo", Name: "foo"},
		CrateHash: "abcdef0123456789",
	}
	linux, _ := target.Lookup(target.Linux)
	mac, _ := target.Lookup(target.MacOS)
	win, _ := target.Lookup(target.Windows)

	tests := []struct {
		plat target.Platform
		kind session.OutputKind
		want string
	}{
		{linux, session.OutputRlib, "out/libfoo-abcdef01-0.0.rlib"},
		{linux, session.OutputDylib, "out/libfoo-abcdef01-0.0.so"},
		{mac, session.OutputDylib, "out/libfoo-abcdef01-0.0.dylib"},
		{win, session.OutputDylib, "out/foo-abcdef01-0.0.dll"},
		{linux, session.OutputStaticlib, "out/libfoo-abcdef01-0.0.a"},
		{linux, session.OutputExecutable, "out/main"},
	}
	for _, tt := range tests {
		got := OutputFilename(tt.plat, meta, tt.kind, "out/main")
		if got != filepath.FromSlash(tt.want) {
			t.Fatalf("OutputFilename(%s, %s) = %q, want %q", tt.plat.OS, tt.kind, got, tt.want)
		}
	}
}

func TestRlibLayout(t *testing.T) {
	e := newEnv(t, session.Options{Outputs: []session.OutputKind{session.OutputRlib}})
	natives := filepath.Join(e.dir, "natives")
	if err := os.MkdirAll(natives, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeArchive(t, filepath.Join(natives, "libbundled.a"), "bundled.o")
	e.sess.Opts.SearchPaths = []string{natives}

	store := mustStore(t, []crates.NativeLibrary{
		{Kind: crates.NativeStatic, Name: "bundled"},
		{Kind: crates.NativeUnknown, Name: "m"},
	})
	res, err := e.link(t, store, nil)
	if err != nil {
		t.Fatalf("LinkOutputs: %v\n%v", err, messages(e.sess))
	}
	rlib := res.Artifacts[0].Path
	if filepath.Dir(rlib) != e.dir || filepath.Ext(rlib) != ".rlib" {
		t.Fatalf("rlib path = %q", rlib)
	}

	members, err := archive.List(rlib)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"demo.o", "bundled-bundled.o", archive.MetadataFilename, "demo.bc"}
	if diff := cmp.Diff(want, members); diff != "" {
		t.Fatalf("members (-want +got):\n%s", diff)
	}
	if err := testkit.CheckMemberOrder(members); err != nil {
		t.Fatalf("%v", err)
	}

	meta, err := metadata.ReadRlib(rlib)
	if err != nil {
		t.Fatalf("ReadRlib: %v", err)
	}
	if meta.Name != "demo" || len(meta.NativeLibraries) != 1 || meta.NativeLibraries[0].Name != "m" {
		t.Fatalf("metadata = %+v", meta)
	}

	if len(e.runner.CallsTo("ranlib")) != 1 {
		t.Fatalf("ranlib calls = %+v", e.runner.Calls())
	}
	for _, p := range []string{e.obj, BytecodePath(e.obj)} {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("%s not cleaned up (err=%v)", p, err)
		}
	}
}

func TestRlibStoresObjectUnderCrateName(t *testing.T) {
	e := newEnv(t, session.Options{Outputs: []session.OutputKind{session.OutputRlib}, LTO: true})
	e.obj = filepath.Join(e.dir, "main.o")
	writeFile(t, e.obj, "obj")
	writeFile(t, filepath.Join(e.dir, "main.bc"), "bitcode")

	res, err := e.link(t, mustStore(t, nil), nil)
	if err != nil {
		t.Fatalf("LinkOutputs: %v\n%v", err, messages(e.sess))
	}
	rlib := res.Artifacts[0].Path
	members, err := archive.List(rlib)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if diff := cmp.Diff([]string{"demo.o", archive.MetadataFilename, "demo.bc"}, members); diff != "" {
		t.Fatalf("members (-want +got):\n%s", diff)
	}

	// a downstream LTO link drops the whole crate object
	store := mustStore(t, nil, crates.Crate{Name: "demo", Rlib: rlib})
	tmp := t.TempDir()
	args, err := linker.New(e.sess, store).Args(context.Background(), false, tmp, "app.o", "app")
	if err != nil {
		t.Fatalf("Args: %v\n%v", err, messages(e.sess))
	}
	if slices.Contains(args, rlib) || slices.Contains(args, filepath.Join(tmp, filepath.Base(rlib))) {
		t.Fatalf("LTO link still carries the crate object: %q", args)
	}
}

func TestRlibWithoutBytecodeAndSaveTemps(t *testing.T) {
	e := newEnv(t, session.Options{
		Outputs:    []session.OutputKind{session.OutputRlib},
		NoBytecode: true,
		SaveTemps:  true,
	})
	res, err := e.link(t, mustStore(t, nil), nil)
	if err != nil {
		t.Fatalf("LinkOutputs: %v", err)
	}
	members, _ := archive.List(res.Artifacts[0].Path)
	if slices.Contains(members, "demo.bc") {
		t.Fatalf("bytecode bundled with NoBytecode: %q", members)
	}
	if _, err := os.Stat(e.obj); err != nil {
		t.Fatalf("object removed despite SaveTemps: %v", err)
	}
}

func TestStaticlibMissingUpstreamRlib(t *testing.T) {
	e := newEnv(t, session.Options{Outputs: []session.OutputKind{session.OutputStaticlib}})
	rlibA := filepath.Join(e.dir, "liba.rlib")
	writeArchive(t, rlibA, "a.o")
	store := mustStore(t, nil,
		crates.Crate{Name: "a", Rlib: rlibA, Deps: []crates.Num{2}},
		crates.Crate{Name: "b"},
	)

	res, err := e.link(t, store, nil)
	if !errors.Is(err, session.ErrAborted) {
		t.Fatalf("LinkOutputs = %v, want ErrAborted", err)
	}
	if diff := cmp.Diff([]string{"could not find rlib for: `b`"}, messages(e.sess)); diff != "" {
		t.Fatalf("diagnostics (-want +got):\n%s", diff)
	}
	if calls := e.runner.Calls(); len(calls) != 0 {
		t.Fatalf("external tools invoked: %+v", calls)
	}
	if _, err := os.Stat(res.Artifacts[0].Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("staticlib written despite errors")
	}
}

func TestStaticlibBundlesUpstream(t *testing.T) {
	e := newEnv(t, session.Options{Outputs: []session.OutputKind{session.OutputStaticlib}})
	rlibA := filepath.Join(e.dir, "liba.rlib")
	writeArchive(t, rlibA, "a.o", archive.MetadataFilename, "a.bc")
	store := mustStore(t, nil, crates.Crate{
		Name: "a", Rlib: rlibA,
		Natives: []crates.NativeLibrary{{Kind: crates.NativeUnknown, Name: "ssl"}},
	})

	res, err := e.link(t, store, nil)
	if err != nil {
		t.Fatalf("LinkOutputs: %v\n%v", err, messages(e.sess))
	}
	members, err := archive.List(res.Artifacts[0].Path)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if diff := cmp.Diff([]string{"demo.o", "morestack-morestack.o", "a-a.o"}, members); diff != "" {
		t.Fatalf("members (-want +got):\n%s", diff)
	}

	var warned bool
	for _, d := range e.sess.Diagnostics().Items() {
		if d.Code == diag.ArcUnlinkedNative && d.Message == "unlinked native library: ssl" {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("no unlinked native warning: %v", messages(e.sess))
	}
}

func TestUnwritableOutputStopsBuild(t *testing.T) {
	e := newEnv(t, session.Options{})
	writeFile(t, e.out, "old")
	if err := os.Chmod(e.out, 0o444); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	_, err := e.link(t, mustStore(t, nil), nil)
	if !errors.Is(err, session.ErrAborted) {
		t.Fatalf("LinkOutputs = %v, want ErrAborted", err)
	}
	if items := e.sess.Diagnostics().Items(); len(items) != 1 || items[0].Code != diag.OutNotWritable {
		t.Fatalf("diagnostics = %+v", items)
	}
	if len(e.runner.Calls()) != 0 {
		t.Fatalf("linker invoked for read-only output")
	}
}

func TestEachOutputKindIsAttempted(t *testing.T) {
	e := newEnv(t, session.Options{
		Outputs: []session.OutputKind{session.OutputStaticlib, session.OutputExecutable},
	})
	store := mustStore(t, nil, crates.Crate{Name: "b", Dylib: filepath.Join(e.dir, "libb-00000000-0.0.so")})

	var events []Event
	res, err := e.link(t, store, SinkFunc(func(ev Event) { events = append(events, ev) }))
	if err == nil {
		t.Fatalf("LinkOutputs succeeded, want staticlib failure")
	}
	if res.Artifacts[0].Err == nil || res.Artifacts[1].Err != nil {
		t.Fatalf("artifacts = %+v", res.Artifacts)
	}
	if calls := e.runner.CallsTo("cc"); len(calls) != 1 {
		t.Fatalf("cc calls = %+v", e.runner.Calls())
	}

	last := events[len(events)-1]
	if last.Kind != session.OutputExecutable || last.Status != StatusDone || last.Stage != StageLink {
		t.Fatalf("last event = %+v", last)
	}
	var failed bool
	for _, ev := range events {
		if ev.Kind == session.OutputStaticlib && ev.Status == StatusError {
			failed = true
		}
	}
	if !failed {
		t.Fatalf("no error event for staticlib: %+v", events)
	}
	if !res.Timings.Has(StageLink) || !res.Timings.Has(StageArchive) {
		t.Fatalf("timings missing stages")
	}
}

func TestSameResolutionErrorStopsEveryOutput(t *testing.T) {
	e := newEnv(t, session.Options{
		Outputs:       []session.OutputKind{session.OutputDylib, session.OutputExecutable},
		PreferDynamic: true,
	})
	rlibB := filepath.Join(e.dir, "libb.rlib")
	writeArchive(t, rlibB, "b.o")
	store := mustStore(t, nil, crates.Crate{Name: "b", Rlib: rlibB})

	res, err := e.link(t, store, nil)
	if !errors.Is(err, session.ErrAborted) {
		t.Fatalf("LinkOutputs = %v, want ErrAborted", err)
	}
	for _, a := range res.Artifacts {
		if !errors.Is(a.Err, session.ErrAborted) {
			t.Fatalf("%s err = %v, want ErrAborted", a.Kind, a.Err)
		}
	}
	want := []string{
		"could not find dynamic library for: `b`",
		"could not find dynamic library for: `b`",
	}
	if diff := cmp.Diff(want, messages(e.sess)); diff != "" {
		t.Fatalf("diagnostics (-want +got):\n%s", diff)
	}
	if calls := e.runner.Calls(); len(calls) != 0 {
		t.Fatalf("linker invoked with unresolved crates: %+v", calls)
	}
}

func TestTestBuildProducesExecutableOnly(t *testing.T) {
	e := newEnv(t, session.Options{
		Test:    true,
		Outputs: []session.OutputKind{session.OutputRlib, session.OutputDylib},
	})
	res, err := e.link(t, mustStore(t, nil), nil)
	if err != nil {
		t.Fatalf("LinkOutputs: %v", err)
	}
	if len(res.Artifacts) != 1 || res.Artifacts[0].Kind != session.OutputExecutable || res.Artifacts[0].Path != e.out {
		t.Fatalf("artifacts = %+v", res.Artifacts)
	}
}
