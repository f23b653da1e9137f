// Package archive builds and edits static archives: crate rlibs,
// staticlibs and LTO copies of upstream rlibs.
//
// Members live in a private working directory while the archive is being
// edited; Finish writes the archive to its destination and runs ranlib to
// build the symbol index.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"rlink/internal/diag"
	"rlink/internal/session"
	"rlink/internal/target"
	"rlink/internal/toolexec"
	"rlink/internal/trace"
)

// MetadataFilename is the member that carries crate metadata in an rlib.
const MetadataFilename = "crate.metadata.bin"

var ErrMemberNotFound = errors.New("archive member not found")

type entry struct {
	name string
	file string
}

// Archive is an archive under construction.
type Archive struct {
	sess    *session.Session
	dst     string
	work    string
	members []entry
	seq     int
}

// Create starts a new archive at dst whose first member is the file
// initial stored as member.
func Create(sess *session.Session, dst, initial, member string) (*Archive, error) {
	a, err := newArchive(sess, dst)
	if err != nil {
		return nil, err
	}
	if err := a.AddFileAs(initial, member); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// Open loads an existing archive for editing; Finish writes it back.
func Open(sess *session.Session, path string) (*Archive, error) {
	a, err := newArchive(sess, path)
	if err != nil {
		return nil, err
	}
	members, err := readFile(path)
	if err != nil {
		_ = a.Close()
		return nil, sess.Fatalf(diag.ArcRlibUnreadable, "failed to read archive `%s`: %v", path, err)
	}
	for _, m := range members {
		if IsSymbolTable(m.Name) {
			continue
		}
		if err := a.put(m.Name, m.Data); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	return a, nil
}

func newArchive(sess *session.Session, dst string) (*Archive, error) {
	work, err := os.MkdirTemp("", "rlink-ar-")
	if err != nil {
		return nil, sess.Fatalf(diag.TglTempDir, "failed to create archive work dir: %v", err)
	}
	return &Archive{sess: sess, dst: dst, work: work}, nil
}

// Path is where Finish writes the archive.
func (a *Archive) Path() string { return a.dst }

// Members lists member names in archive order.
func (a *Archive) Members() []string {
	out := make([]string, len(a.members))
	for i, e := range a.members {
		out[i] = e.name
	}
	return out
}

// HasObjects reports whether any object member remains.
func (a *Archive) HasObjects() bool {
	return slices.ContainsFunc(a.members, func(e entry) bool { return isObject(e.name) })
}

// AddFile adds path under its base name. A member with the same name is
// replaced in place.
func (a *Archive) AddFile(path string) error {
	return a.AddFileAs(path, filepath.Base(path))
}

// AddFileAs adds path as member name.
func (a *Archive) AddFileAs(path, name string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path is a build artifact
	if err != nil {
		return a.sess.Fatalf(diag.ArcWriteFailed, "failed to add `%s` to archive: %v", path, err)
	}
	return a.put(name, data)
}

// AddBytes adds data as member name, replacing an existing member.
func (a *Archive) AddBytes(name string, data []byte) error {
	return a.put(name, data)
}

// RemoveFile drops a member. Removing a missing member is a no-op.
func (a *Archive) RemoveFile(name string) {
	i := a.find(name)
	if i < 0 {
		return
	}
	_ = os.Remove(a.members[i].file)
	a.members = slices.Delete(a.members, i, i+1)
}

// AddNativeLibrary copies the members of lib<name>.a, found on the search
// paths or in the target lib directory, into this archive.
func (a *Archive) AddNativeLibrary(name string) error {
	path, ok := FindNativeLibrary(a.sess, name)
	if !ok {
		return a.sess.Fatalf(diag.ArcNativeNotFound,
			"could not find native static library `%s`, perhaps an -L flag is missing?", name)
	}
	return a.addArchive(path, name, nil)
}

// AddRlib copies the members of an upstream rlib. Metadata and bytecode
// are skipped, and so is the crate object when LTO will provide it.
func (a *Archive) AddRlib(rlib, crate string, lto bool) error {
	skip := func(member string) bool {
		if member == MetadataFilename || member == crate+".bc" {
			return true
		}
		return lto && member == crate+".o"
	}
	return a.addArchive(rlib, crate, skip)
}

func (a *Archive) addArchive(path, prefix string, skip func(string) bool) error {
	members, err := readFile(path)
	if err != nil {
		return a.sess.Fatalf(diag.ArcRlibUnreadable, "failed to read archive `%s`: %v", path, err)
	}
	for _, m := range members {
		if IsSymbolTable(m.Name) || (skip != nil && skip(m.Name)) {
			continue
		}
		if err := a.put(prefix+"-"+m.Name, m.Data); err != nil {
			return err
		}
	}
	return nil
}

// Finish writes the archive to its destination and indexes it.
func (a *Archive) Finish(ctx context.Context) error {
	span, ctx := trace.Start(ctx, trace.ScopeStep, "ar:"+filepath.Base(a.dst))
	defer span.WithExtra("members", fmt.Sprint(len(a.members))).End("")

	members := make([]Member, 0, len(a.members))
	for _, e := range a.members {
		data, err := os.ReadFile(e.file)
		if err != nil {
			return a.sess.Fatalf(diag.ArcWriteFailed, "failed to write archive `%s`: %v", a.dst, err)
		}
		members = append(members, Member{Name: e.name, Data: data})
	}

	flavor := FlavorGNU
	if a.sess.Target.OS == target.MacOS {
		flavor = FlavorBSD
	}
	var buf bytes.Buffer
	if err := WriteMembers(&buf, members, flavor); err != nil {
		return a.sess.Fatalf(diag.ArcWriteFailed, "failed to write archive `%s`: %v", a.dst, err)
	}
	tmp := a.dst + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil { // #nosec G306 -- archives are not secret
		return a.sess.Fatalf(diag.ArcWriteFailed, "failed to write archive `%s`: %v", a.dst, err)
	}
	if err := os.Rename(tmp, a.dst); err != nil {
		_ = os.Remove(tmp)
		return a.sess.Fatalf(diag.ArcWriteFailed, "failed to write archive `%s`: %v", a.dst, err)
	}
	return a.buildIndex(ctx)
}

func (a *Archive) buildIndex(ctx context.Context) error {
	ranlib := a.sess.Target.Ranlib
	if ranlib == "" || !a.HasObjects() {
		return nil
	}
	cmd := toolexec.Command{Name: ranlib, Args: []string{a.dst}}
	res, err := a.sess.Runner().Run(ctx, cmd)
	if err != nil {
		return a.sess.Fatalf(diag.ArcIndexFailed, "failed to run `%s`: %v", ranlib, err)
	}
	if !res.Success() {
		rb := a.sess.Report(diag.SevError, diag.ArcIndexFailed,
			fmt.Sprintf("`%s` failed: %s", cmd.String(), res.Status()))
		for _, note := range res.OutputNotes() {
			rb.WithNote(note)
		}
		rb.Emit()
		return session.ErrAborted
	}
	return nil
}

// Close discards the working directory.
func (a *Archive) Close() error {
	if a.work == "" {
		return nil
	}
	err := os.RemoveAll(a.work)
	a.work = ""
	return err
}

func (a *Archive) put(name string, data []byte) error {
	if i := a.find(name); i >= 0 {
		if err := os.WriteFile(a.members[i].file, data, 0o600); err != nil {
			return a.sess.Fatalf(diag.ArcWriteFailed, "failed to stage member `%s`: %v", name, err)
		}
		return nil
	}

	a.seq++
	file := filepath.Join(a.work, fmt.Sprintf("%05d", a.seq))
	if err := os.WriteFile(file, data, 0o600); err != nil {
		return a.sess.Fatalf(diag.ArcWriteFailed, "failed to stage member `%s`: %v", name, err)
	}
	e := entry{name: name, file: file}

	// объектные файлы всегда идут перед остальными членами
	if isObject(name) {
		if i := slices.IndexFunc(a.members, func(e entry) bool { return !isObject(e.name) }); i >= 0 {
			a.members = slices.Insert(a.members, i, e)
			return nil
		}
	}
	a.members = append(a.members, e)
	return nil
}

func (a *Archive) find(name string) int {
	return slices.IndexFunc(a.members, func(e entry) bool { return e.name == name })
}

func isObject(name string) bool {
	return strings.HasSuffix(name, ".o") || strings.HasSuffix(name, ".obj")
}

// FindNativeLibrary looks for lib<name>.a in the user search paths and
// then in the target lib directory.
func FindNativeLibrary(sess *session.Session, name string) (string, bool) {
	file := sess.Target.StaticFilename(name)
	dirs := append(slices.Clone(sess.Opts.SearchPaths), sess.TargetLibPath())
	for _, dir := range dirs {
		p := filepath.Join(dir, file)
		if target.Exists(p) {
			return p, true
		}
	}
	return "", false
}

// ReadMember returns the contents of one member of the archive at path.
func ReadMember(path, name string) ([]byte, error) {
	members, err := readFile(path)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.Name == name {
			return m.Data, nil
		}
	}
	return nil, fmt.Errorf("%s in %s: %w", name, path, ErrMemberNotFound)
}

// List returns member names of the archive at path, skipping symbol tables.
func List(path string) ([]string, error) {
	members, err := readFile(path)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(members))
	for _, m := range members {
		if !IsSymbolTable(m.Name) {
			out = append(out, m.Name)
		}
	}
	return out, nil
}

func readFile(path string) ([]Member, error) {
	f, err := os.Open(path) // #nosec G304 -- path is a build artifact
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadMembers(f)
}
