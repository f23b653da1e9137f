package buildpipeline

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"rlink/internal/archive"
	"rlink/internal/crates"
	"rlink/internal/diag"
	"rlink/internal/linker"
	"rlink/internal/metadata"
	"rlink/internal/registry"
	"rlink/internal/session"
)

// linkRlib writes the crate object, bundled static natives, the metadata
// blob and the bitcode, in that order.
func linkRlib(ctx context.Context, req *LinkRequest, out string) error {
	sess := req.Session
	a, err := startArchive(sess, req, out)
	if err != nil {
		return err
	}
	defer a.Close()

	meta := metadata.FromLinkMeta(req.Meta, req.Store.UsedLibraries(), upstreamNames(req.Store))
	blob, err := metadata.Encode(meta)
	if err != nil {
		return sess.Bug("%v", err)
	}
	if err := a.AddBytes(archive.MetadataFilename, blob); err != nil {
		return err
	}

	bc := ""
	if !sess.Opts.NoBytecode {
		bc = BytecodePath(req.Object)
		data, err := os.ReadFile(bc) // #nosec G304 -- compiler output next to the object
		if err != nil {
			return sess.Fatalf(diag.ArcMemberMissing, "failed to read bytecode `%s`: %v", bc, err)
		}
		if err := a.AddBytes(req.Meta.PkgID.Name+".bc", data); err != nil {
			return err
		}
	}

	if err := a.Finish(ctx); err != nil {
		return err
	}
	if bc != "" && !sess.Opts.SaveTemps {
		if err := os.Remove(bc); err != nil && !errors.Is(err, fs.ErrNotExist) {
			sess.Warn(diag.OutCleanup, "failed to remove %s: %v", bc, err)
		}
	}
	return nil
}

// linkStaticlib bundles the crate, the runtime and every upstream rlib
// into one archive. Upstream native libraries cannot be expressed in it
// and are reported as warnings.
func linkStaticlib(ctx context.Context, req *LinkRequest, out string) error {
	sess := req.Session
	a, err := startArchive(sess, req, out)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.AddNativeLibrary(sess.Opts.Runtime()); err != nil {
		return err
	}

	for _, u := range req.Store.UsedCrates(registry.RequireStatic) {
		if u.Path == "" {
			sess.Err(diag.ResRlibNotFound, "could not find rlib for: `%s`", u.Name)
			continue
		}
		if err := a.AddRlib(u.Path, u.Name, sess.Opts.LTO); err != nil {
			return err
		}
	}

	unlinked := false
	for _, num := range req.Store.Order() {
		for _, lib := range req.Store.NativeLibraries(num) {
			sess.Warn(diag.ArcUnlinkedNative, "unlinked native %s: %s", lib.Kind.Describe(), lib.Name)
			unlinked = true
		}
	}
	if unlinked {
		sess.Note(diag.ArcInfo, "link against the native artifacts above when linking against this static library")
	}

	if err := sess.AbortIfErrors(); err != nil {
		return err
	}
	return a.Finish(ctx)
}

// startArchive creates the rlib-equivalent base: the object file, stored
// as "<crate>.o" whatever its name on disk, followed by the local crate's
// static native libraries.
func startArchive(sess *session.Session, req *LinkRequest, out string) (*archive.Archive, error) {
	a, err := archive.Create(sess, out, req.Object, req.Meta.PkgID.Name+".o")
	if err != nil {
		return nil, err
	}
	for _, lib := range req.Store.UsedLibraries() {
		if lib.Kind != crates.NativeStatic {
			continue
		}
		if err := a.AddNativeLibrary(lib.Name); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	return a, nil
}

func upstreamNames(store linker.CrateStore) []string {
	used := store.UsedCrates(registry.RequireStatic)
	if len(used) == 0 {
		return nil
	}
	names := make([]string, len(used))
	for i, u := range used {
		names[i] = u.Name
	}
	return names
}
