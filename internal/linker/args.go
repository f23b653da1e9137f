package linker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"rlink/internal/archive"
	"rlink/internal/crates"
	"rlink/internal/diag"
	"rlink/internal/registry"
	"rlink/internal/session"
)

// Args assembles the driver arguments. The order is significant for
// static linkers and is always:
//
//	-L<target lib dir>, -o out, obj, [metadata object], platform flags,
//	local -L paths, local native libs, upstream crates, upstream native
//	libs, [dylib flags], extra platform -L paths, -l<runtime>, rpath
//	flags, command line link args, crate attribute link args.
//
// Resolution failures are reported to the session and leave the argument
// list incomplete; callers must check AbortIfErrors before using it.
func (d *Driver) Args(ctx context.Context, dylib bool, tmpdir, obj, out string) ([]string, error) {
	opts := d.sess.Opts
	plat := d.sess.Target

	args := []string{"-L" + d.sess.TargetLibPath(), "-o", out, obj}
	if dylib {
		args = append(args, MetadataObjectPath(obj))
	}

	args = append(args, plat.LinkerFlags...)
	if opts.OptLevel >= session.OptDefault {
		args = append(args, plat.OptimizedLinkerFlags...)
	}

	args = append(args, d.localLibraryArgs()...)

	upstream, libDirs, err := d.upstreamCrateArgs(ctx, dylib, tmpdir)
	if err != nil {
		return nil, err
	}
	args = append(args, upstream...)

	natives, err := d.upstreamNativeArgs()
	if err != nil {
		return nil, err
	}
	args = append(args, natives...)

	if dylib {
		args = append(args, plat.DylibFlags(out)...)
	}
	for _, dir := range plat.ExtraLibPaths {
		args = append(args, "-L"+dir)
	}

	args = append(args, "-l"+opts.Runtime())
	args = append(args, d.rpathArgs(out, libDirs)...)

	args = append(args, opts.LinkArgs...)
	args = append(args, d.store.UsedLinkArgs()...)
	return args, nil
}

// localLibraryArgs: user search paths, the library path, then the local
// crate's native libraries.
func (d *Driver) localLibraryArgs() []string {
	var args []string
	for _, dir := range d.sess.Opts.SearchPaths {
		args = append(args, "-L"+dir)
	}
	for _, dir := range d.sess.Opts.LibraryPath {
		args = append(args, "-L"+dir)
	}
	for _, lib := range d.store.UsedLibraries() {
		switch lib.Kind {
		case crates.NativeFramework:
			args = append(args, "-framework", lib.Name)
		default:
			args = append(args, "-l"+lib.Name)
		}
	}
	return args
}

// upstreamCrateArgs links upstream crates all-static when possible and
// all-dynamic otherwise. Mixing is never attempted. It also returns the
// directories of dynamically linked crates for rpath.
func (d *Driver) upstreamCrateArgs(ctx context.Context, dylib bool, tmpdir string) ([]string, []string, error) {
	opts := d.sess.Opts

	if !dylib && !opts.PreferDynamic {
		used := d.store.UsedCrates(registry.RequireStatic)
		if allResolved(used) {
			args, err := d.staticCrateArgs(ctx, used, tmpdir)
			return args, nil, err
		}
	}

	used := d.store.UsedCrates(registry.RequireDynamic)
	if opts.LTO {
		return nil, nil, d.sess.Fatalf(diag.ResLTODynamic,
			"cannot use LTO when upstream crates are linked dynamically (%s)", crateNames(used))
	}

	var args, dirs []string
	for _, u := range used {
		if u.Path == "" {
			d.sess.Err(diag.ResDylibNotFound, "could not find dynamic library for: `%s`", u.Name)
			return args, dirs, nil
		}
		dir := filepath.Dir(u.Path)
		if dir != "" && dir != "." {
			args = append(args, "-L"+dir)
			dirs = append(dirs, dir)
		}
		base := filepath.Base(u.Path)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		args = append(args, "-l"+d.sess.Target.LinkName(stem))
	}
	return args, dirs, nil
}

func (d *Driver) staticCrateArgs(ctx context.Context, used []registry.UsedCrate, tmpdir string) ([]string, error) {
	args := make([]string, 0, len(used))
	for _, u := range used {
		if !d.sess.Opts.LTO {
			args = append(args, u.Path)
			continue
		}
		// Под LTO объектный файл крейта приходит из биткода, поэтому
		// линкуем копию rlib без него.
		dst := filepath.Join(tmpdir, filepath.Base(u.Path))
		keep := false
		err := d.sess.Time("altering "+filepath.Base(u.Path), func() error {
			var err error
			keep, err = d.stripCrateObject(ctx, u, dst)
			return err
		})
		if err != nil {
			return nil, err
		}
		if keep {
			args = append(args, dst)
		}
	}
	return args, nil
}

// stripCrateObject copies the rlib to dst without "<crate>.o" and reports
// whether any object member is left.
func (d *Driver) stripCrateObject(ctx context.Context, u registry.UsedCrate, dst string) (bool, error) {
	if err := copyFile(u.Path, dst); err != nil {
		return false, d.sess.Fatalf(diag.ArcWriteFailed, "failed to copy %s to %s: %v", u.Path, dst, err)
	}
	a, err := archive.Open(d.sess, dst)
	if err != nil {
		return false, err
	}
	defer a.Close()

	a.RemoveFile(u.Name + ".o")
	if !a.HasObjects() {
		return false, nil
	}
	if err := a.Finish(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// upstreamNativeArgs adds the native libraries of every upstream crate.
// Static natives are bundled into rlibs and must never get here.
func (d *Driver) upstreamNativeArgs() ([]string, error) {
	var args []string
	for _, num := range d.store.Order() {
		for _, lib := range d.store.NativeLibraries(num) {
			switch lib.Kind {
			case crates.NativeFramework:
				args = append(args, "-framework", lib.Name)
			case crates.NativeStatic:
				return nil, d.sess.Bug("statics shouldn't be propagated")
			default:
				args = append(args, "-l"+lib.Name)
			}
		}
	}
	return args, nil
}

func allResolved(used []registry.UsedCrate) bool {
	for _, u := range used {
		if u.Path == "" {
			return false
		}
	}
	return true
}

func crateNames(used []registry.UsedCrate) string {
	names := make([]string, len(used))
	for i, u := range used {
		names[i] = u.Name
	}
	return strings.Join(names, ", ")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 -- upstream crate path
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst) // #nosec G304 -- temp dir path
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy: %w", err)
	}
	return out.Close()
}
