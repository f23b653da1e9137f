package linker

import (
	"path/filepath"
	"slices"
)

// rpathArgs builds -Wl,-rpath flags for the dynamically linked crate
// directories: loader-relative paths first, then absolute paths, then the
// installed target lib directory.
func (d *Driver) rpathArgs(out string, libDirs []string) []string {
	origin := d.sess.Target.RpathOrigin
	if d.sess.Opts.NoRpath || origin == "" {
		return nil
	}

	outDir := filepath.Dir(absPath(out))
	var rel, abs []string
	for _, dir := range libDirs {
		a := absPath(dir)
		abs = append(abs, a)
		r, err := filepath.Rel(outDir, a)
		if err != nil {
			continue
		}
		if r == "." {
			rel = append(rel, origin)
		} else {
			rel = append(rel, origin+"/"+filepath.ToSlash(r))
		}
	}

	paths := append(rel, abs...)
	paths = append(paths, absPath(d.sess.TargetLibPath()))

	var args []string
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		args = append(args, "-Wl,-rpath,"+p)
	}
	return slices.Clip(args)
}

func absPath(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return p
}
