package buildpipeline

import (
	"path/filepath"
	"strings"

	"rlink/internal/linkmeta"
	"rlink/internal/session"
	"rlink/internal/target"
)

// OutputFilename derives where an output of kind is written. Libraries
// use the "<name>-<hash8>-<version>" base in the directory of out;
// executables go exactly to out.
func OutputFilename(plat target.Platform, meta linkmeta.LinkMeta, kind session.OutputKind, out string) string {
	dir := filepath.Dir(out)
	base := meta.OutputLibFilename()
	switch kind {
	case session.OutputRlib:
		return filepath.Join(dir, "lib"+base+".rlib")
	case session.OutputDylib:
		return filepath.Join(dir, plat.DylibFilename(base))
	case session.OutputStaticlib:
		return filepath.Join(dir, "lib"+base+".a")
	}
	return out
}

// BytecodePath is where the compiler leaves the crate bitcode for obj.
func BytecodePath(obj string) string {
	return strings.TrimSuffix(obj, filepath.Ext(obj)) + ".bc"
}
