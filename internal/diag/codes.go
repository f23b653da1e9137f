package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Выходные артефакты
	OutInfo           Code = 1000
	OutNotWritable    Code = 1001
	OutObjNotWritable Code = 1002
	OutBadPackageID   Code = 1003
	OutCleanup        Code = 1004

	// Архивы
	ArcInfo           Code = 2000
	ArcNativeNotFound Code = 2001
	ArcRlibUnreadable Code = 2002
	ArcWriteFailed    Code = 2003
	ArcIndexFailed    Code = 2004
	ArcUnlinkedNative Code = 2005
	ArcMemberMissing  Code = 2006

	// Разрешение зависимостей
	ResInfo            Code = 3000
	ResRlibNotFound    Code = 3001
	ResDylibNotFound   Code = 3002
	ResLTODynamic      Code = 3003
	ResDependencyCycle Code = 3004
	ResBadMetadata     Code = 3005

	// Тулчейн
	TglInfo           Code = 4000
	TglLinkerFailed   Code = 4001
	TglNoCrossPath    Code = 4002
	TglPostprocFailed Code = 4003
	TglTempDir        Code = 4004

	// Внутренние ошибки
	BugInfo      Code = 5000
	BugInvariant Code = 5001

	// Наблюдаемость
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var ( // todo расширить описания и использовать как notes
	codeDescription = map[Code]string{
		UnknownCode:        "Unknown error",
		OutInfo:            "Output information",
		OutNotWritable:     "Output file is not writeable",
		OutObjNotWritable:  "Object file is not writeable",
		OutBadPackageID:    "Invalid package id",
		OutCleanup:         "Temporary file cleanup failed",
		ArcInfo:            "Archive information",
		ArcNativeNotFound:  "Native static library not found",
		ArcRlibUnreadable:  "Unreadable crate archive",
		ArcWriteFailed:     "Archive write failed",
		ArcIndexFailed:     "Archive index generation failed",
		ArcUnlinkedNative:  "Unlinked native library",
		ArcMemberMissing:   "Archive member not found",
		ResInfo:            "Resolution information",
		ResRlibNotFound:    "Static crate archive not found",
		ResDylibNotFound:   "Dynamic crate library not found",
		ResLTODynamic:      "LTO requires static crates",
		ResDependencyCycle: "Crate dependency cycle",
		ResBadMetadata:     "Invalid crate metadata",
		TglInfo:            "Toolchain information",
		TglLinkerFailed:    "Native linker failed",
		TglNoCrossPath:     "Cross toolchain path missing",
		TglPostprocFailed:  "Debug info post-processing failed",
		TglTempDir:         "Temporary directory unavailable",
		BugInfo:            "Internal information",
		BugInvariant:       "Internal invariant violated",
		ObsInfo:            "Observability information",
		ObsTimings:         "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("OUT%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("ARC%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("RES%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("TGL%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("BUG%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
