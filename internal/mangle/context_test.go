package mangle

import (
	"strings"
	"testing"

	"rlink/internal/linkmeta"
	"rlink/internal/pkgid"
)

type countingTypes struct {
	encodes map[TypeID]int
}

func (c *countingTypes) EncodedType(t TypeID) string {
	c.encodes[t]++
	return "enc" + string(rune('0'+t))
}
func (c *countingTypes) TypeString(t TypeID) string      { return "Vec<int>" }
func (c *countingTypes) ShortTypeString(t TypeID) string { return "Vec" }

func newTestContext(t *testing.T) (*Context, *countingTypes) {
	t.Helper()
	id, err := pkgid.Parse("demo#1.0")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	types := &countingTypes{encodes: map[TypeID]int{}}
	return NewContext(linkmeta.Build(id), types), types
}

func TestSymbolHashMemoized(t *testing.T) {
	ctx, types := newTestContext(t)
	first := ctx.SymbolHash(3)
	for i := 0; i < 5; i++ {
		if got := ctx.SymbolHash(3); got != first {
			t.Fatalf("SymbolHash changed: %q vs %q", got, first)
		}
	}
	if types.encodes[3] != 1 {
		t.Fatalf("EncodedType called %d times, want 1", types.encodes[3])
	}
	_ = ctx.SymbolHash(4)
	if ctx.CachedTypes() != 2 {
		t.Fatalf("CachedTypes = %d, want 2", ctx.CachedTypes())
	}
	if want := ctx.Meta().SymbolHash("enc3"); first != want {
		t.Fatalf("SymbolHash = %q, want %q", first, want)
	}
}

func TestMangleExported(t *testing.T) {
	ctx, _ := newTestContext(t)
	got := ctx.MangleExported(PathOf("demo", "run"), 1)
	want := Mangle(PathOf("demo", "run"), ctx.SymbolHash(1), "1.0")
	if got != want {
		t.Fatalf("MangleExported = %q, want %q", got, want)
	}
	if !strings.HasSuffix(got, "4v1.0E") {
		t.Fatalf("MangleExported = %q, want version segment v1.0", got)
	}
}

func TestInternalNames(t *testing.T) {
	ctx, _ := newTestContext(t)
	h := ctx.SymbolHash(2)

	byType := ctx.InternalByTypeOnly(2, "drop")
	if want := "_ZN4drop3Vec17" + h + "E"; byType != want {
		t.Fatalf("InternalByTypeOnly = %q, want %q", byType, want)
	}
	if again := ctx.InternalByTypeOnly(2, "drop"); again != byType {
		t.Fatalf("InternalByTypeOnly not stable: %q vs %q", again, byType)
	}

	a := ctx.InternalByTypeAndSeq(2, "glue")
	b := ctx.InternalByTypeAndSeq(2, "glue")
	if a == b {
		t.Fatalf("InternalByTypeAndSeq repeated %q", a)
	}
	if !strings.HasPrefix(a, "_ZN14Vec$LT$int$GT$") || !strings.HasSuffix(a, h+"E") {
		t.Fatalf("InternalByTypeAndSeq = %q", a)
	}

	p := PathOf("demo", "closure")
	c1 := ctx.InternalByPathAndSeq(p, "fn")
	c2 := ctx.InternalByPathAndSeq(p, "fn")
	if c1 == c2 {
		t.Fatalf("InternalByPathAndSeq repeated %q", c1)
	}
	if len(p) != 2 {
		t.Fatalf("InternalByPathAndSeq mutated its input path")
	}
	if got := ctx.InternalByPath(p); got != "_ZN4demo7closureE" {
		t.Fatalf("InternalByPath = %q", got)
	}
}

func TestGensymUnique(t *testing.T) {
	ctx, _ := newTestContext(t)
	seen := map[Name]bool{}
	for i := 0; i < 200; i++ {
		n := ctx.Gensym("tmp")
		if seen[n] {
			t.Fatalf("Gensym repeated %q", n)
		}
		seen[n] = true
	}
}
