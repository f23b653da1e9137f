package pkgid

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in        string
		path      string
		name      string
		version   string
		canonical string
	}{
		{"demo", "demo", "demo", "", "demo#0.0"},
		{"github.com/acme/demo", "github.com/acme/demo", "demo", "", "github.com/acme/demo#0.0"},
		{"demo#1.2", "demo", "demo", "1.2", "demo#1.2"},
		{"github.com/acme/demo#core", "github.com/acme/demo", "core", "", "github.com/acme/demo#core:0.0"},
		{"github.com/acme/demo#core:0.3", "github.com/acme/demo", "core", "0.3", "github.com/acme/demo#core:0.3"},
		{"demo#:2.0", "demo", "demo", "2.0", "demo#2.0"},
		{"demo#demo:2.0", "demo", "demo", "2.0", "demo#2.0"},
	}
	for _, tt := range tests {
		id, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", tt.in, err)
		}
		if id.Path != tt.path || id.Name != tt.name || id.Version != tt.version {
			t.Fatalf("Parse(%q) = %+v, want path=%q name=%q version=%q", tt.in, id, tt.path, tt.name, tt.version)
		}
		if got := id.String(); got != tt.canonical {
			t.Fatalf("Parse(%q).String() = %q, want %q", tt.in, got, tt.canonical)
		}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := map[string]error{
		"":           ErrEmpty,
		"/abs/demo":  ErrInvalidPath,
		"demo/":      ErrInvalidPath,
		"a/../b":     ErrInvalidPath,
		"a//b":       ErrInvalidPath,
		"demo#bad/x": ErrInvalidName,
	}
	for in, want := range cases {
		if _, err := Parse(in); !errors.Is(err, want) {
			t.Fatalf("Parse(%q) error = %v, want %v", in, err, want)
		}
	}
}

func TestInfer(t *testing.T) {
	id, err := Infer("foo")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if id.Name != "foo" || id.Path != "foo" || id.Version != "" {
		t.Fatalf("Infer(foo) = %+v", id)
	}
	if id.VersionOrDefault() != DefaultVersion {
		t.Fatalf("VersionOrDefault = %q, want %q", id.VersionOrDefault(), DefaultVersion)
	}
	if _, err := Infer("  "); !errors.Is(err, ErrEmpty) {
		t.Fatalf("Infer(blank) error = %v, want ErrEmpty", err)
	}
}

func TestParseNormalizesNFC(t *testing.T) {
	decomposed := "cafe\u0301"
	id, err := Parse(decomposed)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if id.Name != "caf\u00e9" {
		t.Fatalf("Name = %q, want NFC form", id.Name)
	}
}
