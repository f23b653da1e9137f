package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--color", "off"}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rlink %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestMangleCommand(t *testing.T) {
	got := strings.TrimSpace(runCLI(t, "mangle", "mycrate::foo", "--hash", "abcd1234", "--vers", "1.0"))
	if want := "_ZN7mycrate3foo8abcd12344v1.0E"; got != want {
		t.Fatalf("mangle = %q, want %q", got, want)
	}
}

func TestHashCommandJSON(t *testing.T) {
	out := runCLI(t, "hash", "demo#0.0", "--os", "linux", "--format", "json")
	var p hashPayload
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(p.CrateHash) != 16 || p.Name != "demo" || p.Version != "0.0" {
		t.Fatalf("payload = %+v", p)
	}
	want := "libdemo-" + p.CrateHash[:8] + "-0.0.so"
	if p.Files["dylib"] != want {
		t.Fatalf("dylib file = %q, want %q", p.Files["dylib"], want)
	}
}

func TestParseOnOff(t *testing.T) {
	var out bytes.Buffer
	for value, want := range map[string]onOff{"": onOffAuto, "AUTO": onOffAuto, "on": onOffOn, " off ": onOffOff} {
		got, err := parseOnOff("ui", value)
		if err != nil || got != want {
			t.Fatalf("parseOnOff(%q) = %v, %v, want %v", value, got, err, want)
		}
	}
	if _, err := parseOnOff("ui", "sometimes"); err == nil || !strings.Contains(err.Error(), "--ui") {
		t.Fatalf("parseOnOff accepted junk: %v", err)
	}
	if onOffAuto.resolve(&out) {
		t.Fatalf("auto resolved to on for a buffer")
	}
	if !onOffOn.resolve(&out) || onOffOff.resolve(&out) {
		t.Fatalf("explicit modes ignored")
	}
}
