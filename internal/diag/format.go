package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// FormatShort renders diagnostics one per line: `severity CODE message`,
// followed by `note CODE text` lines when includeNotes is set. The order of
// the input is preserved.
func FormatShort(items []Diagnostic, includeNotes bool) string {
	var b strings.Builder
	for i, d := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %s %s", d.Severity.Label(), d.Code.ID(), sanitizeMessage(d.Message))
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(&b, "\nnote %s %s", d.Code.ID(), sanitizeMessage(n.Msg))
		}
	}
	return b.String()
}

// Render writes diagnostics in the human readable form:
//
//	error[RES3001]: could not find rlib for: `b`
//	  note: ...
//
// Colors follow fatih/color's global NoColor switch unless useColor is false.
func Render(w io.Writer, items []Diagnostic, useColor bool) error {
	errC := color.New(color.FgRed, color.Bold)
	warnC := color.New(color.FgYellow, color.Bold)
	noteC := color.New(color.FgCyan, color.Bold)
	if !useColor {
		errC.DisableColor()
		warnC.DisableColor()
		noteC.DisableColor()
	}

	for _, d := range items {
		head := noteC
		switch d.Severity {
		case SevError:
			head = errC
		case SevWarning:
			head = warnC
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", head.Sprintf("%s[%s]", d.Severity.Label(), d.Code.ID()), d.Message); err != nil {
			return err
		}
		for _, n := range d.Notes {
			if _, err := fmt.Fprintf(w, "  %s %s\n", noteC.Sprint("note:"), n.Msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
