package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"rlink/internal/diag"
	"rlink/internal/diagfmt"
	"rlink/internal/version"
)

// renderDiagnostics prints the bag to stderr, most severe first, capped at
// --max-diagnostics. json and sarif go to stdout.
func renderDiagnostics(cmd *cobra.Command, bag *diag.Bag) error {
	if bag == nil {
		return nil
	}
	flags := cmd.Root().PersistentFlags()
	format, err := flags.GetString("diagnostics-format")
	if err != nil {
		return err
	}
	limit, err := flags.GetInt("max-diagnostics")
	if err != nil || limit < 0 {
		limit = 0
	}
	bag.Sort()

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "pretty":
		return renderPretty(cmd, bag, limit)
	case "json":
		return diagfmt.JSON(cmd.OutOrStdout(), bag, diagfmt.JSONOpts{Max: limit, IncludeNotes: true})
	case "sarif":
		return diagfmt.Sarif(cmd.OutOrStdout(), bag, diagfmt.SarifRunMeta{ToolName: "rlink", ToolVersion: version.Version})
	default:
		return fmt.Errorf("invalid --diagnostics-format value %q (expected pretty|json|sarif)", format)
	}
}

func renderPretty(cmd *cobra.Command, bag *diag.Bag, limit int) error {
	items := bag.Items()
	if len(items) == 0 {
		return nil
	}
	if limit == 0 {
		limit = len(items)
	}
	shown := items[:min(limit, len(items))]

	w := cmd.ErrOrStderr()
	if err := diag.Render(w, shown, !color.NoColor); err != nil {
		return err
	}
	if hidden := len(items) - len(shown); hidden > 0 {
		fmt.Fprintf(w, "... and %d more\n", hidden)
	}
	if n := bag.ErrorCount(); n > 0 {
		fmt.Fprintf(w, "%s\n", color.New(color.FgRed, color.Bold).Sprintf("aborting due to %d previous error(s)", n))
	}
	return nil
}

// machineDiagnostics reports whether stdout carries a json or sarif document.
func machineDiagnostics(cmd *cobra.Command) bool {
	format, err := cmd.Root().PersistentFlags().GetString("diagnostics-format")
	if err != nil {
		return false
	}
	format = strings.ToLower(strings.TrimSpace(format))
	return format == "json" || format == "sarif"
}
