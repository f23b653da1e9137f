package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"rlink/internal/buildpipeline"
	"rlink/internal/linkmeta"
	"rlink/internal/pkgid"
	"rlink/internal/session"
	"rlink/internal/target"
)

var hashCmd = &cobra.Command{
	Use:   "hash <pkgid>",
	Short: "Print the crate hash and library file names of a package id",
	Args:  cobra.ExactArgs(1),
	RunE:  hashExecution,
}

func init() {
	hashCmd.Flags().String("os", "", "target os for file names (default: host)")
	hashCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

type hashPayload struct {
	PkgID     string            `json:"pkgid"`
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	CrateHash string            `json:"crate_hash"`
	LibBase   string            `json:"lib_base"`
	Files     map[string]string `json:"files"`
}

func hashExecution(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format = strings.ToLower(format)
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}

	o := target.HostOS()
	if value, _ := cmd.Flags().GetString("os"); value != "" {
		if o, err = target.ParseOS(value); err != nil {
			return err
		}
	}
	plat, err := target.Lookup(o)
	if err != nil {
		return err
	}

	id, err := pkgid.Parse(args[0])
	if err != nil {
		return err
	}
	payload := describeHash(plat, linkmeta.Build(id))
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}
	renderHashPretty(cmd.OutOrStdout(), payload)
	return nil
}

func describeHash(plat target.Platform, meta linkmeta.LinkMeta) hashPayload {
	files := make(map[string]string, 3)
	for _, kind := range []session.OutputKind{session.OutputRlib, session.OutputDylib, session.OutputStaticlib} {
		files[kind.String()] = buildpipeline.OutputFilename(plat, meta, kind, meta.PkgID.Name)
	}
	return hashPayload{
		PkgID:     meta.PkgID.String(),
		Name:      meta.PkgID.Name,
		Version:   meta.PkgID.VersionOrDefault(),
		CrateHash: meta.CrateHash,
		LibBase:   meta.OutputLibFilename(),
		Files:     files,
	}
}

func renderHashPretty(out io.Writer, p hashPayload) {
	fmt.Fprintf(out, "pkgid:     %s\n", p.PkgID)
	fmt.Fprintf(out, "hash:      %s\n", p.CrateHash)
	fmt.Fprintf(out, "lib base:  %s\n", p.LibBase)
	for _, kind := range []string{"rlib", "dylib", "staticlib"} {
		fmt.Fprintf(out, "%-10s %s\n", kind+":", p.Files[kind])
	}
}
