package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"rlink/internal/archive"
	"rlink/internal/metadata"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect static archives and rlibs",
}

var archiveListCmd = &cobra.Command{
	Use:   "list <archive>",
	Short: "List archive members in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		members, err := archive.List(args[0])
		if err != nil {
			return err
		}
		for _, m := range members {
			fmt.Fprintln(cmd.OutOrStdout(), m)
		}
		return nil
	},
}

var archiveExtractCmd = &cobra.Command{
	Use:   "extract <archive> <member>...",
	Short: "Write archive members into a directory",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := cmd.Flags().GetString("dir")
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
		for _, name := range args[1:] {
			data, err := archive.ReadMember(args[0], name)
			if err != nil {
				return err
			}
			dst := filepath.Join(dir, filepath.Base(name))
			if err := os.WriteFile(dst, data, 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", dst, err)
			}
			if !isQuiet(cmd) {
				fmt.Fprintln(cmd.OutOrStdout(), dst)
			}
		}
		return nil
	},
}

var archiveMetaCmd = &cobra.Command{
	Use:   "metadata <rlib>",
	Short: "Decode the crate metadata of an rlib",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := metadata.ReadRlib(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "name:    %s\n", c.Name)
		fmt.Fprintf(out, "pkgid:   %s\n", c.PkgID)
		fmt.Fprintf(out, "hash:    %s\n", c.CrateHash)
		fmt.Fprintf(out, "schema:  %d\n", c.Schema)
		for _, lib := range c.NativeLibraries {
			fmt.Fprintf(out, "native:  %s (%s)\n", lib.Name, lib.Kind)
		}
		for _, dep := range c.Dependencies {
			fmt.Fprintf(out, "dep:     %s\n", dep)
		}
		return nil
	},
}

func init() {
	archiveExtractCmd.Flags().String("dir", ".", "destination directory")
	archiveCmd.AddCommand(archiveListCmd, archiveExtractCmd, archiveMetaCmd)
}
