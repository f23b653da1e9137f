package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rlink/internal/registry"
	"rlink/internal/target"
)

var depsCmd = &cobra.Command{
	Use:   "deps [manifest]",
	Short: "Show upstream crates and how they would be linked",
	Args:  cobra.MaximumNArgs(1),
	RunE:  depsExecution,
}

func init() {
	depsCmd.Flags().Bool("prefer-dynamic", false, "report the resolution for --prefer-dynamic")
}

func depsExecution(cmd *cobra.Command, args []string) error {
	manifest, err := resolveManifest(args)
	if err != nil {
		return err
	}
	opts, err := manifest.sessionOptions()
	if err != nil {
		return err
	}
	o, err := manifest.targetOS()
	if err != nil {
		return err
	}
	plat, err := target.Lookup(o)
	if err != nil {
		return err
	}
	natives, err := manifest.localNatives()
	if err != nil {
		return err
	}
	specs, err := manifest.dependencySpecs()
	if err != nil {
		return err
	}

	loader := registry.Loader{Platform: plat, LibraryPath: opts.LibraryPath}
	upstream, err := loader.Load(cmd.Context(), specs)
	if err != nil {
		return fmt.Errorf("%s: %w", manifest.Path, err)
	}
	store, err := registry.New(natives, manifest.Config.Crate.LinkArgs, upstream)
	if err != nil {
		return fmt.Errorf("%s: %w", manifest.Path, err)
	}

	preferDynamic := opts.PreferDynamic
	if cmd.Flags().Changed("prefer-dynamic") {
		preferDynamic, _ = cmd.Flags().GetBool("prefer-dynamic")
	}
	pref := resolution(store, preferDynamic)

	out := cmd.OutOrStdout()
	root := manifest.Config.Crate.PkgID
	if root == "" {
		root = manifest.Config.Crate.Output
	}
	fmt.Fprint(out, store.Tree(root))
	fmt.Fprintf(out, "\nexecutables link upstream crates: %s\n", pref)
	for _, u := range store.UsedCrates(pref) {
		path := u.Path
		if path == "" {
			path = "(missing)"
		}
		fmt.Fprintf(out, "  %s: %s\n", u.Name, path)
	}
	return nil
}

// resolution mirrors the linker's choice for executables: all-static when
// every crate has an rlib and dynamic linking is not preferred.
func resolution(store *registry.Store, preferDynamic bool) registry.Preference {
	if preferDynamic {
		return registry.RequireDynamic
	}
	for _, u := range store.UsedCrates(registry.RequireStatic) {
		if u.Path == "" {
			return registry.RequireDynamic
		}
	}
	return registry.RequireStatic
}
