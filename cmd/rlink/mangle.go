package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rlink/internal/linkmeta"
	"rlink/internal/mangle"
	"rlink/internal/pkgid"
)

var mangleCmd = &cobra.Command{
	Use:   "mangle <seg>::<seg>...",
	Short: "Print the mangled symbol name of a path",
	Long: `Print the mangled symbol name of a path.

With --pkgid and --type the name is an exported item name: the hash is the
symbol hash of the type under that crate and the version comes from the
package id. Otherwise --hash and --vers are used as given.`,
	Args: cobra.ExactArgs(1),
	RunE: mangleExecution,
}

func init() {
	mangleCmd.Flags().String("hash", "", "hash segment")
	mangleCmd.Flags().String("vers", "", "version segment")
	mangleCmd.Flags().String("pkgid", "", "package id of the defining crate")
	mangleCmd.Flags().String("type", "", "type encoding of the item")
	mangleCmd.Flags().Bool("sanitize", false, "only sanitize the argument")
}

// singleType is a type table holding one type, as given on the command line.
type singleType string

func (s singleType) EncodedType(mangle.TypeID) string     { return string(s) }
func (s singleType) TypeString(mangle.TypeID) string      { return string(s) }
func (s singleType) ShortTypeString(mangle.TypeID) string { return string(s) }

func mangleExecution(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if sanitize, _ := flags.GetBool("sanitize"); sanitize {
		fmt.Fprintln(cmd.OutOrStdout(), mangle.Sanitize(args[0]))
		return nil
	}

	path := mangle.ParsePath(args[0])
	if len(path) == 0 {
		return fmt.Errorf("empty path %q", args[0])
	}
	hash, _ := flags.GetString("hash")
	vers, _ := flags.GetString("vers")
	id, _ := flags.GetString("pkgid")
	typ, _ := flags.GetString("type")

	if strings.TrimSpace(id) == "" {
		if typ != "" {
			return fmt.Errorf("--type requires --pkgid")
		}
		fmt.Fprintln(cmd.OutOrStdout(), mangle.Mangle(path, hash, vers))
		return nil
	}

	if hash != "" || vers != "" {
		return fmt.Errorf("--hash and --vers cannot be combined with --pkgid")
	}
	parsed, err := pkgid.Parse(id)
	if err != nil {
		return err
	}
	ctx := mangle.NewContext(linkmeta.Build(parsed), singleType(typ))
	fmt.Fprintln(cmd.OutOrStdout(), ctx.MangleExported(path, 0))
	return nil
}
