// Package main implements the rlink CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"rlink/internal/prof"
	"rlink/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "rlink",
	Short:         "Native link backend: symbol names, archives and linker driving",
	Long:          `rlink turns a compiled crate object into rlibs, staticlibs, dynamic libraries and executables`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return prepare(cmd)
	},
}

func init() {
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(mangleCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (\"-\" for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-format", "auto", "trace format (auto|text|ndjson)")
	rootCmd.PersistentFlags().String("diagnostics-format", "pretty", "diagnostics format (pretty|json|sarif)")
	rootCmd.PersistentFlags().String("cpuprofile", "", "write a CPU profile to file")
	rootCmd.PersistentFlags().String("memprofile", "", "write a heap profile to file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to file")
}

// main executes the root command. Any error exits with status 1.
func main() {
	rootCmd.Version = version.Version

	err := rootCmd.Execute()
	if cleanupTracing != nil {
		cleanupTracing()
	}
	if profErr := profiler.Stop(); profErr != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", profErr)
	}
	if err != nil {
		if !errors.Is(err, errLinkFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

var (
	// cleanupTracing flushes the tracer installed by prepare.
	cleanupTracing func()
	profiler       *prof.Profiler
)

// prepare applies --color and installs the tracer on the command context.
func prepare(cmd *cobra.Command) error {
	value, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	mode, err := parseOnOff("color", value)
	if err != nil {
		return err
	}
	color.NoColor = !mode.resolve(os.Stderr)
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	cleanupTracing = cleanup

	opts, err := profileOptions(cmd)
	if err != nil || !opts.Enabled() {
		return err
	}
	profiler, err = prof.Start(opts)
	return err
}

func profileOptions(cmd *cobra.Command) (prof.Options, error) {
	var opts prof.Options
	flags := cmd.Root().PersistentFlags()
	var err error
	if opts.CPU, err = flags.GetString("cpuprofile"); err != nil {
		return opts, err
	}
	if opts.Mem, err = flags.GetString("memprofile"); err != nil {
		return opts, err
	}
	if opts.Trace, err = flags.GetString("runtime-trace"); err != nil {
		return opts, err
	}
	return opts, nil
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func isQuiet(cmd *cobra.Command) bool {
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	return err == nil && quiet
}

func showTimings(cmd *cobra.Command) bool {
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	return err == nil && timings
}
