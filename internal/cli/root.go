// Package cli provides the Cobra command structure for buildtest.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yaklabco/buildtest/internal/logging"
)

// BuildInfo holds build-time version information.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// NewRootCommand creates the root buildtest command with all subcommands.
// Without a subcommand it behaves like "buildtest test".
func NewRootCommand(info BuildInfo) *cobra.Command {
	var debug bool
	var configPath string
	var color string
	flags := &testFlags{}

	rootCmd := &cobra.Command{
		Use:   "buildtest [patterns...]",
		Short: "Run Go tests with spec-style, JUnit and HTML reports",
		Long: `buildtest runs go test and reports every result as it arrives.

Results are printed as a nested spec listing and can also be written as a
JUnit XML file and a self-contained HTML report. Coverage is collected for
the configured packages and checked against minimum thresholds.`,
		Args: cobra.ArbitraryArgs,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if debug {
				logging.SetLevel("debug")
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(cmd, args, flags)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags.
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&color, "color", "auto",
		"colorize output: auto, always, never")

	addTestFlags(rootCmd, flags)

	// Add subcommands.
	rootCmd.AddCommand(newTestCommand())
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newVersionCommand(info))

	// Apply styled help formatting.
	helpFormatter := NewHelpFormatter(color, os.Stdout)
	helpFormatter.ApplyToCommand(rootCmd)

	return rootCmd
}
