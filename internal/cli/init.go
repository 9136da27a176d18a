package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yaklabco/buildtest/internal/configloader"
	"github.com/yaklabco/buildtest/internal/logging"
	"github.com/yaklabco/buildtest/pkg/config"
	"github.com/yaklabco/buildtest/pkg/fsutil"
)

// configFilePermissions is the file mode for configuration files (world-readable).
const configFilePermissions = 0o644

// ErrConfigExists is returned when init would overwrite a file without --force.
var ErrConfigExists = errors.New("configuration file already exists")

// initFlags holds the flags for the init command.
type initFlags struct {
	force  bool
	full   bool
	output string
}

func newInitCommand() *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new buildtest configuration file",
		Long: `Create a new .buildtest.yml configuration file in the current directory
with commented defaults for test patterns, coverage and reports.

Examples:
  buildtest init                      Create minimal .buildtest.yml
  buildtest init --full               Create a template with every setting
  buildtest init --output ci.yml      Write to a custom file path`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runInit(ctx, flags, cmd.InOrStdin(), isInteractive(cmd.InOrStdin()))
		},
	}

	cmd.Flags().BoolVar(&flags.force, "force", false, "Overwrite existing configuration file")
	cmd.Flags().BoolVar(&flags.full, "full", false, "Generate full template with every setting")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "",
		"Output file path (default: "+configloader.ProjectConfigName+")")

	return cmd
}

func runInit(ctx context.Context, flags *initFlags, in io.Reader, interactive bool) error {
	logger := logging.NewInteractive()

	outputPath := flags.output
	if outputPath == "" {
		outputPath = configloader.ProjectConfigName
	}

	absPath, err := filepath.Abs(outputPath)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if _, err := os.Stat(absPath); err == nil && !flags.force {
		if !interactive || !confirm(in, fmt.Sprintf("%s exists. Overwrite? [y/N] ", outputPath)) {
			return fmt.Errorf("%w: %q; use --force to overwrite", ErrConfigExists, outputPath)
		}
		logger.Warn("overwriting existing file", logging.FieldPath, outputPath)
	}

	content := config.GenerateTemplate(config.TemplateOptions{Full: flags.full})

	if err := fsutil.WriteAtomic(ctx, absPath, content, configFilePermissions); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	logger.Info("created configuration file", logging.FieldPath, outputPath)
	logger.Info("run 'buildtest' to execute the configured tests")

	return nil
}

// isInteractive reports whether in is a terminal.
func isInteractive(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// confirm prints prompt and reads a yes/no answer.
func confirm(in io.Reader, prompt string) bool {
	fmt.Fprint(os.Stderr, prompt)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
