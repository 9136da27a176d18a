package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yaklabco/buildtest/internal/configloader"
	"github.com/yaklabco/buildtest/internal/logging"
	"github.com/yaklabco/buildtest/pkg/config"
	"github.com/yaklabco/buildtest/pkg/testrun"
	"github.com/yaklabco/buildtest/pkg/watch"
)

// ErrNoTests is returned when neither arguments nor configuration select tests.
var ErrNoTests = fmt.Errorf("%w: no test patterns given", ErrUsage)

type testFlags struct {
	cover      []string
	output     string
	format     string
	watch      bool
	tags       []string
	run        string
	html       string
	title      string
	locale     string
	statements float64
	lines      float64
	functions  float64
	branches   float64
}

func newTestCommand() *cobra.Command {
	flags := &testFlags{}

	cmd := &cobra.Command{
		Use:   "test [patterns...]",
		Short: "Run tests and report the results",
		Long:  testLongDescription,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(cmd, args, flags)
		},
	}

	addTestFlags(cmd, flags)

	return cmd
}

const testLongDescription = `Run go test for the given package patterns or test file globs.

Patterns such as ./... or ./pkg/foo are passed to go test. Globs such as
'pkg/**/*_test.go' select the packages holding the matching test files.
Without arguments the tests listed in the configuration are run.

Examples:
  buildtest test ./...                          # Run every package
  buildtest test 'internal/**/*_test.go'        # Run packages matching a glob
  buildtest test -c ./pkg/... --statements 80   # Enforce statement coverage
  buildtest test -f file -o out ./...           # Write JUnit and HTML under out/
  buildtest test --html report.html ./...       # Also write an HTML report
  buildtest test -w ./...                       # Rerun changed packages`

func addTestFlags(cmd *cobra.Command, flags *testFlags) {
	cmd.Flags().StringArrayVarP(&flags.cover, "cover", "c", nil,
		"package pattern to collect coverage for (repeatable, prefix ! to exclude)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "directory for report files (default testResults)")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "output format: console, file")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "rerun the tests of changed packages")
	cmd.Flags().StringSliceVarP(&flags.tags, "tags", "t", nil, "build tags passed to go test")
	cmd.Flags().StringVar(&flags.run, "run", "", "only run tests matching this regular expression")
	cmd.Flags().StringVar(&flags.html, "html", "", "write the HTML report to this path")
	cmd.Flags().StringVar(&flags.title, "title", "", "heading of the HTML report")
	cmd.Flags().StringVar(&flags.locale, "locale", "", "BCP 47 locale for the HTML report")
	cmd.Flags().Float64Var(&flags.statements, "statements", 0, "minimum statement coverage percent")
	cmd.Flags().Float64Var(&flags.lines, "lines", 0, "minimum line coverage percent")
	cmd.Flags().Float64Var(&flags.functions, "functions", 0, "minimum function coverage percent (not measured for Go)")
	cmd.Flags().Float64Var(&flags.branches, "branches", 0, "minimum branch coverage percent (not measured for Go)")
}

// toConfig builds the CLI configuration layer. Unset flags stay zero so
// lower layers show through.
func (f *testFlags) toConfig(args []string) *config.Config {
	cfg := &config.Config{
		Tests:  args,
		Output: f.output,
		Format: config.OutputFormat(f.format),
		Tags:   f.tags,
		Run:    f.run,
		Watch:  f.watch,
		Coverage: config.CoverageConfig{
			Packages: f.cover,
			Thresholds: config.Thresholds{
				Statements: f.statements,
				Lines:      f.lines,
				Functions:  f.functions,
				Branches:   f.branches,
			},
		},
		Report: config.ReportConfig{
			Title:  f.title,
			Locale: f.locale,
			HTML:   f.html,
		},
	}
	if len(args) == 0 {
		cfg.Tests = nil
	}
	return cfg
}

func runTest(cmd *cobra.Command, args []string, flags *testFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.FromContext(ctx)

	// Get the explicit config path from the root command's persistent flag.
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("get config flag: %w", err)
	}

	colorMode, err := cmd.Flags().GetString("color")
	if err != nil {
		colorMode = "auto"
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	loadResult, err := configloader.Load(ctx, configloader.LoadOptions{
		WorkingDir:   workDir,
		ExplicitPath: configPath,
		CLIConfig:    flags.toConfig(args),
	})
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	for _, warning := range loadResult.Warnings {
		logger.Warn(warning)
	}
	if len(loadResult.LoadedFrom) > 0 {
		logger.Debug("loaded configuration", logging.FieldPaths, loadResult.LoadedFrom)
	}

	cfg := loadResult.Config
	if len(cfg.Tests) == 0 {
		_ = cmd.Usage()
		return ErrNoTests
	}

	run := func(ctx context.Context, cfg *config.Config) error {
		_, err := testrun.Execute(ctx, testrun.Options{
			Config:     cfg,
			WorkingDir: workDir,
			Stdout:     cmd.OutOrStdout(),
			Color:      colorMode,
		})
		return err
	}

	if !cfg.Watch {
		return run(ctx, cfg)
	}
	return runWatch(ctx, workDir, cfg, run)
}

// runWatch runs the configured tests once, then reruns each changed package
// without coverage until ctx is cancelled.
func runWatch(
	ctx context.Context,
	workDir string,
	cfg *config.Config,
	run func(context.Context, *config.Config) error,
) error {
	logger := logging.FromContext(ctx)

	if err := run(ctx, cfg); err != nil && !IsQuiet(err) {
		logger.Error("initial test run failed", logging.FieldError, err)
	}

	watcher, err := watch.New(ctx, watch.Options{WorkingDir: workDir}, func(ctx context.Context, pkg string) error {
		return run(ctx, watchConfig(cfg, pkg))
	})
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

// watchConfig narrows cfg to one package and turns coverage off.
func watchConfig(cfg *config.Config, pkg string) *config.Config {
	narrowed := cfg.Clone()
	narrowed.Tests = []string{pkg}
	narrowed.Coverage.Packages = nil
	narrowed.Coverage.Thresholds = config.Thresholds{}
	return narrowed
}
