// Package testrun wires reporters, the go test runner and coverage checks
// into a single run driven by a resolved configuration.
package testrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"code.cloudfoundry.org/clock"
	"golang.org/x/term"
	"golang.org/x/text/language"

	"github.com/yaklabco/buildtest/internal/logging"
	"github.com/yaklabco/buildtest/internal/ui/pretty"
	"github.com/yaklabco/buildtest/pkg/config"
	"github.com/yaklabco/buildtest/pkg/coverage"
	"github.com/yaklabco/buildtest/pkg/events"
	"github.com/yaklabco/buildtest/pkg/htmlreport"
	"github.com/yaklabco/buildtest/pkg/reporter"
	"github.com/yaklabco/buildtest/pkg/runner"
)

// Options configures Execute.
type Options struct {
	// Config is the resolved configuration. Required.
	Config *config.Config

	// WorkingDir is where go test runs and relative output paths resolve.
	// If empty, the current process working directory is used.
	WorkingDir string

	// Stdout receives the spec listing and the coverage table.
	// Defaults to os.Stdout.
	Stdout io.Writer

	// Color is "auto", "always" or "never".
	Color string

	// GoCommand overrides the go executable.
	GoCommand string

	// Clock defaults to the real clock.
	Clock clock.Clock
}

// Outcome describes what a run produced.
type Outcome struct {
	Result *runner.Result

	// Coverage is set when a profile was written.
	Coverage *coverage.Summary

	// Files written by the run, empty when not produced.
	HTMLReport   string
	JUnitReport  string
	CoverageHTML string
}

// ReportPath returns the HTML report location for cfg: the explicit
// report.html, or <output>/tests/index.html in file format.
func ReportPath(cfg *config.Config) string {
	if cfg.Report.HTML != "" {
		return cfg.Report.HTML
	}
	if cfg.Format == config.FormatFile {
		return filepath.Join(cfg.Output, "tests", "index.html")
	}
	return ""
}

// CoverageHTMLPath returns the coverage HTML location for cfg.
func CoverageHTMLPath(cfg *config.Config) string {
	return filepath.Join(cfg.Output, "coverage", "index.html")
}

// Execute runs the tests selected by opts.Config and reports them.
//
// The returned error wraps runner.ErrTestsFailed when tests fail and
// coverage.ErrBelowThreshold when coverage is short. Reporter I/O failures are
// joined in as well. Outcome is non-nil whenever go test ran.
func Execute(ctx context.Context, opts Options) (*Outcome, error) {
	if opts.Config == nil {
		return nil, errors.New("testrun: nil config")
	}
	cfg := opts.Config
	logger := logging.FromContext(ctx)
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewClock()
	}
	outputDir := cfg.Output
	if outputDir == "" {
		outputDir = config.DefaultOutputDir
	}

	locale, err := parseLocale(cfg.Report.Locale)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{}

	listeners, err := reporter.New(ctx, reporter.Options{
		Writer:    opts.Stdout,
		Format:    reporter.Format(cfg.Format),
		Color:     opts.Color,
		OutputDir: resolve(opts.WorkingDir, outputDir),
		Clock:     opts.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("create reporters: %w", err)
	}
	if cfg.Format == config.FormatFile {
		outcome.JUnitReport = reporter.Options{OutputDir: resolve(opts.WorkingDir, outputDir)}.JUnitPath()
	}

	if path := ReportPath(cfg); path != "" {
		renderer, err := newRenderer(ctx, cfg, locale, resolve(opts.WorkingDir, path), opts.Clock)
		if err != nil {
			abandon(listeners)
			return nil, err
		}
		listeners = append(listeners, renderer)
		outcome.HTMLReport = resolve(opts.WorkingDir, path)
	}

	logger.Debug("starting test run",
		logging.FieldPatterns, cfg.Tests,
		logging.FieldFormat, cfg.Format,
		logging.FieldCover, cfg.Coverage.Packages,
	)

	result, runErr := runner.New(runner.WithClock(opts.Clock)).Run(ctx, runner.Options{
		Patterns:   cfg.Tests,
		Tags:       cfg.Tags,
		Run:        cfg.Run,
		Cover:      cfg.Coverage.Packages,
		CoverMode:  cfg.Coverage.Mode,
		OutputDir:  outputDir,
		WorkingDir: opts.WorkingDir,
		GoCommand:  opts.GoCommand,
	}, listeners...)
	if result == nil {
		abandon(listeners)
		return nil, runErr
	}
	outcome.Result = result

	covErr := processCoverage(ctx, opts, cfg, outcome)
	return outcome, errors.Join(runErr, covErr)
}

// processCoverage summarizes the profile, prints or renders it, and checks
// thresholds when the tests passed.
func processCoverage(ctx context.Context, opts Options, cfg *config.Config, outcome *Outcome) error {
	result := outcome.Result
	if result.Profile == "" {
		return nil
	}

	profiles, err := coverage.Load(result.Profile)
	if err != nil {
		return err
	}
	summary := coverage.Summarize(coverage.Filter(profiles, cfg.Coverage.Excluded()))
	outcome.Coverage = &summary

	styles := pretty.NewStyles(pretty.IsColorEnabled(opts.Color, opts.Stdout))
	var errs []error

	switch cfg.Format {
	case config.FormatFile:
		out := resolve(opts.WorkingDir, CoverageHTMLPath(cfg))
		goCmd := opts.GoCommand
		if goCmd == "" {
			goCmd = runner.DefaultGoCommand
		}
		if err := coverage.HTML(ctx, goCmd, result.Profile, out); err != nil {
			errs = append(errs, err)
		} else {
			outcome.CoverageHTML = out
		}
		_, err = io.WriteString(opts.Stdout, "\n"+styles.FormatCoverageSummary(summary))
		errs = append(errs, err)
	default:
		table := pretty.NewCoverageTable(styles, terminalWidth(opts.Stdout))
		_, err = io.WriteString(opts.Stdout, "\n"+table.Format(summary))
		errs = append(errs, err)
	}

	if result.Passed() && cfg.Coverage.Thresholds.Any() {
		errs = append(errs, coverage.Check(summary, cfg.Coverage.Thresholds))
	}
	return errors.Join(errs...)
}

func parseLocale(locale string) (language.Tag, error) {
	if locale == "" {
		return language.Und, nil
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.Und, fmt.Errorf("parse report locale %q: %w", locale, err)
	}
	return tag, nil
}

func newRenderer(
	ctx context.Context,
	cfg *config.Config,
	tag language.Tag,
	path string,
	clk clock.Clock,
) (*htmlreport.Renderer, error) {
	return htmlreport.New(ctx, path,
		htmlreport.WithTitle(cfg.Report.Title),
		htmlreport.WithLocale(tag),
		htmlreport.WithClock(clk),
		htmlreport.WithLogger(logging.FromContext(ctx)),
	)
}

// abandon terminates file-backed listeners of a run that never started, so
// their files are complete and closed. The console listing stays silent.
func abandon(listeners []events.Listener) {
	for _, l := range listeners {
		if _, ok := l.(*reporter.SpecReporter); ok {
			continue
		}
		_ = l.RunStart()
		_ = l.RunEnd()
	}
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func resolve(workDir, path string) string {
	if filepath.IsAbs(path) || workDir == "" {
		return path
	}
	return filepath.Join(workDir, path)
}
