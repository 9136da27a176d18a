// Package tasks exposes buildtest runs as stave targets, so a stavefile can
// register test and coverage tasks in one line.
//
//	var set = tasks.New(tasks.Options{
//		TestPatterns:  []string{"./..."},
//		CoverPatterns: []string{"./pkg/..."},
//		Thresholds:    config.Thresholds{Statements: 80},
//	})
//
//	func TestCoverage() error { return set.TestWithCoverage() }
package tasks

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"

	"github.com/yaklabco/buildtest/pkg/config"
	"github.com/yaklabco/buildtest/pkg/testrun"
)

// Task name suffixes.
const (
	NameTestWithoutCoverage = "test-without-coverage"
	NamePreTestCoverage     = "pre-test-coverage"
	NameTestWithCoverage    = "test-with-coverage"
)

// Executor runs one configured test run.
type Executor func(ctx context.Context, cfg *config.Config) error

// Options configures the task set.
type Options struct {
	// TestPatterns select the tests. Defaults to "./...".
	TestPatterns []string

	// CoverPatterns select instrumented packages; "!" excludes.
	CoverPatterns []string

	Thresholds config.Thresholds

	// OutputDir receives reports. Defaults to config.DefaultOutputDir.
	OutputDir string

	Tags []string

	// Prefix is prepended to task names as "<prefix>-".
	Prefix string

	// Dependencies are stave targets run before each task.
	Dependencies []any

	// WorkingDir is where tests run. Defaults to the process directory.
	WorkingDir string

	// Executor defaults to running the full pipeline via testrun.Execute.
	Executor Executor
}

// Set holds stave-compatible targets bound to one Options value.
type Set struct {
	opts Options
}

// New creates a task set.
func New(opts Options) *Set {
	if len(opts.TestPatterns) == 0 {
		opts.TestPatterns = []string{"./..."}
	}
	if opts.OutputDir == "" {
		opts.OutputDir = config.DefaultOutputDir
	}
	if opts.Executor == nil {
		workDir := opts.WorkingDir
		opts.Executor = func(ctx context.Context, cfg *config.Config) error {
			_, err := testrun.Execute(ctx, testrun.Options{Config: cfg, WorkingDir: workDir})
			return err
		}
	}
	return &Set{opts: opts}
}

// Names returns the prefixed task names in registration order.
func (s *Set) Names() []string {
	return []string{
		s.name(NameTestWithoutCoverage),
		s.name(NamePreTestCoverage),
		s.name(NameTestWithCoverage),
	}
}

// Targets maps each prefixed task name to its target function.
func (s *Set) Targets() map[string]func() error {
	return map[string]func() error{
		s.name(NameTestWithoutCoverage): s.TestWithoutCoverage,
		s.name(NamePreTestCoverage):     s.PreTestCoverage,
		s.name(NameTestWithCoverage):    s.TestWithCoverage,
	}
}

// TestWithoutCoverage runs the dependencies, then the tests with console
// output only.
func (s *Set) TestWithoutCoverage() error {
	s.deps()
	cfg := s.config()
	return s.run(cfg)
}

// PreTestCoverage runs the dependencies, then clears the output directory.
func (s *Set) PreTestCoverage() error {
	s.deps()
	if err := sh.Rm(s.outputDir()); err != nil {
		return fmt.Errorf("clear %s: %w", s.opts.OutputDir, err)
	}
	return nil
}

// TestWithCoverage runs PreTestCoverage, then the tests with coverage, file
// reports and the threshold check.
func (s *Set) TestWithCoverage() error {
	st.Deps(s.PreTestCoverage)

	cfg := s.config()
	cfg.Format = config.FormatFile
	cfg.Coverage.Packages = append([]string(nil), s.opts.CoverPatterns...)
	cfg.Coverage.Thresholds = s.opts.Thresholds
	return s.run(cfg)
}

func (s *Set) deps() {
	if len(s.opts.Dependencies) > 0 {
		st.Deps(s.opts.Dependencies...)
	}
}

func (s *Set) config() *config.Config {
	cfg := config.NewConfig()
	cfg.Tests = append([]string(nil), s.opts.TestPatterns...)
	cfg.Tags = append([]string(nil), s.opts.Tags...)
	cfg.Output = s.opts.OutputDir
	return cfg
}

func (s *Set) run(cfg *config.Config) error {
	if err := s.opts.Executor(context.Background(), cfg); err != nil {
		return fmt.Errorf("run tests: %w", err)
	}
	return nil
}

func (s *Set) outputDir() string {
	if filepath.IsAbs(s.opts.OutputDir) || s.opts.WorkingDir == "" {
		return s.opts.OutputDir
	}
	return filepath.Join(s.opts.WorkingDir, s.opts.OutputDir)
}

func (s *Set) name(suffix string) string {
	if s.opts.Prefix == "" {
		return suffix
	}
	return s.opts.Prefix + "-" + suffix
}
