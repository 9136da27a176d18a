// Package runner runs go test -json and turns its output into lifecycle
// events for reporters.
package runner

import (
	"path/filepath"

	"github.com/yaklabco/buildtest/pkg/config"
)

// DefaultGoCommand is the executable used when Options.GoCommand is empty.
const DefaultGoCommand = "go"

// Options controls a single test run.
type Options struct {
	// Patterns are package patterns or test file globs.
	Patterns []string

	// Tags are build tags passed as -tags.
	Tags []string

	// Run is the -run pattern.
	Run string

	// Cover are the packages to instrument. A leading "!" excludes a pattern
	// from the summary. No included pattern disables coverage.
	Cover []string

	// CoverMode is the -covermode value. Defaults to atomic.
	CoverMode config.CoverMode

	// OutputDir is where the coverage profile is written.
	// Defaults to config.DefaultOutputDir.
	OutputDir string

	// WorkingDir is the directory go test runs in.
	// If empty, the current process working directory is used.
	WorkingDir string

	// Env holds extra KEY=VALUE entries appended to the environment.
	Env []string

	// GoCommand overrides the go executable.
	GoCommand string
}

// CoverEnabled reports whether the run collects coverage.
func (o Options) CoverEnabled() bool {
	return o.coverage().Enabled()
}

// ProfilePath is the coverage profile location, relative to WorkingDir when
// OutputDir is relative.
func (o Options) ProfilePath() string {
	return filepath.Join(o.outputDir(), "coverage", "coverage.out")
}

func (o Options) coverage() config.CoverageConfig {
	return config.CoverageConfig{Packages: o.Cover, Mode: o.CoverMode}
}

func (o Options) outputDir() string {
	if o.OutputDir == "" {
		return config.DefaultOutputDir
	}
	return o.OutputDir
}

func (o Options) coverMode() config.CoverMode {
	if o.CoverMode == "" {
		return config.CoverModeAtomic
	}
	return o.CoverMode
}

func (o Options) goCommand() string {
	if o.GoCommand == "" {
		return DefaultGoCommand
	}
	return o.GoCommand
}
