package reporter

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"code.cloudfoundry.org/clock"
)

// DefaultSlowThreshold is the test duration above which the spec listing
// shows elapsed time. Tests over half of it are shown too.
const DefaultSlowThreshold = 75 * time.Millisecond

// Options configures reporter behavior.
type Options struct {
	// Writer is the destination for output (typically os.Stdout).
	Writer io.Writer

	// Format specifies the output format.
	Format Format

	// Color controls colorized output.
	// Values: "auto" (default), "always", "never"
	Color string

	// OutputDir is where file output goes. JUnit XML is written to
	// <OutputDir>/tests/results.xml.
	OutputDir string

	// SlowThreshold controls when test durations are shown.
	SlowThreshold time.Duration

	// Clock times the run. Tests substitute a fake.
	Clock clock.Clock
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Writer:        os.Stdout,
		Format:        FormatConsole,
		Color:         "auto",
		OutputDir:     "testResults",
		SlowThreshold: DefaultSlowThreshold,
		Clock:         clock.NewClock(),
	}
}

// JUnitPath returns the JUnit XML location under the output directory.
func (o Options) JUnitPath() string {
	return filepath.Join(o.OutputDir, "tests", "results.xml")
}

// withDefaults fills unset fields from DefaultOptions.
func (o Options) withDefaults() Options {
	defaults := DefaultOptions()
	if o.Writer == nil {
		o.Writer = defaults.Writer
	}
	if o.Format == "" {
		o.Format = defaults.Format
	}
	if o.OutputDir == "" {
		o.OutputDir = defaults.OutputDir
	}
	if o.SlowThreshold <= 0 {
		o.SlowThreshold = defaults.SlowThreshold
	}
	if o.Clock == nil {
		o.Clock = defaults.Clock
	}
	return o
}
