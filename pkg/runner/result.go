package runner

import (
	"time"

	"code.cloudfoundry.org/clock"

	"github.com/yaklabco/buildtest/pkg/events"
)

// Stats are the event counts of one run.
type Stats struct {
	Suites   int
	Tests    int
	Passes   int
	Failures int
	Pending  int

	Duration time.Duration
}

// Result is the outcome of a run.
type Result struct {
	// ExitCode is the go test exit code.
	ExitCode int

	// Packages are the resolved go test package arguments.
	Packages []string

	Stats Stats

	// Profile is the coverage profile path, empty when coverage was off or
	// no profile was written.
	Profile string
}

// Passed reports whether go test exited cleanly with no failed tests.
func (r *Result) Passed() bool {
	if r == nil {
		return false
	}
	return r.ExitCode == 0 && r.Stats.Failures == 0
}

// Compile-time interface check.
var _ events.Listener = (*counter)(nil)

// counter accumulates Stats from the event stream.
type counter struct {
	clock clock.Clock
	start time.Time
	stats Stats
}

func (c *counter) RunStart() error {
	c.start = c.clock.Now()
	return nil
}

func (c *counter) SuiteStart(suite events.Suite) error {
	if !suite.Root {
		c.stats.Suites++
	}
	return nil
}

func (c *counter) SuiteEnd(events.Suite) error { return nil }

func (c *counter) TestEnd(events.Test) error {
	c.stats.Tests++
	return nil
}

func (c *counter) TestPass(events.Test) error {
	c.stats.Passes++
	return nil
}

func (c *counter) TestFail(events.Test, string) error {
	c.stats.Failures++
	return nil
}

func (c *counter) TestPending(events.Test) error {
	c.stats.Pending++
	return nil
}

func (c *counter) RunEnd() error {
	c.stats.Duration = c.clock.Since(c.start)
	return nil
}
