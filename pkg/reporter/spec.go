package reporter

import (
	"errors"
	"fmt"
	"io"
	"time"

	"code.cloudfoundry.org/clock"

	"github.com/yaklabco/buildtest/internal/ui/pretty"
	"github.com/yaklabco/buildtest/pkg/events"
	"github.com/yaklabco/buildtest/pkg/htmlreport"
)

// ErrReporterIO indicates console output could not be written.
var ErrReporterIO = errors.New("reporter output")

// Compile-time interface check.
var _ events.Listener = (*SpecReporter)(nil)

// SpecReporter writes a hierarchical, styled spec listing as events arrive,
// followed by a summary and the numbered list of failures.
type SpecReporter struct {
	w      io.Writer
	styles *pretty.Styles
	clock  clock.Clock
	slow   time.Duration

	depth    int
	start    time.Time
	counts   pretty.RunCounts
	failures []failure
	err      error
}

type failure struct {
	fullTitle string
	reason    string
}

// NewSpecReporter creates a spec reporter writing to opts.Writer.
func NewSpecReporter(opts Options) *SpecReporter {
	opts = opts.withDefaults()
	return &SpecReporter{
		w:      opts.Writer,
		styles: pretty.NewStyles(pretty.IsColorEnabled(opts.Color, opts.Writer)),
		clock:  opts.Clock,
		slow:   opts.SlowThreshold,
	}
}

// Counts returns the outcome totals so far.
func (r *SpecReporter) Counts() pretty.RunCounts {
	return r.counts
}

// RunStart implements events.Listener.
func (r *SpecReporter) RunStart() error {
	r.start = r.clock.Now()
	r.depth = 0
	r.counts = pretty.RunCounts{}
	r.failures = nil
	return r.err
}

// SuiteStart implements events.Listener.
func (r *SpecReporter) SuiteStart(suite events.Suite) error {
	if suite.Root {
		return r.err
	}
	r.depth++
	if r.depth == 1 {
		r.write("\n")
	}
	r.write(r.styles.FormatSuite(r.depth, suite.Title))
	return r.err
}

// SuiteEnd implements events.Listener.
func (r *SpecReporter) SuiteEnd(suite events.Suite) error {
	if !suite.Root && r.depth > 0 {
		r.depth--
	}
	return r.err
}

// TestEnd implements events.Listener.
func (r *SpecReporter) TestEnd(events.Test) error {
	return r.err
}

// TestPass implements events.Listener.
func (r *SpecReporter) TestPass(test events.Test) error {
	r.counts.Passes++
	duration := ""
	if test.Elapsed > r.slow/2 {
		duration = htmlreport.FormatDuration(test.Elapsed)
	}
	r.write(r.styles.FormatPass(r.depth+1, test.Title, duration))
	return r.err
}

// TestFail implements events.Listener.
func (r *SpecReporter) TestFail(test events.Test, reason string) error {
	r.counts.Failures++
	r.failures = append(r.failures, failure{fullTitle: fullTitle(test), reason: reason})
	r.write(r.styles.FormatFail(r.depth+1, len(r.failures), test.Title))
	return r.err
}

// TestPending implements events.Listener.
func (r *SpecReporter) TestPending(test events.Test) error {
	r.counts.Pending++
	r.write(r.styles.FormatPending(r.depth+1, test.Title))
	return r.err
}

// RunEnd implements events.Listener.
func (r *SpecReporter) RunEnd() error {
	elapsed := r.clock.Since(r.start)
	r.write(r.styles.FormatRunSummary(r.counts, htmlreport.FormatDuration(elapsed)))

	if len(r.failures) > 0 {
		r.write("\n")
		for i, f := range r.failures {
			r.write(r.styles.FormatFailure(i+1, f.fullTitle, f.reason))
			r.write("\n")
		}
	}
	return r.err
}

// write appends s to the output. The first failure is kept and later writes
// are skipped.
func (r *SpecReporter) write(s string) {
	if r.err != nil {
		return
	}
	if _, err := io.WriteString(r.w, s); err != nil {
		r.err = fmt.Errorf("%w: %w", ErrReporterIO, err)
	}
}

func fullTitle(test events.Test) string {
	switch {
	case test.Package != "" && test.FullTitle != "":
		return test.Package + " " + test.FullTitle
	case test.FullTitle != "":
		return test.FullTitle
	default:
		return test.Title
	}
}
