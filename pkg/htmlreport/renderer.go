// Package htmlreport renders test lifecycle events into a single HTML
// document, written incrementally as events arrive.
//
// Memory use is proportional to suite nesting depth, not to the number of
// tests: each fragment goes straight to the sink. The pass/fail heading and
// the summary are filled in by a trailing script, since the outcome is only
// known at run end.
package htmlreport

import (
	"context"
	"errors"
	"fmt"
	"html"
	"html/template"
	"io"
	"strings"

	"code.cloudfoundry.org/clock"
	"github.com/charmbracelet/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/yaklabco/buildtest/pkg/events"
	"github.com/yaklabco/buildtest/pkg/fsutil"
)

// DefaultTitle is the heading label used when no title is configured.
const DefaultTitle = "Unit Tests"

// Sentinel errors for error categorization via errors.Is.
var (
	// ErrIO indicates the report could not be created or written.
	ErrIO = errors.New("report i/o")

	// ErrUnbalanced indicates a suite end without a matching suite start.
	ErrUnbalanced = errors.New("suite end without matching suite start")

	// ErrClosed indicates an event after the run already ended.
	ErrClosed = errors.New("report already closed")
)

// Compile-time interface check.
var _ events.Listener = (*Renderer)(nil)

// Renderer is an events.Listener that writes an HTML report.
// It must be driven from a single goroutine.
type Renderer struct {
	sink    io.WriteCloser
	clock   clock.Clock
	title   string
	locale  language.Tag
	printer *message.Printer
	logger  *log.Logger

	stats  RunStatistics
	frames []suiteFrame
	err    error
	closed bool
}

// suiteFrame is one open, non-root suite.
type suiteFrame struct {
	title string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock sets the clock used for the start and end timestamps.
func WithClock(c clock.Clock) Option {
	return func(r *Renderer) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithTitle sets the heading label.
func WithTitle(title string) Option {
	return func(r *Renderer) {
		if title != "" {
			r.title = title
		}
	}
}

// WithLocale sets the locale used for numbers and the start timestamp.
func WithLocale(tag language.Tag) Option {
	return func(r *Renderer) {
		r.locale = tag
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates the report file at path, making parent directories as needed.
func New(ctx context.Context, path string, opts ...Option) (*Renderer, error) {
	file, err := fsutil.Create(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: create report: %w", ErrIO, err)
	}
	r := NewWriter(file, opts...)
	r.logger.Debug("html report opened", "path", path)
	return r, nil
}

// NewWriter creates a Renderer over an existing sink. The renderer becomes
// the sink's sole writer and closes it at run end.
func NewWriter(sink io.WriteCloser, opts ...Option) *Renderer {
	r := &Renderer{
		sink:   sink,
		clock:  clock.NewClock(),
		title:  DefaultTitle,
		locale: language.Und,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.printer = message.NewPrinter(r.locale)
	return r
}

// Attach subscribes the renderer to an event source.
func (r *Renderer) Attach(src events.Source) {
	src.Subscribe(r)
}

// Stats returns a copy of the statistics gathered so far.
func (r *Renderer) Stats() RunStatistics {
	return r.stats
}

// Depth returns the number of open non-root suites.
func (r *Renderer) Depth() int {
	return len(r.frames)
}

// RunStart implements events.Listener.
func (r *Renderer) RunStart() error {
	if r.closed {
		return ErrClosed
	}
	r.stats.Start = r.clock.Now()

	r.write("<!DOCTYPE html>\n")
	r.write("<html><head><meta charset=\"utf-8\">\n")
	r.write("<title>" + escape(r.title) + "</title>\n")
	r.write("<style>\n")
	r.write("body { font-family: Helvetica Neue, Helvetica, Arial; font-size: 14px; color: #333; }\n")
	r.write("dl { padding-left: 25px; }\n")
	r.write("pre { margin: 0; white-space: pre-wrap; }\n")
	r.write(".quiet { color: rgba(0,0,0,0.5); }\n")
	r.write(".pass { color: green; }\n")
	r.write(".fail { color: red; }\n")
	r.write(".pending { color: #c09853; }\n")
	r.write("</style></head><body>\n")
	r.write("<h2>" + escape(r.title) + ": <span id=\"unit-tests-header\"></span></h2>\n")
	r.write("<div id=\"summary\"></div>\n")
	return r.err
}

// SuiteStart implements events.Listener. The root suite is not rendered.
func (r *Renderer) SuiteStart(suite events.Suite) error {
	if r.closed {
		return ErrClosed
	}
	if suite.Root {
		return r.err
	}

	r.stats.Suites++
	r.frames = append(r.frames, suiteFrame{title: suite.Title})

	r.write(r.indent(r.sectionLevel()) + "<section class=\"suite\">\n")
	r.write(r.indent(r.bodyLevel()) + "<h3>" + escape(suite.Title) + "</h3>\n")
	r.write(r.indent(r.bodyLevel()) + "<dl>\n")
	return r.err
}

// SuiteEnd implements events.Listener. A non-root suite end with no open
// suite returns ErrUnbalanced and writes nothing.
func (r *Renderer) SuiteEnd(suite events.Suite) error {
	if r.closed {
		return ErrClosed
	}
	if suite.Root {
		return r.err
	}
	if len(r.frames) == 0 {
		return fmt.Errorf("%w: %q", ErrUnbalanced, suite.Title)
	}

	r.write(r.indent(r.bodyLevel()) + "</dl>\n")
	r.write(r.indent(r.sectionLevel()) + "</section>\n")
	r.frames = r.frames[:len(r.frames)-1]
	return r.err
}

// TestEnd implements events.Listener.
func (r *Renderer) TestEnd(events.Test) error {
	if r.closed {
		return ErrClosed
	}
	r.stats.Tests++
	return r.err
}

// TestPass implements events.Listener.
func (r *Renderer) TestPass(test events.Test) error {
	if r.closed {
		return ErrClosed
	}
	r.stats.Passes++
	r.write(r.indent(r.testLevel()) +
		"<dt><span class=\"pass\">&#10004; </span><span class=\"quiet\">" + escape(test.Title) + "</span></dt>\n")
	return r.err
}

// TestFail implements events.Listener.
func (r *Renderer) TestFail(test events.Test, reason string) error {
	if r.closed {
		return ErrClosed
	}
	r.stats.Failures++
	r.write(r.indent(r.testLevel()) +
		"<dt><span class=\"fail\">&#10006; </span>" + escape(test.Title) + "</dt>\n")
	r.write(r.indent(r.testLevel()) +
		"<dd class=\"fail\"><pre>" + escape(reason) + "</pre></dd>\n")
	return r.err
}

// TestPending implements events.Listener.
func (r *Renderer) TestPending(test events.Test) error {
	if r.closed {
		return ErrClosed
	}
	r.stats.Pending++
	r.write(r.indent(r.testLevel()) +
		"<dt><span class=\"pending\">&#8211; </span><span class=\"quiet\">" + escape(test.Title) + "</span></dt>\n")
	return r.err
}

// RunEnd implements events.Listener. It writes the status script and the
// document end, then closes the sink. The sink is closed even when an
// earlier write failed.
func (r *Renderer) RunEnd() error {
	if r.closed {
		return ErrClosed
	}
	r.closed = true

	r.stats.End = r.clock.Now()
	r.stats.Duration = r.stats.End.Sub(r.stats.Start)

	if len(r.frames) > 0 {
		r.logger.Warn("run ended with open suites", "open", len(r.frames), "innermost", r.frames[len(r.frames)-1].title)
	}

	status, class := "PASSED", "pass"
	if r.stats.Failures > 0 {
		status, class = "FAILED", "fail"
	}

	r.write("<script>\n")
	r.write("var header = document.getElementById(\"unit-tests-header\");\n")
	r.write("header.textContent = \"" + status + "\";\n")
	r.write("header.className = \"" + class + "\";\n")
	r.write("document.getElementById(\"summary\").innerHTML = \"" + template.JSEscapeString(r.summary()) + "\";\n")
	r.write("</script>\n")
	r.write("</body>\n</html>\n")

	if err := r.sink.Close(); err != nil && r.err == nil {
		r.err = fmt.Errorf("%w: close report: %w", ErrIO, err)
	}
	return r.err
}

// summary builds the HTML fragment shown under the heading.
func (r *Renderer) summary() string {
	var b strings.Builder
	b.WriteString("<div>Started: " + escape(FormatTimestamp(r.stats.Start, r.locale)) + "</div>")
	b.WriteString("<div class=\"pass\">" +
		r.printer.Sprintf("%d passing", r.stats.Passes) +
		" (" + FormatDuration(r.stats.Duration) + ")</div>")
	if r.stats.Failures > 0 {
		b.WriteString("<div class=\"fail\">" + r.printer.Sprintf("%d failing", r.stats.Failures) + "</div>")
	}
	if r.stats.Pending > 0 {
		b.WriteString("<div class=\"pending\">" + r.printer.Sprintf("%d pending", r.stats.Pending) + "</div>")
	}
	b.WriteString("<div class=\"quiet\">" + r.printer.Sprintf("%d suites, %d tests", r.stats.Suites, r.stats.Tests) + "</div>")
	return b.String()
}

// write appends s to the sink. The first failure is kept and later writes
// are skipped.
func (r *Renderer) write(s string) {
	if r.err != nil {
		return
	}
	if _, err := io.WriteString(r.sink, s); err != nil {
		r.err = fmt.Errorf("%w: write report: %w", ErrIO, err)
	}
}

// Indentation levels, in units of two spaces, derived from the frame stack.
func (r *Renderer) sectionLevel() int { return 2 * len(r.frames) }
func (r *Renderer) bodyLevel() int    { return 2*len(r.frames) + 1 }
func (r *Renderer) testLevel() int    { return 2*len(r.frames) + 2 }

func (r *Renderer) indent(level int) string {
	return strings.Repeat("  ", level)
}

func escape(s string) string {
	return html.EscapeString(s)
}
