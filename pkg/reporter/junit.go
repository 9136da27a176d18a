package reporter

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"code.cloudfoundry.org/clock"

	"github.com/yaklabco/buildtest/pkg/events"
	"github.com/yaklabco/buildtest/pkg/fsutil"
)

// junitSuitesName is the name attribute of the <testsuites> root.
const junitSuitesName = "buildtest"

// ErrJUnitClosed indicates an event after the JUnit document was finished.
var ErrJUnitClosed = errors.New("junit report already closed")

// Compile-time interface check.
var _ events.Listener = (*JUnitReporter)(nil)

// JUnitReporter writes JUnit XML. Nested suites are flattened: each non-root
// suite becomes one <testsuite> named by its full path, written when the
// suite ends. Only the cases of open suites are held in memory.
type JUnitReporter struct {
	sink   io.WriteCloser
	enc    *xml.Encoder
	clock  clock.Clock
	frames []*junitFrame
	err    error
	closed bool
}

type junitFrame struct {
	name    string
	started time.Time
	cases   []junitCase
}

type junitSuite struct {
	XMLName   xml.Name    `xml:"testsuite"`
	Name      string      `xml:"name,attr"`
	Timestamp string      `xml:"timestamp,attr"`
	Tests     int         `xml:"tests,attr"`
	Failures  int         `xml:"failures,attr"`
	Skipped   int         `xml:"skipped,attr"`
	Time      string      `xml:"time,attr"`
	Cases     []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Skipped   *struct{}     `xml:"skipped,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

// NewJUnitReporter creates the XML file at path, making parent directories
// as needed.
func NewJUnitReporter(ctx context.Context, path string, opts Options) (*JUnitReporter, error) {
	file, err := fsutil.Create(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: create junit report: %w", ErrReporterIO, err)
	}
	return NewJUnitWriter(file, opts), nil
}

// NewJUnitWriter creates a JUnitReporter over an existing sink, which it
// closes at run end.
func NewJUnitWriter(sink io.WriteCloser, opts Options) *JUnitReporter {
	opts = opts.withDefaults()
	enc := xml.NewEncoder(sink)
	enc.Indent("", "  ")
	return &JUnitReporter{
		sink:  sink,
		enc:   enc,
		clock: opts.Clock,
	}
}

// RunStart implements events.Listener.
func (r *JUnitReporter) RunStart() error {
	if r.closed {
		return ErrJUnitClosed
	}
	r.write(func() error {
		if _, err := io.WriteString(r.sink, xml.Header); err != nil {
			return err
		}
		return r.enc.EncodeToken(xml.StartElement{
			Name: xml.Name{Local: "testsuites"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "name"}, Value: junitSuitesName}},
		})
	})
	return r.err
}

// SuiteStart implements events.Listener.
func (r *JUnitReporter) SuiteStart(suite events.Suite) error {
	if r.closed {
		return ErrJUnitClosed
	}
	if suite.Root {
		return r.err
	}
	name := suite.Title
	if n := len(r.frames); n > 0 {
		name = r.frames[n-1].name + " " + suite.Title
	}
	r.frames = append(r.frames, &junitFrame{name: name, started: r.clock.Now()})
	return r.err
}

// SuiteEnd implements events.Listener. It writes the suite's cases.
func (r *JUnitReporter) SuiteEnd(suite events.Suite) error {
	if r.closed {
		return ErrJUnitClosed
	}
	if !suite.Root {
		r.popSuite()
	}
	return r.err
}

// popSuite closes the innermost open suite and writes it if it has cases.
func (r *JUnitReporter) popSuite() {
	if len(r.frames) == 0 {
		return
	}
	frame := r.frames[len(r.frames)-1]
	r.frames = r.frames[:len(r.frames)-1]

	if len(frame.cases) == 0 {
		return
	}

	out := junitSuite{
		Name:      frame.name,
		Timestamp: frame.started.UTC().Format("2006-01-02T15:04:05"),
		Tests:     len(frame.cases),
		Time:      seconds(r.clock.Since(frame.started)),
		Cases:     frame.cases,
	}
	for _, c := range frame.cases {
		switch {
		case c.Failure != nil:
			out.Failures++
		case c.Skipped != nil:
			out.Skipped++
		}
	}
	r.write(func() error { return r.enc.Encode(out) })
}

// TestEnd implements events.Listener.
func (r *JUnitReporter) TestEnd(events.Test) error {
	if r.closed {
		return ErrJUnitClosed
	}
	return r.err
}

// TestPass implements events.Listener.
func (r *JUnitReporter) TestPass(test events.Test) error {
	return r.record(test, nil, false)
}

// TestFail implements events.Listener.
func (r *JUnitReporter) TestFail(test events.Test, reason string) error {
	return r.record(test, &junitFailure{Message: firstLine(reason), Body: reason}, false)
}

// TestPending implements events.Listener.
func (r *JUnitReporter) TestPending(test events.Test) error {
	return r.record(test, nil, true)
}

// RunEnd implements events.Listener. It closes the document and the sink.
func (r *JUnitReporter) RunEnd() error {
	if r.closed {
		return ErrJUnitClosed
	}
	r.closed = true

	// Unterminated suites still get their cases written.
	for len(r.frames) > 0 {
		r.popSuite()
	}

	r.write(func() error {
		if err := r.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "testsuites"}}); err != nil {
			return err
		}
		if err := r.enc.Flush(); err != nil {
			return err
		}
		_, err := io.WriteString(r.sink, "\n")
		return err
	})

	if err := r.sink.Close(); err != nil && r.err == nil {
		r.err = fmt.Errorf("%w: close junit report: %w", ErrReporterIO, err)
	}
	return r.err
}

func (r *JUnitReporter) record(test events.Test, fail *junitFailure, skipped bool) error {
	if r.closed {
		return ErrJUnitClosed
	}

	// Cases outside any suite get a suite of their own, named by package.
	orphan := len(r.frames) == 0
	if orphan {
		r.frames = append(r.frames, &junitFrame{name: test.Package, started: r.clock.Now()})
	}
	frame := r.frames[len(r.frames)-1]

	c := junitCase{
		Name:      test.Title,
		Classname: frame.name,
		Time:      seconds(test.Elapsed),
		Failure:   fail,
	}
	if skipped {
		c.Skipped = &struct{}{}
	}
	frame.cases = append(frame.cases, c)

	if orphan {
		r.popSuite()
	}
	return r.err
}

// write runs fn unless an earlier write failed, keeping the first error.
func (r *JUnitReporter) write(fn func() error) {
	if r.err != nil {
		return
	}
	if err := fn(); err != nil {
		r.err = fmt.Errorf("%w: write junit report: %w", ErrReporterIO, err)
	}
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
