package reporter_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/buildtest/pkg/events"
	"github.com/yaklabco/buildtest/pkg/reporter"
)

var epoch = time.Date(2026, time.March, 4, 15, 4, 5, 0, time.UTC)

func consoleOptions(buf *bytes.Buffer, clk *fakeclock.FakeClock) reporter.Options {
	return reporter.Options{
		Writer: buf,
		Color:  "never",
		Clock:  clk,
	}
}

// mathScenario drives the canonical one-suite run through l.
func mathScenario(t *testing.T, l events.Listener, clk *fakeclock.FakeClock) {
	t.Helper()
	root := events.Suite{Root: true}
	math := events.Suite{Title: "Math"}
	adds := events.Test{Title: "adds", FullTitle: "Math adds"}
	subtracts := events.Test{Title: "subtracts", FullTitle: "Math subtracts", Elapsed: 5 * time.Millisecond}

	require.NoError(t, l.RunStart())
	require.NoError(t, l.SuiteStart(root))
	require.NoError(t, l.SuiteStart(math))
	require.NoError(t, l.TestPass(adds))
	require.NoError(t, l.TestEnd(adds))
	require.NoError(t, l.TestFail(subtracts, "expected 1 got 2"))
	require.NoError(t, l.TestEnd(subtracts))
	require.NoError(t, l.SuiteEnd(math))
	require.NoError(t, l.SuiteEnd(root))
	clk.Increment(120 * time.Millisecond)
	require.NoError(t, l.RunEnd())
}

func TestSpecReporter_MathScenario(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	clk := fakeclock.NewFakeClock(epoch)
	spec := reporter.NewSpecReporter(consoleOptions(&buf, clk))

	mathScenario(t, spec, clk)

	want := "\n" +
		"  Math\n" +
		"    ✓ adds\n" +
		"    1) subtracts\n" +
		"\n" +
		"  1 passing (120ms)\n" +
		"  1 failing\n" +
		"\n" +
		"  1) Math subtracts\n" +
		"     expected 1 got 2\n" +
		"\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, 1, spec.Counts().Passes)
	assert.Equal(t, 1, spec.Counts().Failures)
}

func TestSpecReporter_NestingPendingAndSlow(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	clk := fakeclock.NewFakeClock(epoch)
	spec := reporter.NewSpecReporter(consoleOptions(&buf, clk))

	require.NoError(t, spec.RunStart())
	require.NoError(t, spec.SuiteStart(events.Suite{Title: "pkg/a"}))
	require.NoError(t, spec.SuiteStart(events.Suite{Title: "TestOuter"}))
	require.NoError(t, spec.TestPass(events.Test{Title: "fast", Elapsed: time.Millisecond}))
	require.NoError(t, spec.TestPass(events.Test{Title: "slow", Elapsed: 2 * time.Second}))
	require.NoError(t, spec.SuiteEnd(events.Suite{Title: "TestOuter"}))
	require.NoError(t, spec.TestPending(events.Test{Title: "TestLater"}))
	require.NoError(t, spec.SuiteEnd(events.Suite{Title: "pkg/a"}))
	require.NoError(t, spec.RunEnd())

	want := "\n" +
		"  pkg/a\n" +
		"    TestOuter\n" +
		"      ✓ fast\n" +
		"      ✓ slow (2s)\n" +
		"    – TestLater\n" +
		"\n" +
		"  2 passing (0ms)\n" +
		"  1 pending\n"
	assert.Equal(t, want, buf.String())
}

func TestSpecReporter_NoTests(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	spec := reporter.NewSpecReporter(consoleOptions(&buf, fakeclock.NewFakeClock(epoch)))

	require.NoError(t, spec.RunStart())
	require.NoError(t, spec.SuiteStart(events.Suite{Root: true}))
	require.NoError(t, spec.SuiteEnd(events.Suite{Root: true}))
	require.NoError(t, spec.RunEnd())

	assert.Equal(t, "\n  0 passing (0ms)\n", buf.String())
}

type failingWriter struct{}

var errBrokenPipe = errors.New("broken pipe")

func (failingWriter) Write([]byte) (int, error) { return 0, errBrokenPipe }

func TestSpecReporter_WriteError(t *testing.T) {
	t.Parallel()

	spec := reporter.NewSpecReporter(reporter.Options{Writer: failingWriter{}, Color: "never"})

	require.NoError(t, spec.RunStart())
	err := spec.SuiteStart(events.Suite{Title: "Math"})
	require.ErrorIs(t, err, reporter.ErrReporterIO)
	require.ErrorIs(t, err, errBrokenPipe)

	// The error is sticky.
	require.ErrorIs(t, spec.RunEnd(), reporter.ErrReporterIO)
}
