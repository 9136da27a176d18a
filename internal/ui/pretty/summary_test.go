package pretty_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yaklabco/buildtest/internal/ui/pretty"
	"github.com/yaklabco/buildtest/pkg/coverage"
)

func TestFormatRunSummary(t *testing.T) {
	t.Parallel()

	styles := pretty.NewStyles(false)

	t.Run("all outcomes", func(t *testing.T) {
		t.Parallel()
		got := styles.FormatRunSummary(pretty.RunCounts{Passes: 3, Failures: 1, Pending: 2}, "1s")
		assert.Equal(t, "\n  3 passing (1s)\n  1 failing\n  2 pending\n", got)
	})

	t.Run("passes only", func(t *testing.T) {
		t.Parallel()
		got := styles.FormatRunSummary(pretty.RunCounts{}, "0ms")
		assert.Equal(t, "\n  0 passing (0ms)\n", got)
		assert.NotContains(t, got, "failing")
		assert.NotContains(t, got, "pending")
	})
}

func TestFormatSummaryOneLine(t *testing.T) {
	t.Parallel()

	styles := pretty.NewStyles(false)

	assert.Equal(t, "PASS 4 passing (2s)\n",
		styles.FormatSummaryOneLine(pretty.RunCounts{Passes: 4}, "2s"))
	assert.Equal(t, "FAIL 1 passing, 2 failing, 1 pending\n",
		styles.FormatSummaryOneLine(pretty.RunCounts{Passes: 1, Failures: 2, Pending: 1}, ""))
}

func TestFormatCoverageSummary(t *testing.T) {
	t.Parallel()

	styles := pretty.NewStyles(false)
	got := styles.FormatCoverageSummary(coverage.Summary{
		Statements: coverage.Metric{Covered: 3, Total: 4},
		Lines:      coverage.Metric{Covered: 0, Total: 0},
	})

	assert.Contains(t, got, "Coverage summary")
	assert.Contains(t, got, "Statements  :  75.00% ( 3/4 )")
	assert.Contains(t, got, "Lines       : 100.00% ( 0/0 )")
}
