package pretty

import (
	"fmt"
	"strings"

	"github.com/yaklabco/buildtest/pkg/coverage"
)

const summaryDividerWidth = 40

// RunCounts are the outcome totals of one test run.
type RunCounts struct {
	Passes   int
	Failures int
	Pending  int
}

// FormatRunSummary formats the block printed after the spec listing.
// Example:
//
//	3 passing (120ms)
//	1 failing
//	2 pending
func (s *Styles) FormatRunSummary(counts RunCounts, duration string) string {
	var builder strings.Builder

	builder.WriteString("\n")
	builder.WriteString("  " + s.Success.Render(fmt.Sprintf("%d passing", counts.Passes)))
	if duration != "" {
		builder.WriteString(" " + s.Dim.Render("("+duration+")"))
	}
	builder.WriteString("\n")

	if counts.Failures > 0 {
		builder.WriteString("  " + s.Failure.Render(fmt.Sprintf("%d failing", counts.Failures)) + "\n")
	}
	if counts.Pending > 0 {
		builder.WriteString("  " + s.Pending.Render(fmt.Sprintf("%d pending", counts.Pending)) + "\n")
	}

	return builder.String()
}

// FormatSummaryOneLine formats run totals as a single line.
// Example: "FAIL 3 passing, 1 failing, 2 pending (1s)".
func (s *Styles) FormatSummaryOneLine(counts RunCounts, duration string) string {
	status := s.Success.Render("PASS")
	if counts.Failures > 0 {
		status = s.Failure.Render("FAIL")
	}

	parts := []string{fmt.Sprintf("%d passing", counts.Passes)}
	if counts.Failures > 0 {
		parts = append(parts, fmt.Sprintf("%d failing", counts.Failures))
	}
	if counts.Pending > 0 {
		parts = append(parts, fmt.Sprintf("%d pending", counts.Pending))
	}

	line := status + " " + strings.Join(parts, ", ")
	if duration != "" {
		line += s.Dim.Render(" (" + duration + ")")
	}
	return line + "\n"
}

// FormatCoverageSummary formats total coverage in the familiar text-summary
// layout, one metric per line.
func (s *Styles) FormatCoverageSummary(summary coverage.Summary) string {
	var builder strings.Builder

	title := " Coverage summary "
	pad := max(0, (summaryDividerWidth-len(title))/2)
	builder.WriteString("\n")
	builder.WriteString(s.SummaryTitle.Render(strings.Repeat("=", pad) + title + strings.Repeat("=", pad)))
	builder.WriteString("\n")

	for _, row := range []struct {
		name   string
		metric coverage.Metric
	}{
		{"Statements", summary.Statements},
		{"Lines", summary.Lines},
	} {
		value := fmt.Sprintf("%6.2f%% ( %d/%d )", row.metric.Percent(), row.metric.Covered, row.metric.Total)
		builder.WriteString(fmt.Sprintf("%-12s: %s\n", row.name, s.coverageStyle(row.metric.Percent()).Render(value)))
	}

	builder.WriteString(s.SummaryTitle.Render(strings.Repeat("=", 2*pad+len(title))))
	builder.WriteString("\n")

	return builder.String()
}
