package pretty

import (
	"fmt"
	"strings"
)

// Outcome symbols, matching the HTML report.
const (
	SymbolPass    = "✓"
	SymbolFail    = "✗"
	SymbolPending = "–"
)

// indentUnit is the spec listing indentation per suite level.
const indentUnit = "  "

// FormatSuite formats a suite heading at the given depth.
func (s *Styles) FormatSuite(depth int, title string) string {
	return indent(depth) + s.Suite.Render(title) + "\n"
}

// FormatPass formats a passing test line. The duration is shown only when
// non-empty.
func (s *Styles) FormatPass(depth int, title, duration string) string {
	line := indent(depth) + s.Pass.Render(SymbolPass) + " " + s.TestTitle.Render(title)
	if duration != "" {
		line += " " + s.Duration.Render("("+duration+")")
	}
	return line + "\n"
}

// FormatFail formats a failing test line with its failure number.
func (s *Styles) FormatFail(depth, number int, title string) string {
	return indent(depth) + s.Fail.Render(fmt.Sprintf("%d) %s", number, title)) + "\n"
}

// FormatPending formats a skipped test line.
func (s *Styles) FormatPending(depth int, title string) string {
	return indent(depth) + s.Pending.Render(SymbolPending+" "+title) + "\n"
}

// FormatFailure formats one entry of the failure list printed after a run.
func (s *Styles) FormatFailure(number int, fullTitle, reason string) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("  %d) %s\n", number, s.Bold.Render(fullTitle)))

	reason = strings.TrimRight(reason, "\n")
	if reason == "" {
		return builder.String()
	}
	for _, line := range strings.Split(reason, "\n") {
		builder.WriteString("     " + s.Reason.Render(line) + "\n")
	}

	return builder.String()
}

func indent(depth int) string {
	if depth <= 0 {
		return ""
	}
	return strings.Repeat(indentUnit, depth)
}
