package pretty

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yaklabco/buildtest/pkg/coverage"
)

// Table formatting constants.
const (
	tablePadding      = 2
	percentWidth      = 8
	countWidth        = 11
	minFileWidth      = 20
	heavySeparator    = "="
	lightSeparator    = "-"
	defaultTermWidth  = 100
	totalRowLabel     = "All files"
	highWatermark     = 80.0
	mediumWatermark   = 50.0
	percentColumnHead = "% STMTS"
	linesColumnHead   = "% LINES"
	countColumnHead   = "STMTS"
)

// CoverageTable formats per-file coverage as a styled table.
type CoverageTable struct {
	styles    *Styles
	termWidth int
}

// NewCoverageTable creates a new coverage table formatter.
func NewCoverageTable(styles *Styles, termWidth int) *CoverageTable {
	if termWidth <= 0 {
		termWidth = defaultTermWidth
	}
	return &CoverageTable{
		styles:    styles,
		termWidth: termWidth,
	}
}

// Format renders the table with one row per file and a totals row.
func (t *CoverageTable) Format(summary coverage.Summary) string {
	if len(summary.Files) == 0 {
		return ""
	}

	fileWidth := t.fileColumnWidth(summary)

	var builder strings.Builder

	builder.WriteString(t.styles.TableHeader.Render(fmt.Sprintf(" %-*s  %*s  %*s  %*s",
		fileWidth, "FILE",
		percentWidth, percentColumnHead,
		percentWidth, linesColumnHead,
		countWidth, countColumnHead,
	)))
	builder.WriteString("\n")
	builder.WriteString(t.separator(fileWidth, heavySeparator))
	builder.WriteString("\n")

	for _, file := range summary.Files {
		builder.WriteString(t.formatRow(truncateFilePath(file.Path, fileWidth), fileWidth, file.Statements, file.Lines))
		builder.WriteString("\n")
	}

	builder.WriteString(t.separator(fileWidth, lightSeparator))
	builder.WriteString("\n")
	builder.WriteString(t.formatRow(totalRowLabel, fileWidth, summary.Statements, summary.Lines))
	builder.WriteString("\n")
	builder.WriteString(t.separator(fileWidth, heavySeparator))
	builder.WriteString("\n")

	return builder.String()
}

// fileColumnWidth sizes the FILE column to its content, constrained to the
// terminal width.
func (t *CoverageTable) fileColumnWidth(summary coverage.Summary) int {
	width := max(minFileWidth, len(totalRowLabel))
	for _, file := range summary.Files {
		width = max(width, len(file.Path))
	}

	fixed := 2*percentWidth + countWidth + tablePadding*4
	if width+fixed > t.termWidth {
		width = max(minFileWidth, t.termWidth-fixed)
	}
	return width
}

func (t *CoverageTable) formatRow(label string, fileWidth int, stmts, lines coverage.Metric) string {
	stmtPct := fmt.Sprintf("%*.2f", percentWidth, stmts.Percent())
	linePct := fmt.Sprintf("%*.2f", percentWidth, lines.Percent())
	counts := fmt.Sprintf("%*s", countWidth, fmt.Sprintf("%d/%d", stmts.Covered, stmts.Total))

	return fmt.Sprintf(" %-*s  %s  %s  %s",
		fileWidth, label,
		t.styles.coverageStyle(stmts.Percent()).Render(stmtPct),
		t.styles.coverageStyle(lines.Percent()).Render(linePct),
		t.styles.Dim.Render(counts),
	)
}

func (t *CoverageTable) separator(fileWidth int, char string) string {
	total := fileWidth + 2*percentWidth + countWidth + tablePadding*4
	return t.styles.TableSeparator.Render(strings.Repeat(char, total))
}

// coverageStyle picks the watermark style for a percentage.
func (s *Styles) coverageStyle(percent float64) lipgloss.Style {
	switch {
	case percent >= highWatermark:
		return s.CoverageHigh
	case percent >= mediumWatermark:
		return s.CoverageMedium
	default:
		return s.CoverageLow
	}
}

// truncateFilePath truncates a file path, preserving the end (filename) rather than beginning.
func truncateFilePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	if maxLen <= 3 {
		return path[len(path)-maxLen:]
	}
	return "..." + path[len(path)-maxLen+3:]
}
