// Package pretty provides Lipgloss-based styled output utilities.
package pretty

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Styles contains all styled renderers for CLI output.
type Styles struct {
	// Test outcome styles
	Pass    lipgloss.Style
	Fail    lipgloss.Style
	Pending lipgloss.Style

	// Spec listing components
	Suite     lipgloss.Style
	TestTitle lipgloss.Style
	Duration  lipgloss.Style
	Reason    lipgloss.Style

	// Summary styles
	SummaryTitle lipgloss.Style
	SummaryValue lipgloss.Style
	Success      lipgloss.Style
	Failure      lipgloss.Style
	Warning      lipgloss.Style

	// Coverage table styles
	TableHeader    lipgloss.Style
	TableSeparator lipgloss.Style
	CoverageHigh   lipgloss.Style
	CoverageMedium lipgloss.Style
	CoverageLow    lipgloss.Style

	// Misc
	Dim  lipgloss.Style
	Bold lipgloss.Style
}

// NewStyles creates a new Styles with the given color mode.
func NewStyles(colorEnabled bool) *Styles {
	if !colorEnabled {
		return newNoColorStyles()
	}
	return newColorStyles()
}

// newColorStyles creates styles with ANSI 256 colors.
func newColorStyles() *Styles {
	return &Styles{
		Pass:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Fail:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Pending: lipgloss.NewStyle().Foreground(lipgloss.Color("14")),

		Suite:     lipgloss.NewStyle().Bold(true),
		TestTitle: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Duration:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Reason:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),

		SummaryTitle: lipgloss.NewStyle().Bold(true),
		SummaryValue: lipgloss.NewStyle(),
		Success:      lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		Failure:      lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning:      lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),

		TableHeader:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")),
		TableSeparator: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		CoverageHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		CoverageMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		CoverageLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),

		Dim:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Bold: lipgloss.NewStyle().Bold(true),
	}
}

// newNoColorStyles creates styles with no color formatting.
func newNoColorStyles() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{
		Pass:           plain,
		Fail:           plain,
		Pending:        plain,
		Suite:          plain,
		TestTitle:      plain,
		Duration:       plain,
		Reason:         plain,
		SummaryTitle:   plain,
		SummaryValue:   plain,
		Success:        plain,
		Failure:        plain,
		Warning:        plain,
		TableHeader:    plain,
		TableSeparator: plain,
		CoverageHigh:   plain,
		CoverageMedium: plain,
		CoverageLow:    plain,
		Dim:            plain,
		Bold:           plain,
	}
}

// IsColorEnabled determines if color should be enabled based on mode and writer.
// Mode values: "auto" (default), "always", "never".
// In auto mode, color is enabled only if the writer is a TTY and NO_COLOR is not set.
func IsColorEnabled(mode string, writer io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default: // "auto"
		// https://no-color.org/
		if os.Getenv("NO_COLOR") != "" {
			return false
		}
		if f, ok := writer.(*os.File); ok {
			return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
		return false
	}
}
