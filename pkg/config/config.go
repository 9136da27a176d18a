// Package config defines core configuration types for buildtest.
// These types are pure data structures with no dependency on the loader.
package config

// DefaultOutputDir is where reports and coverage artifacts are written.
const DefaultOutputDir = "testResults"

// DefaultReportTitle is the heading label of the HTML report.
const DefaultReportTitle = "Unit Tests"

// OutputFormat selects where test results go.
type OutputFormat string

const (
	// FormatConsole prints the spec listing to stdout.
	FormatConsole OutputFormat = "console"
	// FormatFile additionally writes JUnit, HTML and coverage files under the output directory.
	FormatFile OutputFormat = "file"
)

// IsValid returns true if the format is known.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatFile:
		return true
	default:
		return false
	}
}

// CoverMode is the go test -covermode value.
type CoverMode string

const (
	CoverModeSet    CoverMode = "set"
	CoverModeCount  CoverMode = "count"
	CoverModeAtomic CoverMode = "atomic"
)

// IsValid returns true if the mode is one go test accepts.
func (m CoverMode) IsValid() bool {
	switch m {
	case CoverModeSet, CoverModeCount, CoverModeAtomic:
		return true
	default:
		return false
	}
}

// Thresholds are minimum coverage percentages. Zero disables a metric.
type Thresholds struct {
	Statements float64 `yaml:"statements,omitempty"`
	Lines      float64 `yaml:"lines,omitempty"`
	Functions  float64 `yaml:"functions,omitempty"`
	Branches   float64 `yaml:"branches,omitempty"`
}

// Any reports whether at least one threshold is set.
func (t Thresholds) Any() bool {
	return t.Statements > 0 || t.Lines > 0 || t.Functions > 0 || t.Branches > 0
}

// CoverageConfig controls coverage collection.
type CoverageConfig struct {
	// Packages are the patterns to instrument. A leading "!" excludes.
	Packages []string `yaml:"packages,omitempty"`

	Mode CoverMode `yaml:"mode,omitempty"`

	Thresholds Thresholds `yaml:"thresholds,omitempty"`
}

// Included returns the non-excluded patterns.
func (c CoverageConfig) Included() []string {
	var out []string
	for _, p := range c.Packages {
		if len(p) > 0 && p[0] != '!' {
			out = append(out, p)
		}
	}
	return out
}

// Excluded returns the excluded patterns with the "!" prefix removed.
func (c CoverageConfig) Excluded() []string {
	var out []string
	for _, p := range c.Packages {
		if len(p) > 1 && p[0] == '!' {
			out = append(out, p[1:])
		}
	}
	return out
}

// Enabled reports whether coverage should be collected.
func (c CoverageConfig) Enabled() bool {
	return len(c.Included()) > 0
}

// ReportConfig controls the HTML report.
type ReportConfig struct {
	Title string `yaml:"title,omitempty"`

	// Locale is a BCP 47 tag used for numbers and the start timestamp.
	Locale string `yaml:"locale,omitempty"`

	// HTML is an explicit report path. In file format it defaults to
	// <output>/tests/index.html.
	HTML string `yaml:"html,omitempty"`
}

// Config is the root configuration structure for buildtest.
type Config struct {
	// Tests are package patterns or test file globs.
	Tests []string `yaml:"tests,omitempty"`

	Coverage CoverageConfig `yaml:"coverage,omitempty"`

	// Output is the directory for report files.
	Output string `yaml:"output,omitempty"`

	Format OutputFormat `yaml:"format,omitempty"`

	// Tags are build tags passed to go test.
	Tags []string `yaml:"tags,omitempty"`

	// Run is a go test -run pattern.
	Run string `yaml:"run,omitempty"`

	Report ReportConfig `yaml:"report,omitempty"`

	// CLI-level options (not persisted to config files).

	// Watch reruns affected packages on change.
	Watch bool `yaml:"-"`
}

// NewConfig returns a Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Output: DefaultOutputDir,
		Format: FormatConsole,
		Coverage: CoverageConfig{
			Mode: CoverModeAtomic,
		},
		Report: ReportConfig{
			Title: DefaultReportTitle,
		},
	}
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Tests = cloneStrings(c.Tests)
	clone.Tags = cloneStrings(c.Tags)
	clone.Coverage.Packages = cloneStrings(c.Coverage.Packages)
	return &clone
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
