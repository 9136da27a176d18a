package config

import (
	"bytes"
	"fmt"
)

// TemplateOptions controls configuration template generation.
type TemplateOptions struct {
	// Full writes every setting uncommented with its default value.
	// If false, generates a minimal template.
	Full bool
}

// GenerateTemplate creates a .buildtest.yml template.
func GenerateTemplate(opts TemplateOptions) []byte {
	if opts.Full {
		return generateFullTemplate()
	}
	return generateMinimalTemplate()
}

// generateMinimalTemplate creates a minimal commented template.
func generateMinimalTemplate() []byte {
	var buf bytes.Buffer

	buf.WriteString(DefaultTemplateHeader())
	buf.WriteString(`

# Packages or test file globs to run
tests:
  - ./...

# Coverage collection. Prefix a pattern with ! to exclude it.
# coverage:
#   packages:
#     - ./...
#     - "!**/mocks/**"
#   mode: atomic
#   thresholds:
#     statements: 80
#     lines: 80

# Output: console, or file to also write JUnit and HTML reports
# format: console
# output: testResults
`)

	return buf.Bytes()
}

// generateFullTemplate lists every setting with its default.
func generateFullTemplate() []byte {
	defaults := NewConfig()

	var buf bytes.Buffer
	buf.WriteString(DefaultTemplateHeader())
	buf.WriteString(" - Full Template\n")
	buf.WriteString(`#
# Uncomment and modify settings as needed.

# Packages or test file globs to run
tests:
  - ./...

# Coverage collection. Prefix a pattern with ! to exclude it.
coverage:
  packages: []
`)
	fmt.Fprintf(&buf, "  # set, count or atomic\n  mode: %s\n", defaults.Coverage.Mode)
	buf.WriteString(`  # Minimum percentages; 0 disables a metric.
  # functions and branches are accepted but Go profiles cannot measure them.
  thresholds:
    statements: 0
    lines: 0

`)
	fmt.Fprintf(&buf, "# console or file\nformat: %s\n\n", defaults.Format)
	fmt.Fprintf(&buf, "# Directory for reports and coverage output\noutput: %s\n\n", defaults.Output)
	buf.WriteString(`# Build tags passed to go test
tags: []

# go test -run pattern
run: ""

report:
`)
	fmt.Fprintf(&buf, "  title: %s\n", defaults.Report.Title)
	buf.WriteString(`  # BCP 47 tag for numbers and timestamps, e.g. en-US
  locale: ""
  # Explicit HTML report path
  html: ""
`)

	return buf.Bytes()
}

// DefaultTemplateHeader returns the default header for generated configs.
func DefaultTemplateHeader() string {
	return `# buildtest configuration
# See: https://github.com/yaklabco/buildtest`
}
