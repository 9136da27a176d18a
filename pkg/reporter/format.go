package reporter

import "fmt"

// Format represents an output format.
type Format string

// Output formats supported by the reporter.
const (
	// FormatConsole prints the spec listing only.
	FormatConsole Format = "console"
	// FormatFile also writes JUnit XML under the output directory.
	FormatFile Format = "file"
)

// ParseFormat parses a format string, returning an error for unknown formats.
func ParseFormat(formatStr string) (Format, error) {
	switch formatStr {
	case "console", "":
		return FormatConsole, nil
	case "file":
		return FormatFile, nil
	default:
		return "", fmt.Errorf("unknown format %q; valid formats: console, file", formatStr)
	}
}

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}

// IsValid returns true if the format is a known valid format.
func (f Format) IsValid() bool {
	switch f {
	case FormatConsole, FormatFile:
		return true
	default:
		return false
	}
}
