package configloader

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/language"

	"github.com/yaklabco/buildtest/pkg/config"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Field is the path to the invalid field (e.g., "coverage.mode").
	Field string

	// Value is the invalid value.
	Value any

	// Message describes the validation error.
	Message string

	// FilePath is the config file containing the error (if known).
	FilePath string

	// Line is the line number in the config file (if known).
	Line int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var parts []string

	if e.FilePath != "" {
		if e.Line > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", e.FilePath, e.Line))
		} else {
			parts = append(parts, e.FilePath)
		}
	}

	if e.Field != "" {
		parts = append(parts, e.Field)
	}

	parts = append(parts, e.Message)

	return strings.Join(parts, ": ")
}

// ValidationResult contains all validation findings.
type ValidationResult struct {
	// Errors are validation failures that prevent loading.
	Errors []ValidationError

	// Warnings are non-fatal issues (e.g., metrics Go cannot measure).
	Warnings []ValidationError
}

// Valid returns true if there are no errors.
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// HasWarnings returns true if there are any warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// AllMessages returns all error and warning messages combined.
func (r *ValidationResult) AllMessages() []string {
	messages := make([]string, 0, len(r.Errors)+len(r.Warnings))
	for _, e := range r.Errors {
		messages = append(messages, "error: "+e.Error())
	}
	for _, w := range r.Warnings {
		messages = append(messages, "warning: "+w.Error())
	}
	return messages
}

func (r *ValidationResult) addError(field string, value any, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) addWarning(field string, value any, format string, args ...any) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)})
}

// Validate checks a configuration for errors and warnings.
func Validate(cfg *config.Config) *ValidationResult {
	result := &ValidationResult{}
	if cfg == nil {
		return result
	}

	if cfg.Format != "" && !cfg.Format.IsValid() {
		result.addError("format", cfg.Format, "invalid format %q; must be one of: console, file", cfg.Format)
	}

	if cfg.Coverage.Mode != "" && !cfg.Coverage.Mode.IsValid() {
		result.addError("coverage.mode", cfg.Coverage.Mode,
			"invalid cover mode %q; must be one of: set, count, atomic", cfg.Coverage.Mode)
	}

	validateThresholds(cfg.Coverage.Thresholds, result)
	validatePatterns("tests", cfg.Tests, result)
	validatePatterns("coverage.packages", cfg.Coverage.Packages, result)

	if cfg.Report.Locale != "" {
		if _, err := language.Parse(cfg.Report.Locale); err != nil {
			result.addError("report.locale", cfg.Report.Locale, "invalid locale %q: %v", cfg.Report.Locale, err)
		}
	}

	if cfg.Coverage.Thresholds.Any() && !cfg.Coverage.Enabled() {
		result.addWarning("coverage.thresholds", cfg.Coverage.Thresholds,
			"thresholds are set but no coverage packages are configured; they will not be checked")
	}

	return result
}

// validateThresholds checks ranges and flags metrics Go profiles cannot measure.
func validateThresholds(t config.Thresholds, result *ValidationResult) {
	metrics := []struct {
		name  string
		value float64
	}{
		{"statements", t.Statements},
		{"lines", t.Lines},
		{"functions", t.Functions},
		{"branches", t.Branches},
	}

	for _, m := range metrics {
		field := "coverage.thresholds." + m.name
		if m.value < 0 || m.value > 100 {
			result.addError(field, m.value, "threshold must be between 0 and 100")
		}
	}

	if t.Functions > 0 {
		result.addWarning("coverage.thresholds.functions", t.Functions,
			"Go cover profiles do not report function coverage; threshold ignored")
	}
	if t.Branches > 0 {
		result.addWarning("coverage.thresholds.branches", t.Branches,
			"Go cover profiles do not report branch coverage; threshold ignored")
	}
}

// validatePatterns checks that glob patterns are well formed.
func validatePatterns(field string, patterns []string, result *ValidationResult) {
	for i, pattern := range patterns {
		glob := strings.TrimPrefix(pattern, "!")
		if glob == "" {
			result.addError(fmt.Sprintf("%s[%d]", field, i), pattern, "empty pattern")
			continue
		}
		if !doublestar.ValidatePattern(glob) {
			result.addError(fmt.Sprintf("%s[%d]", field, i), pattern, "invalid glob pattern %q", glob)
		}
	}
}

// ValidateWithFile validates configuration and includes file path in errors.
func ValidateWithFile(cfg *config.Config, filePath string) *ValidationResult {
	result := Validate(cfg)

	for i := range result.Errors {
		result.Errors[i].FilePath = filePath
	}
	for i := range result.Warnings {
		result.Warnings[i].FilePath = filePath
	}

	return result
}
