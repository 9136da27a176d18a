package configloader

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/yaklabco/buildtest/pkg/config"
)

// envVarPrefix is the prefix for all buildtest environment variables.
const envVarPrefix = "BUILDTEST_"

// envFieldType represents the type of a configuration field.
type envFieldType int

const (
	envTypeString envFieldType = iota
	envTypeBool
	envTypeFloat
	envTypeSlice
)

// envMapping defines environment variable to config field mappings.
type envMapping struct {
	field       string
	typ         envFieldType
	description string
}

// envMappings maps environment variable names (without prefix) to config fields.
//
//nolint:gochecknoglobals // Read-only lookup table.
var envMappings = map[string]envMapping{
	"TESTS":                {"tests", envTypeSlice, "Comma-separated package patterns or test globs"},
	"COVER":                {"coverage.packages", envTypeSlice, "Comma-separated coverage patterns (! excludes)"},
	"COVER_MODE":           {"coverage.mode", envTypeString, "Coverage mode: set, count or atomic"},
	"THRESHOLD_STATEMENTS": {"coverage.thresholds.statements", envTypeFloat, "Minimum statement coverage percent"},
	"THRESHOLD_LINES":      {"coverage.thresholds.lines", envTypeFloat, "Minimum line coverage percent"},
	"THRESHOLD_FUNCTIONS":  {"coverage.thresholds.functions", envTypeFloat, "Minimum function coverage percent"},
	"THRESHOLD_BRANCHES":   {"coverage.thresholds.branches", envTypeFloat, "Minimum branch coverage percent"},
	"OUTPUT":               {"output", envTypeString, "Directory for report files"},
	"FORMAT":               {"format", envTypeString, "Output format: console or file"},
	"TAGS":                 {"tags", envTypeSlice, "Comma-separated build tags"},
	"RUN":                  {"run", envTypeString, "go test -run pattern"},
	"REPORT_TITLE":         {"report.title", envTypeString, "HTML report heading"},
	"REPORT_LOCALE":        {"report.locale", envTypeString, "BCP 47 locale for the HTML report"},
	"REPORT_HTML":          {"report.html", envTypeString, "Explicit HTML report path"},
	"WATCH":                {"watch", envTypeBool, "Rerun tests on change: true or false"},
}

// LoadFromEnv applies environment variable overrides to the configuration.
// Environment variables are prefixed with BUILDTEST_ (e.g., BUILDTEST_FORMAT).
func LoadFromEnv(cfg *config.Config) error {
	if cfg == nil {
		return nil
	}

	for envSuffix, mapping := range envMappings {
		envVar := envVarPrefix + envSuffix
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}

		if err := applyEnvValue(cfg, mapping, value, envVar); err != nil {
			return err
		}
	}

	return nil
}

// applyEnvValue applies a single environment variable value to the config.
func applyEnvValue(cfg *config.Config, mapping envMapping, value, envVar string) error {
	switch mapping.typ {
	case envTypeString:
		return setStringField(cfg, mapping.field, value)
	case envTypeBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &ValidationError{
				Field: envVar, Value: value,
				Message: fmt.Sprintf("invalid boolean %q (expected true/false/1/0)", value),
			}
		}
		return setBoolField(cfg, mapping.field, b)
	case envTypeFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return &ValidationError{
				Field: envVar, Value: value,
				Message: fmt.Sprintf("invalid number %q", value),
			}
		}
		return setFloatField(cfg, mapping.field, f)
	case envTypeSlice:
		return setSliceField(cfg, mapping.field, parseSliceValue(value))
	default:
		return fmt.Errorf("unknown field type for %s", envVar)
	}
}

// parseSliceValue parses a comma-separated string into a slice.
// Each element is trimmed of whitespace.
func parseSliceValue(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func setStringField(cfg *config.Config, field, value string) error {
	switch field {
	case "coverage.mode":
		cfg.Coverage.Mode = config.CoverMode(value)
	case "output":
		cfg.Output = value
	case "format":
		cfg.Format = config.OutputFormat(value)
	case "run":
		cfg.Run = value
	case "report.title":
		cfg.Report.Title = value
	case "report.locale":
		cfg.Report.Locale = value
	case "report.html":
		cfg.Report.HTML = value
	default:
		return fmt.Errorf("unknown string field: %s", field)
	}
	return nil
}

func setBoolField(cfg *config.Config, field string, value bool) error {
	switch field {
	case "watch":
		cfg.Watch = value
	default:
		return fmt.Errorf("unknown boolean field: %s", field)
	}
	return nil
}

func setFloatField(cfg *config.Config, field string, value float64) error {
	thresholds := &cfg.Coverage.Thresholds
	switch field {
	case "coverage.thresholds.statements":
		thresholds.Statements = value
	case "coverage.thresholds.lines":
		thresholds.Lines = value
	case "coverage.thresholds.functions":
		thresholds.Functions = value
	case "coverage.thresholds.branches":
		thresholds.Branches = value
	default:
		return fmt.Errorf("unknown numeric field: %s", field)
	}
	return nil
}

func setSliceField(cfg *config.Config, field string, value []string) error {
	switch field {
	case "tests":
		cfg.Tests = value
	case "coverage.packages":
		cfg.Coverage.Packages = value
	case "tags":
		cfg.Tags = value
	default:
		return fmt.Errorf("unknown slice field: %s", field)
	}
	return nil
}

// GetEnvVarName returns the full environment variable name for a config field.
func GetEnvVarName(field string) string {
	for suffix, mapping := range envMappings {
		if mapping.field == field {
			return envVarPrefix + suffix
		}
	}
	return ""
}

// ListEnvVars returns all supported environment variables with their descriptions.
func ListEnvVars() map[string]string {
	vars := make(map[string]string, len(envMappings))
	for suffix, mapping := range envMappings {
		vars[envVarPrefix+suffix] = mapping.description
	}
	return vars
}

// SortedEnvVars returns the supported environment variable names in order.
func SortedEnvVars() []string {
	names := make([]string, 0, len(envMappings))
	for suffix := range envMappings {
		names = append(names, envVarPrefix+suffix)
	}
	sort.Strings(names)
	return names
}
