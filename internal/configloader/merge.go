package configloader

import "github.com/yaklabco/buildtest/pkg/config"

// merge combines two configurations, with override taking precedence over base.
// The merge follows these rules:
//   - Scalar values: override overwrites base if override is non-zero
//   - Slices: override replaces base entirely if override is non-nil
//   - Thresholds: merged per metric
func merge(base, override *config.Config) *config.Config {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	result := base.Clone()

	if override.Output != "" {
		result.Output = override.Output
	}
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.Run != "" {
		result.Run = override.Run
	}

	// false is the zero value, so a config file cannot unset watch.
	if override.Watch {
		result.Watch = true
	}

	if override.Tests != nil {
		result.Tests = override.Tests
	}
	if override.Tags != nil {
		result.Tags = override.Tags
	}

	result.Coverage = mergeCoverage(result.Coverage, override.Coverage)
	result.Report = mergeReport(result.Report, override.Report)

	return result
}

func mergeCoverage(base, override config.CoverageConfig) config.CoverageConfig {
	result := base

	if override.Packages != nil {
		result.Packages = override.Packages
	}
	if override.Mode != "" {
		result.Mode = override.Mode
	}

	t := override.Thresholds
	if t.Statements != 0 {
		result.Thresholds.Statements = t.Statements
	}
	if t.Lines != 0 {
		result.Thresholds.Lines = t.Lines
	}
	if t.Functions != 0 {
		result.Thresholds.Functions = t.Functions
	}
	if t.Branches != 0 {
		result.Thresholds.Branches = t.Branches
	}

	return result
}

func mergeReport(base, override config.ReportConfig) config.ReportConfig {
	result := base

	if override.Title != "" {
		result.Title = override.Title
	}
	if override.Locale != "" {
		result.Locale = override.Locale
	}
	if override.HTML != "" {
		result.HTML = override.HTML
	}

	return result
}

// MergeAll merges multiple configurations in order, with later configs taking precedence.
func MergeAll(configs ...*config.Config) *config.Config {
	if len(configs) == 0 {
		return nil
	}

	result := configs[0]
	for i := 1; i < len(configs); i++ {
		result = merge(result, configs[i])
	}
	return result
}
