package configloader

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yaklabco/buildtest/pkg/config"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		mutate       func(*config.Config)
		wantErrors   []string
		wantWarnings []string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*config.Config) {},
		},
		{
			name:       "unknown format",
			mutate:     func(c *config.Config) { c.Format = "junit" },
			wantErrors: []string{"format"},
		},
		{
			name:       "unknown cover mode",
			mutate:     func(c *config.Config) { c.Coverage.Mode = "branch" },
			wantErrors: []string{"coverage.mode"},
		},
		{
			name: "threshold out of range",
			mutate: func(c *config.Config) {
				c.Coverage.Packages = []string{"./..."}
				c.Coverage.Thresholds = config.Thresholds{Statements: 101, Lines: -1}
			},
			wantErrors: []string{"coverage.thresholds.statements", "coverage.thresholds.lines"},
		},
		{
			name: "unmeasurable metrics warn",
			mutate: func(c *config.Config) {
				c.Coverage.Packages = []string{"./..."}
				c.Coverage.Thresholds = config.Thresholds{Functions: 80, Branches: 70}
			},
			wantWarnings: []string{"coverage.thresholds.functions", "coverage.thresholds.branches"},
		},
		{
			name:         "thresholds without coverage",
			mutate:       func(c *config.Config) { c.Coverage.Thresholds.Lines = 50 },
			wantWarnings: []string{"coverage.thresholds"},
		},
		{
			name:       "bad glob",
			mutate:     func(c *config.Config) { c.Tests = []string{"pkg/[a-"} },
			wantErrors: []string{"tests[0]"},
		},
		{
			name:       "empty exclusion",
			mutate:     func(c *config.Config) { c.Coverage.Packages = []string{"./...", "!"} },
			wantErrors: []string{"coverage.packages[1]"},
		},
		{
			name:       "bad locale",
			mutate:     func(c *config.Config) { c.Report.Locale = "not a locale!" },
			wantErrors: []string{"report.locale"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.NewConfig()
			tt.mutate(cfg)

			result := Validate(cfg)
			assert.Equal(t, tt.wantErrors, fields(result.Errors))
			assert.Equal(t, tt.wantWarnings, fields(result.Warnings))
			assert.Equal(t, len(tt.wantErrors) == 0, result.Valid())
			assert.Equal(t, len(tt.wantWarnings) > 0, result.HasWarnings())
		})
	}
}

func TestValidateWithFile(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.Format = "xml"

	result := ValidateWithFile(cfg, ".buildtest.yml")
	assert.Equal(t, []string{"error: .buildtest.yml: format: invalid format \"xml\"; must be one of: console, file"},
		result.AllMessages())
}

func TestValidateNil(t *testing.T) {
	t.Parallel()
	assert.True(t, Validate(nil).Valid())
}

func fields(errs []ValidationError) []string {
	var out []string
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}
