package configloader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/buildtest/pkg/config"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BUILDTEST_TESTS", "./pkg/..., ./cmd/...")
	t.Setenv("BUILDTEST_COVER", "./...,!**/mocks/**")
	t.Setenv("BUILDTEST_COVER_MODE", "count")
	t.Setenv("BUILDTEST_THRESHOLD_LINES", "72.5")
	t.Setenv("BUILDTEST_OUTPUT", "out")
	t.Setenv("BUILDTEST_RUN", "TestX")
	t.Setenv("BUILDTEST_REPORT_TITLE", "Nightly")
	t.Setenv("BUILDTEST_REPORT_LOCALE", "en-GB")
	t.Setenv("BUILDTEST_REPORT_HTML", "r.html")
	t.Setenv("BUILDTEST_WATCH", "1")

	cfg := config.NewConfig()
	require.NoError(t, LoadFromEnv(cfg))

	assert.Equal(t, []string{"./pkg/...", "./cmd/..."}, cfg.Tests)
	assert.Equal(t, []string{"./...", "!**/mocks/**"}, cfg.Coverage.Packages)
	assert.Equal(t, config.CoverModeCount, cfg.Coverage.Mode)
	assert.InDelta(t, 72.5, cfg.Coverage.Thresholds.Lines, 0.001)
	assert.Equal(t, "out", cfg.Output)
	assert.Equal(t, "TestX", cfg.Run)
	assert.Equal(t, config.ReportConfig{Title: "Nightly", Locale: "en-GB", HTML: "r.html"}, cfg.Report)
	assert.True(t, cfg.Watch)
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bool", "BUILDTEST_WATCH", "maybe"},
		{"number", "BUILDTEST_THRESHOLD_STATEMENTS", "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			err := LoadFromEnv(config.NewConfig())
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.key, verr.Field)
		})
	}
}

func TestLoadFromEnv_NilConfig(t *testing.T) {
	t.Parallel()
	assert.NoError(t, LoadFromEnv(nil))
}

func TestEnvVarNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BUILDTEST_FORMAT", GetEnvVarName("format"))
	assert.Equal(t, "BUILDTEST_COVER", GetEnvVarName("coverage.packages"))
	assert.Empty(t, GetEnvVarName("nope"))

	names := SortedEnvVars()
	assert.Len(t, names, len(ListEnvVars()))
	assert.IsNonDecreasing(t, names)
	for _, name := range names {
		assert.NotEmpty(t, ListEnvVars()[name], name)
	}
}

func TestParseSliceValue(t *testing.T) {
	t.Parallel()

	assert.Nil(t, parseSliceValue(""))
	assert.Equal(t, []string{"a", "b"}, parseSliceValue(" a , ,b "))
}
