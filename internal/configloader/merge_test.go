package configloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/buildtest/pkg/config"
)

func TestMerge(t *testing.T) {
	t.Parallel()

	t.Run("nil handling", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		assert.Same(t, cfg, merge(nil, cfg))
		assert.Same(t, cfg, merge(cfg, nil))
	})

	t.Run("zero values do not override", func(t *testing.T) {
		t.Parallel()
		base := config.NewConfig()
		base.Tests = []string{"./..."}
		base.Coverage.Thresholds.Lines = 50

		got := merge(base, &config.Config{})
		assert.Equal(t, base, got)
		assert.NotSame(t, base, got)
	})

	t.Run("override wins field by field", func(t *testing.T) {
		t.Parallel()
		base := config.NewConfig()
		base.Tests = []string{"./..."}
		base.Coverage.Packages = []string{"./pkg/..."}
		base.Coverage.Thresholds = config.Thresholds{Statements: 80, Lines: 70}

		override := &config.Config{
			Tags: []string{"integration"},
			Coverage: config.CoverageConfig{
				Mode:       config.CoverModeSet,
				Thresholds: config.Thresholds{Lines: 90},
			},
			Report: config.ReportConfig{Locale: "en-US"},
			Watch:  true,
		}

		got := merge(base, override)
		require.NotNil(t, got)
		assert.Equal(t, []string{"./..."}, got.Tests)
		assert.Equal(t, []string{"integration"}, got.Tags)
		assert.Equal(t, []string{"./pkg/..."}, got.Coverage.Packages)
		assert.Equal(t, config.CoverModeSet, got.Coverage.Mode)
		assert.Equal(t, config.Thresholds{Statements: 80, Lines: 90}, got.Coverage.Thresholds)
		assert.Equal(t, config.DefaultReportTitle, got.Report.Title)
		assert.Equal(t, "en-US", got.Report.Locale)
		assert.True(t, got.Watch)
	})

	t.Run("base is not mutated", func(t *testing.T) {
		t.Parallel()
		base := config.NewConfig()
		base.Tags = []string{"a"}

		got := merge(base, &config.Config{Output: "elsewhere"})
		got.Tags[0] = "b"
		assert.Equal(t, "a", base.Tags[0])
		assert.Equal(t, config.DefaultOutputDir, base.Output)
	})
}

func TestMergeAll(t *testing.T) {
	t.Parallel()

	assert.Nil(t, MergeAll())

	got := MergeAll(
		config.NewConfig(),
		&config.Config{Output: "one"},
		&config.Config{Output: "two", Run: "TestA"},
	)
	assert.Equal(t, "two", got.Output)
	assert.Equal(t, "TestA", got.Run)
}
