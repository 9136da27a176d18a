package cli_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yaklabco/buildtest/internal/cli"
	"github.com/yaklabco/buildtest/internal/configloader"
	"github.com/yaklabco/buildtest/pkg/coverage"
	"github.com/yaklabco/buildtest/pkg/discovery"
	"github.com/yaklabco/buildtest/pkg/fsutil"
	"github.com/yaklabco/buildtest/pkg/htmlreport"
	"github.com/yaklabco/buildtest/pkg/reporter"
	"github.com/yaklabco/buildtest/pkg/runner"
)

func TestExitCodeFromError(t *testing.T) {
	t.Parallel()

	wrap := func(err error) error { return fmt.Errorf("context: %w", err) }

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, cli.ExitSuccess},
		{"tests failed", wrap(runner.ErrTestsFailed), cli.ExitTestFailures},
		{"coverage", wrap(coverage.ErrBelowThreshold), cli.ExitCoverageBelowThreshold},
		{"usage", cli.ErrNoTests, cli.ExitInvalidUsage},
		{"no match", wrap(discovery.ErrNoMatch), cli.ExitInvalidUsage},
		{"no packages", runner.ErrNoPackages, cli.ExitInvalidUsage},
		{"validation", wrap(&configloader.ValidationError{Field: "format"}), cli.ExitConfigError},
		{"parse", wrap(configloader.ErrParse), cli.ExitConfigError},
		{"html io", wrap(htmlreport.ErrIO), cli.ExitIOError},
		{"junit io", wrap(reporter.ErrReporterIO), cli.ExitIOError},
		{"permission", wrap(fsutil.ErrPermissionDenied), cli.ExitIOError},
		{"io wins over failures", errors.Join(runner.ErrTestsFailed, htmlreport.ErrIO), cli.ExitIOError},
		{"failures win over coverage", errors.Join(coverage.ErrBelowThreshold, runner.ErrTestsFailed), cli.ExitTestFailures},
		{"unknown", errors.New("boom"), cli.ExitInternalError},
		{"killed go test", wrap(runner.ErrCommand), cli.ExitInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cli.ExitCodeFromError(tt.err))
		})
	}
}

func TestIsQuiet(t *testing.T) {
	t.Parallel()

	assert.True(t, cli.IsQuiet(runner.ErrTestsFailed))
	assert.True(t, cli.IsQuiet(coverage.ErrBelowThreshold))
	assert.False(t, cli.IsQuiet(htmlreport.ErrIO))
	assert.False(t, cli.IsQuiet(errors.New("boom")))
}
