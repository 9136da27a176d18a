package cli

import (
	"errors"

	"github.com/yaklabco/buildtest/internal/configloader"
	"github.com/yaklabco/buildtest/pkg/coverage"
	"github.com/yaklabco/buildtest/pkg/discovery"
	"github.com/yaklabco/buildtest/pkg/fsutil"
	"github.com/yaklabco/buildtest/pkg/htmlreport"
	"github.com/yaklabco/buildtest/pkg/reporter"
	"github.com/yaklabco/buildtest/pkg/runner"
)

// Exit codes for buildtest.
const (
	// ExitSuccess indicates all tests passed and coverage met its thresholds.
	ExitSuccess = 0

	// ExitTestFailures indicates at least one test or package failed.
	ExitTestFailures = 1

	// ExitCoverageBelowThreshold indicates tests passed but coverage is short.
	ExitCoverageBelowThreshold = 2

	// ExitInvalidUsage indicates invalid command-line usage.
	ExitInvalidUsage = 64

	// ExitConfigError indicates configuration file errors.
	ExitConfigError = 65

	// ExitInternalError indicates an internal error.
	ExitInternalError = 70

	// ExitIOError indicates file I/O errors.
	ExitIOError = 74
)

// ErrUsage indicates the command was invoked incorrectly.
var ErrUsage = errors.New("invalid usage")

// ExitCodeFromError maps an error returned by a command to an exit code.
// Report I/O failures take precedence over test outcomes.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *configloader.ValidationError
	switch {
	case errors.Is(err, ErrUsage),
		errors.Is(err, ErrConfigExists),
		errors.Is(err, discovery.ErrNoMatch),
		errors.Is(err, discovery.ErrOutsideWorkDir),
		errors.Is(err, runner.ErrNoPackages):
		return ExitInvalidUsage
	case errors.As(err, &validationErr), errors.Is(err, configloader.ErrParse):
		return ExitConfigError
	case errors.Is(err, htmlreport.ErrIO),
		errors.Is(err, reporter.ErrReporterIO),
		errors.Is(err, fsutil.ErrPermissionDenied):
		return ExitIOError
	case errors.Is(err, runner.ErrTestsFailed):
		return ExitTestFailures
	case errors.Is(err, coverage.ErrBelowThreshold):
		return ExitCoverageBelowThreshold
	default:
		return ExitInternalError
	}
}

// IsQuiet reports whether err is an expected outcome that the reporters
// already showed, so it need not be logged again.
func IsQuiet(err error) bool {
	code := ExitCodeFromError(err)
	return code == ExitTestFailures || code == ExitCoverageBelowThreshold
}
