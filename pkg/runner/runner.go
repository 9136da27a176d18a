package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"code.cloudfoundry.org/clock"
	"golang.org/x/sync/errgroup"

	"github.com/yaklabco/buildtest/internal/logging"
	"github.com/yaklabco/buildtest/pkg/discovery"
	"github.com/yaklabco/buildtest/pkg/events"
	"github.com/yaklabco/buildtest/pkg/fsutil"
)

// Sentinel errors for error categorization via errors.Is.
var (
	// ErrTestsFailed indicates go test exited with a non-zero status.
	ErrTestsFailed = errors.New("tests failed")

	// ErrNoPackages indicates the patterns resolved to nothing.
	ErrNoPackages = errors.New("no packages to test")

	// ErrCommand indicates go test could not be started or waited on.
	ErrCommand = errors.New("go test command")
)

// rootSuite wraps every package suite of a run.
//
//nolint:gochecknoglobals // Read-only value.
var rootSuite = events.Suite{Root: true}

// Runner executes go test and drives listeners with the resulting events.
type Runner struct {
	clock clock.Clock
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock sets the clock used to time the run.
func WithClock(c clock.Clock) Option {
	return func(r *Runner) {
		if c != nil {
			r.clock = c
		}
	}
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{clock: clock.NewClock()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Args translates opts into go test arguments. opts.Patterns is used as the
// package list as is.
func Args(opts Options) []string {
	args := []string{"test", "-json"}
	if len(opts.Tags) > 0 {
		args = append(args, "-tags="+strings.Join(opts.Tags, ","))
	}
	if opts.Run != "" {
		args = append(args, "-run="+opts.Run)
	}
	if cov := opts.coverage(); cov.Enabled() {
		args = append(args,
			"-covermode="+string(opts.coverMode()),
			"-coverprofile="+filepath.ToSlash(opts.ProfilePath()),
			"-coverpkg="+strings.Join(cov.Included(), ","),
		)
	}
	return append(args, opts.Patterns...)
}

// Run resolves opts.Patterns, runs go test and emits the run to listeners.
//
// Once the run has started, each listener is isolated from the others: an
// error from one stops delivery to that listener only. Every listener gets
// SuiteEnd for each suite it still has open, then RunEnd, even when go test
// or the stream fails, so reports are always terminated. A non-zero go test
// exit returns the Result together with an error wrapping ErrTestsFailed; a
// go test killed by a signal returns an error wrapping ErrCommand.
func (r *Runner) Run(ctx context.Context, opts Options, listeners ...events.Listener) (*Result, error) {
	logger := logging.FromContext(ctx)

	pkgs, err := discovery.Resolve(ctx, opts.WorkingDir, opts.Patterns)
	if err != nil {
		return nil, fmt.Errorf("resolve test patterns: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, ErrNoPackages
	}
	opts.Patterns = pkgs

	result := &Result{Packages: pkgs}
	if opts.CoverEnabled() {
		result.Profile = r.resolve(opts.WorkingDir, opts.ProfilePath())
		if err := fsutil.EnsureParentDir(result.Profile); err != nil {
			return nil, fmt.Errorf("prepare coverage directory: %w", err)
		}
	}

	stats := &counter{clock: r.clock}
	guards := guardAll(append([]events.Listener{stats}, listeners...))
	bus := events.NewBus()
	for _, g := range guards {
		bus.Subscribe(g)
	}

	_ = bus.RunStart()
	_ = bus.SuiteStart(rootSuite)
	code, execErr := r.exec(ctx, opts, bus)
	result.ExitCode = code

	var errs []error
	if execErr != nil {
		errs = append(errs, execErr)
	}
	for _, g := range guards {
		if err := g.finish(); err != nil {
			errs = append(errs, err)
		}
	}
	result.Stats = stats.stats

	if result.Profile != "" {
		if _, statErr := os.Stat(result.Profile); statErr != nil {
			result.Profile = ""
		}
	}

	logger.Debug("test run finished",
		logging.FieldExitCode, result.ExitCode,
		logging.FieldTests, result.Stats.Tests,
		logging.FieldPasses, result.Stats.Passes,
		logging.FieldFailures, result.Stats.Failures,
		logging.FieldPending, result.Stats.Pending,
		logging.FieldDuration, result.Stats.Duration,
	)

	if result.ExitCode > 0 {
		errs = append(errs, fmt.Errorf("%w: go test exited with code %d", ErrTestsFailed, result.ExitCode))
	}
	return result, errors.Join(errs...)
}

// exec runs go test, decoding stdout into listener and logging stderr.
// It returns the process exit code.
func (r *Runner) exec(ctx context.Context, opts Options, listener events.Listener) (int, error) {
	logger := logging.FromContext(ctx)
	name := opts.goCommand()
	args := Args(opts)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.WorkingDir
	cmd.Env = append(os.Environ(), opts.Env...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("%w: %w", ErrCommand, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("%w: %w", ErrCommand, err)
	}

	logger.Debug("starting go test", logging.FieldCommand, name+" "+strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("%w: start %s: %w", ErrCommand, name, err)
	}

	var group errgroup.Group
	group.Go(func() error {
		stream := events.NewStream(listener, events.WithStreamLogger(logger))
		decodeErr := stream.Decode(ctx, stdout)
		// Drain whatever an aborted decode left unread.
		_, _ = io.Copy(io.Discard, stdout)
		return decodeErr
	})
	group.Go(func() error {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				logger.Warn(line, logging.FieldCommand, name)
			}
		}
		_, _ = io.Copy(io.Discard, stderr)
		return nil
	})

	streamErr := group.Wait()
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return -1, errors.Join(streamErr, fmt.Errorf("go test cancelled: %w", ctx.Err()))
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		return 0, streamErr
	case errors.As(waitErr, &exitErr) && exitErr.ExitCode() >= 0:
		return exitErr.ExitCode(), streamErr
	case errors.As(waitErr, &exitErr):
		return -1, errors.Join(streamErr, fmt.Errorf("%w: %s terminated: %w", ErrCommand, name, waitErr))
	default:
		return -1, errors.Join(streamErr, fmt.Errorf("%w: wait: %w", ErrCommand, waitErr))
	}
}

func (r *Runner) resolve(workDir, path string) string {
	if filepath.IsAbs(path) || workDir == "" {
		return path
	}
	return filepath.Join(workDir, path)
}
