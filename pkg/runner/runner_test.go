package runner_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/buildtest/pkg/config"
	"github.com/yaklabco/buildtest/pkg/discovery"
	"github.com/yaklabco/buildtest/pkg/events"
	"github.com/yaklabco/buildtest/pkg/htmlreport"
	"github.com/yaklabco/buildtest/pkg/runner"
)

const mathEvents = `{"Action":"start","Package":"example.com/math"}
{"Action":"run","Package":"example.com/math","Test":"TestAdds"}
{"Action":"pass","Package":"example.com/math","Test":"TestAdds","Elapsed":0.01}
{"Action":"run","Package":"example.com/math","Test":"TestSubtracts"}
{"Action":"output","Package":"example.com/math","Test":"TestSubtracts","Output":"    math_test.go:12: expected 1 got 2\n"}
{"Action":"fail","Package":"example.com/math","Test":"TestSubtracts","Elapsed":0}
{"Action":"fail","Package":"example.com/math","Elapsed":0.02}
`

const passEvents = `{"Action":"run","Package":"example.com/ok","Test":"TestOK"}
{"Action":"pass","Package":"example.com/ok","Test":"TestOK","Elapsed":0}
{"Action":"pass","Package":"example.com/ok","Elapsed":0.01}
`

// fakeGo writes a go stand-in that records its arguments to args.txt, prints
// the given events and exits with code.
func fakeGo(t *testing.T, eventLines string, code int) (string, string) {
	t.Helper()
	dir := t.TempDir()
	fixture := filepath.Join(dir, "events.jsonl")
	argsFile := filepath.Join(dir, "args.txt")
	require.NoError(t, os.WriteFile(fixture, []byte(eventLines), 0o644))

	body := "echo \"$@\" > '" + argsFile + "'\n" +
		"echo 'warning from go' >&2\n" +
		"cat '" + fixture + "'\n" +
		"exit " + strconv.Itoa(code) + "\n"
	return writeGoScript(t, dir, body), argsFile
}

// writeGoScript writes a shell script named go into dir.
func writeGoScript(t *testing.T, dir, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}
	path := filepath.Join(dir, "go")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func readArgs(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.TrimSpace(string(data))
}

func TestArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts runner.Options
		want []string
	}{
		{
			name: "minimal",
			opts: runner.Options{Patterns: []string{"./..."}},
			want: []string{"test", "-json", "./..."},
		},
		{
			name: "tags and run",
			opts: runner.Options{Patterns: []string{"./pkg/a"}, Tags: []string{"integration", "slow"}, Run: "TestFoo"},
			want: []string{"test", "-json", "-tags=integration,slow", "-run=TestFoo", "./pkg/a"},
		},
		{
			name: "coverage",
			opts: runner.Options{
				Patterns:  []string{"./..."},
				Cover:     []string{"./pkg/...", "!./pkg/gen/...", "./internal/..."},
				CoverMode: config.CoverModeCount,
				OutputDir: "out",
			},
			want: []string{
				"test", "-json",
				"-covermode=count",
				"-coverprofile=out/coverage/coverage.out",
				"-coverpkg=./pkg/...,./internal/...",
				"./...",
			},
		},
		{
			name: "only exclusions disables coverage",
			opts: runner.Options{Patterns: []string{"./..."}, Cover: []string{"!./gen/..."}},
			want: []string{"test", "-json", "./..."},
		},
		{
			name: "coverage defaults",
			opts: runner.Options{Patterns: []string{"./..."}, Cover: []string{"./..."}},
			want: []string{
				"test", "-json",
				"-covermode=atomic",
				"-coverprofile=testResults/coverage/coverage.out",
				"-coverpkg=./...",
				"./...",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, runner.Args(tt.opts))
		})
	}
}

func TestRun_PassingTests(t *testing.T) {
	t.Parallel()

	goCmd, argsFile := fakeGo(t, passEvents, 0)
	rec := &events.Recorder{}

	result, err := runner.New().Run(context.Background(), runner.Options{
		Patterns:   []string{"./..."},
		WorkingDir: t.TempDir(),
		GoCommand:  goCmd,
	}, rec)

	require.NoError(t, err)
	assert.True(t, result.Passed())
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, []string{"./..."}, result.Packages)
	assert.Equal(t, runner.Stats{Suites: 1, Tests: 1, Passes: 1}, result.Stats)
	assert.Empty(t, result.Profile)
	assert.Equal(t, "test -json ./...", readArgs(t, argsFile))

	assert.Equal(t, []string{
		"run-start",
		"suite-start (root)",
		"suite-start example.com/ok",
		"test-pass TestOK",
		"test-end TestOK",
		"suite-end example.com/ok",
		"suite-end (root)",
		"run-end",
	}, rec.Events)
}

func TestRun_FailingTests(t *testing.T) {
	t.Parallel()

	goCmd, _ := fakeGo(t, mathEvents, 1)
	rec := &events.Recorder{}
	clk := fakeclock.NewFakeClock(time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC))

	result, err := runner.New(runner.WithClock(clk)).Run(context.Background(), runner.Options{
		Patterns:   []string{"./..."},
		WorkingDir: t.TempDir(),
		GoCommand:  goCmd,
	}, rec)

	require.Error(t, err)
	assert.ErrorIs(t, err, runner.ErrTestsFailed)
	require.NotNil(t, result)
	assert.False(t, result.Passed())
	assert.Equal(t, 1, result.ExitCode)
	assert.Equal(t, 1, result.Stats.Passes)
	assert.Equal(t, 1, result.Stats.Failures)
	assert.Equal(t, 2, result.Stats.Tests)

	assert.Contains(t, rec.Events, "test-fail TestSubtracts: math_test.go:12: expected 1 got 2")
	assert.Equal(t, "run-end", rec.Events[len(rec.Events)-1])
}

func TestRun_Coverage(t *testing.T) {
	t.Parallel()

	goCmd, argsFile := fakeGo(t, passEvents, 0)
	workDir := t.TempDir()

	// The fake does not write a profile; create it up front as go test would.
	profile := filepath.Join(workDir, "out", "coverage", "coverage.out")
	require.NoError(t, os.MkdirAll(filepath.Dir(profile), 0o755))
	require.NoError(t, os.WriteFile(profile, []byte("mode: atomic\n"), 0o644))

	result, err := runner.New().Run(context.Background(), runner.Options{
		Patterns:   []string{"./..."},
		Cover:      []string{"./..."},
		OutputDir:  "out",
		WorkingDir: workDir,
		GoCommand:  goCmd,
	})

	require.NoError(t, err)
	assert.Equal(t, profile, result.Profile)
	assert.Contains(t, readArgs(t, argsFile), "-coverprofile=out/coverage/coverage.out")
}

func TestRun_MissingProfileIsCleared(t *testing.T) {
	t.Parallel()

	goCmd, _ := fakeGo(t, passEvents, 0)

	result, err := runner.New().Run(context.Background(), runner.Options{
		Patterns:   []string{"./..."},
		Cover:      []string{"./..."},
		WorkingDir: t.TempDir(),
		GoCommand:  goCmd,
	})

	require.NoError(t, err)
	assert.Empty(t, result.Profile)
}

func TestRun_GlobPatterns(t *testing.T) {
	t.Parallel()

	goCmd, argsFile := fakeGo(t, passEvents, 0)
	workDir := t.TempDir()
	testFile := filepath.Join(workDir, "pkg", "a", "a_test.go")
	require.NoError(t, os.MkdirAll(filepath.Dir(testFile), 0o755))
	require.NoError(t, os.WriteFile(testFile, []byte("package a\n"), 0o644))

	result, err := runner.New().Run(context.Background(), runner.Options{
		Patterns:   []string{"**/*_test.go"},
		WorkingDir: workDir,
		GoCommand:  goCmd,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"./pkg/a"}, result.Packages)
	assert.Equal(t, "test -json ./pkg/a", readArgs(t, argsFile))
}

func TestRun_NoMatch(t *testing.T) {
	t.Parallel()

	_, err := runner.New().Run(context.Background(), runner.Options{
		Patterns:   []string{"**/*_test.go"},
		WorkingDir: t.TempDir(),
		GoCommand:  "unused",
	})

	assert.ErrorIs(t, err, discovery.ErrNoMatch)
}

func TestRun_NoPackages(t *testing.T) {
	t.Parallel()

	_, err := runner.New().Run(context.Background(), runner.Options{WorkingDir: t.TempDir()})
	assert.ErrorIs(t, err, runner.ErrNoPackages)
}

func TestRun_MissingCommandStillTerminatesListeners(t *testing.T) {
	t.Parallel()

	rec := &events.Recorder{}
	result, err := runner.New().Run(context.Background(), runner.Options{
		Patterns:   []string{"./..."},
		WorkingDir: t.TempDir(),
		GoCommand:  filepath.Join(t.TempDir(), "does-not-exist"),
	}, rec)

	require.Error(t, err)
	assert.ErrorIs(t, err, runner.ErrCommand)
	assert.NotErrorIs(t, err, runner.ErrTestsFailed)
	require.NotNil(t, result)
	assert.Equal(t, []string{"run-start", "suite-start (root)", "suite-end (root)", "run-end"}, rec.Events)
}

// failingListener rejects every test outcome.
type failingListener struct {
	events.Recorder
}

var errSink = errors.New("sink failed")

func (f *failingListener) TestPass(events.Test) error { return errSink }

func TestRun_ListenerErrorIsIsolated(t *testing.T) {
	t.Parallel()

	goCmd, _ := fakeGo(t, passEvents, 0)
	failing := &failingListener{}
	after := &events.Recorder{}

	_, err := runner.New().Run(context.Background(), runner.Options{
		Patterns:   []string{"./..."},
		WorkingDir: t.TempDir(),
		GoCommand:  goCmd,
	}, failing, after)

	require.ErrorIs(t, err, errSink)

	// The failing listener gets nothing after its error, then its open
	// suites are closed and the run ended.
	assert.Equal(t, []string{
		"run-start",
		"suite-start (root)",
		"suite-start example.com/ok",
		"suite-end example.com/ok",
		"suite-end (root)",
		"run-end",
	}, failing.Events)

	assert.Equal(t, []string{
		"run-start",
		"suite-start (root)",
		"suite-start example.com/ok",
		"test-pass TestOK",
		"test-end TestOK",
		"suite-end example.com/ok",
		"suite-end (root)",
		"run-end",
	}, after.Events)
}

type nopCloser struct {
	*bytes.Buffer
}

func (nopCloser) Close() error { return nil }

func TestRun_ListenerErrorKeepsReportBalanced(t *testing.T) {
	t.Parallel()

	goCmd, _ := fakeGo(t, passEvents, 0)
	var buf bytes.Buffer
	renderer := htmlreport.NewWriter(nopCloser{&buf})

	_, err := runner.New().Run(context.Background(), runner.Options{
		Patterns:   []string{"./..."},
		WorkingDir: t.TempDir(),
		GoCommand:  goCmd,
	}, &failingListener{}, renderer)

	require.ErrorIs(t, err, errSink)
	assert.Equal(t, 0, renderer.Depth())

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "<section"))
	assert.Equal(t, 1, strings.Count(out, "</section>"))
	assert.Equal(t, strings.Count(out, "<dl>"), strings.Count(out, "</dl>"))
	assert.Contains(t, out, "TestOK")
	assert.Contains(t, out, "</html>")
}

func TestRun_KilledCommandFails(t *testing.T) {
	t.Parallel()

	body := `echo '{"Action":"run","Package":"example.com/ok","Test":"TestOK"}'` + "\n" +
		"kill -9 $$\n"
	goCmd := writeGoScript(t, t.TempDir(), body)
	rec := &events.Recorder{}

	result, err := runner.New().Run(context.Background(), runner.Options{
		Patterns:   []string{"./..."},
		WorkingDir: t.TempDir(),
		GoCommand:  goCmd,
	}, rec)

	require.Error(t, err)
	assert.ErrorIs(t, err, runner.ErrCommand)
	require.NotNil(t, result)
	assert.Equal(t, -1, result.ExitCode)
	assert.False(t, result.Passed())
	assert.Equal(t, 1, result.Stats.Failures)
	assert.Equal(t, []string{"suite-end (root)", "run-end"}, rec.Events[len(rec.Events)-2:])
}
