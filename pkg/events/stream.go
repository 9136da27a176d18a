package events

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// PackageFailureTitle is the title of the synthetic test reported for a
// package that failed without any failing test (build errors, panics in
// TestMain, timeouts).
const PackageFailureTitle = "[package]"

// incompleteReason is reported for tests that never produced an outcome.
const incompleteReason = "test did not complete"

// maxLineSize bounds a single go test -json line.
const maxLineSize = 4 * 1024 * 1024

// Actions emitted by go test -json (see go doc test2json).
const (
	ActionStart       = "start"
	ActionRun         = "run"
	ActionPause       = "pause"
	ActionCont        = "cont"
	ActionPass        = "pass"
	ActionBench       = "bench"
	ActionFail        = "fail"
	ActionOutput      = "output"
	ActionSkip        = "skip"
	ActionBuildOutput = "build-output"
	ActionBuildFail   = "build-fail"
)

// TestEvent is one line of go test -json output.
type TestEvent struct {
	Time        time.Time `json:"Time"`
	Action      string    `json:"Action"`
	Package     string    `json:"Package"`
	Test        string    `json:"Test"`
	Elapsed     float64   `json:"Elapsed"`
	Output      string    `json:"Output"`
	ImportPath  string    `json:"ImportPath"`
	FailedBuild string    `json:"FailedBuild"`
}

// Stream translates go test -json output into lifecycle events.
//
// Events of one package are held until the package finishes, since parallel
// subtests interleave and the suite tree is only known at that point. The
// listener therefore sees each package as one contiguous, well-nested suite.
type Stream struct {
	listener Listener
	logger   *log.Logger

	packages map[string]*packageState
	order    []string
	build    map[string]*strings.Builder
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithStreamLogger sets the logger used for stray, non-JSON output.
func WithStreamLogger(logger *log.Logger) StreamOption {
	return func(s *Stream) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStream creates a Stream that emits into listener.
func NewStream(listener Listener, opts ...StreamOption) *Stream {
	s := &Stream{
		listener: listener,
		logger:   log.Default(),
		packages: make(map[string]*packageState),
		build:    make(map[string]*strings.Builder),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Decode reads go test -json lines from r until EOF and emits events for every
// package that finishes. Packages still open at EOF are emitted as incomplete.
func (s *Stream) Decode(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("decode test events: %w", ctx.Err())
		default:
		}

		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		if line[0] != '{' {
			s.logger.Debug("stray test output", "line", string(line))
			continue
		}

		var event TestEvent
		if err := json.Unmarshal(line, &event); err != nil {
			s.logger.Debug("unparseable test event", "line", string(line), "error", err)
			continue
		}
		if err := s.Handle(event); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read test events: %w", err)
	}

	return s.Flush()
}

// Handle processes a single event.
func (s *Stream) Handle(event TestEvent) error {
	switch event.Action {
	case ActionBuildOutput:
		s.buildOutput(event.ImportPath).WriteString(event.Output)
		return nil
	case ActionBuildFail:
		return nil
	}

	if event.Package == "" {
		return nil
	}

	pkg := s.pkg(event.Package)

	if event.Test == "" {
		switch event.Action {
		case ActionOutput:
			pkg.output = append(pkg.output, event.Output)
		case ActionPass, ActionFail, ActionSkip:
			pkg.action = event.Action
			pkg.failedBuild = event.FailedBuild
			return s.finish(event.Package)
		}
		return nil
	}

	node := pkg.node(event.Test)
	switch event.Action {
	case ActionOutput:
		node.output = append(node.output, event.Output)
	case ActionPass, ActionFail, ActionSkip:
		node.action = event.Action
		node.elapsed = seconds(event.Elapsed)
	}
	return nil
}

// Flush emits every package that has not finished yet, failing the tests
// that never reported an outcome.
func (s *Stream) Flush() error {
	var errs []error
	for len(s.order) > 0 {
		name := s.order[0]
		if err := s.finish(name); err != nil {
			errs = append(errs, err)
			break
		}
	}
	return errors.Join(errs...)
}

func (s *Stream) pkg(name string) *packageState {
	if pkg, ok := s.packages[name]; ok {
		return pkg
	}
	pkg := newPackageState(name)
	s.packages[name] = pkg
	s.order = append(s.order, name)
	return pkg
}

func (s *Stream) buildOutput(importPath string) *strings.Builder {
	if b, ok := s.build[importPath]; ok {
		return b
	}
	b := &strings.Builder{}
	s.build[importPath] = b
	return b
}

// finish emits a package's suite and forgets its state.
func (s *Stream) finish(name string) error {
	pkg, ok := s.packages[name]
	if !ok {
		return nil
	}
	delete(s.packages, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	failedPkg := pkg.action == ActionFail || pkg.action == ""
	if len(pkg.root.children) == 0 && !failedPkg {
		// No tests ran, e.g. "[no test files]".
		return nil
	}

	suite := Suite{Title: name}
	if err := s.listener.SuiteStart(suite); err != nil {
		return err
	}
	for _, child := range pkg.root.children {
		if err := s.emit(name, child); err != nil {
			return err
		}
	}
	if failedPkg && !pkg.root.hasFailure() {
		test := Test{Title: PackageFailureTitle, FullTitle: PackageFailureTitle, Package: name}
		if err := s.listener.TestFail(test, s.packageReason(pkg)); err != nil {
			return err
		}
		if err := s.listener.TestEnd(test); err != nil {
			return err
		}
	}
	return s.listener.SuiteEnd(suite)
}

func (s *Stream) packageReason(pkg *packageState) string {
	if pkg.failedBuild != "" {
		if b, ok := s.build[pkg.failedBuild]; ok && b.Len() > 0 {
			return strings.TrimSpace(b.String())
		}
		return "build failed: " + pkg.failedBuild
	}
	if reason := cleanOutput(pkg.output); reason != "" {
		return reason
	}
	if pkg.action == "" {
		return incompleteReason
	}
	return "package failed"
}

func (s *Stream) emit(pkgName string, node *testNode) error {
	if len(node.children) == 0 {
		return s.emitLeaf(pkgName, node)
	}

	suite := Suite{Title: node.name}
	if err := s.listener.SuiteStart(suite); err != nil {
		return err
	}
	for _, child := range node.children {
		if err := s.emit(pkgName, child); err != nil {
			return err
		}
	}
	// A parent failing on its own would otherwise vanish from the report.
	if node.action == ActionFail && !node.childFailed() {
		if err := s.emitLeaf(pkgName, node); err != nil {
			return err
		}
	}
	return s.listener.SuiteEnd(suite)
}

func (s *Stream) emitLeaf(pkgName string, node *testNode) error {
	test := Test{
		Title:     node.name,
		FullTitle: node.full,
		Package:   pkgName,
		Elapsed:   node.elapsed,
	}

	var err error
	switch node.action {
	case ActionPass:
		err = s.listener.TestPass(test)
	case ActionSkip:
		err = s.listener.TestPending(test)
	case ActionFail:
		err = s.listener.TestFail(test, cleanOutput(node.output))
	default:
		reason := incompleteReason
		if out := cleanOutput(node.output); out != "" {
			reason = incompleteReason + "\n" + out
		}
		err = s.listener.TestFail(test, reason)
	}
	if err != nil {
		return err
	}
	return s.listener.TestEnd(test)
}

type packageState struct {
	name        string
	action      string
	failedBuild string
	output      []string
	root        *testNode
	nodes       map[string]*testNode
}

func newPackageState(name string) *packageState {
	return &packageState{
		name:  name,
		root:  &testNode{},
		nodes: make(map[string]*testNode),
	}
}

// node returns the node for a full test name, creating it and any missing
// parents. Children keep the order in which they were first seen.
func (p *packageState) node(full string) *testNode {
	if n, ok := p.nodes[full]; ok {
		return n
	}

	parent := p.root
	name := full
	if idx := strings.LastIndex(full, "/"); idx > 0 {
		parent = p.node(full[:idx])
		name = full[idx+1:]
	}

	n := &testNode{name: name, full: full}
	parent.children = append(parent.children, n)
	p.nodes[full] = n
	return n
}

type testNode struct {
	name     string
	full     string
	action   string
	elapsed  time.Duration
	output   []string
	children []*testNode
}

func (n *testNode) hasFailure() bool {
	if n.name != "" && (n.action == ActionFail || (len(n.children) == 0 && n.action == "")) {
		return true
	}
	return n.childFailed()
}

func (n *testNode) childFailed() bool {
	for _, c := range n.children {
		if c.hasFailure() {
			return true
		}
	}
	return false
}

// runnerNoise are line prefixes the test binary writes around test output.
//
//nolint:gochecknoglobals // Read-only lookup table.
var runnerNoise = []string{"=== RUN", "=== PAUSE", "=== CONT", "=== NAME", "--- FAIL", "--- PASS", "--- SKIP"}

// cleanOutput joins test output, dropping runner bookkeeping lines and
// surrounding blank lines.
func cleanOutput(lines []string) string {
	var kept []string
	for _, chunk := range lines {
		for _, line := range strings.Split(strings.TrimRight(chunk, "\n"), "\n") {
			trimmed := strings.TrimSpace(line)
			if isNoise(trimmed) {
				continue
			}
			kept = append(kept, strings.TrimRight(line, " \t\r"))
		}
	}
	return strings.Trim(strings.Join(dedent(kept), "\n"), "\n")
}

// dedent strips the indentation shared by all non-blank lines. The testing
// package indents t.Log output by four spaces.
func dedent(lines []string) []string {
	common := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if common < 0 || indent < common {
			common = indent
		}
	}
	if common <= 0 {
		return lines
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		if len(line) >= common {
			out[i] = line[common:]
		}
	}
	return out
}

func isNoise(trimmed string) bool {
	if trimmed == "PASS" || trimmed == "FAIL" {
		return true
	}
	// Package result lines: "FAIL\tpkg 0.01s", "ok  \tpkg 0.01s".
	if strings.HasPrefix(trimmed, "FAIL\t") || strings.HasPrefix(trimmed, "ok  \t") {
		return true
	}
	for _, prefix := range runnerNoise {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
