// Package watch reruns tests for packages whose Go files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/go-enry/go-enry/v2"

	"github.com/yaklabco/buildtest/internal/logging"
)

// DefaultDebounce is how long a directory must be quiet before its package
// is rerun.
const DefaultDebounce = 200 * time.Millisecond

// ErrNoRoots indicates there is nothing to watch.
var ErrNoRoots = errors.New("no directories to watch")

// Handler runs the tests of one changed package, given as "./dir" relative
// to the working directory.
type Handler func(ctx context.Context, pkg string) error

// Options configures a Watcher.
type Options struct {
	// WorkingDir is the directory package paths are relative to.
	// If empty, the current process working directory is used.
	WorkingDir string

	// Roots are the directories watched recursively. Defaults to WorkingDir.
	Roots []string

	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration

	// Clock defaults to the real clock.
	Clock clock.Clock
}

// Watcher observes directory trees and calls a Handler for each changed
// package. Handler calls never overlap.
type Watcher struct {
	opts    Options
	handler Handler
	logger  *log.Logger
	fsw     *fsnotify.Watcher

	pending map[string]time.Time
	timer   clock.Timer
}

// New creates a Watcher and registers every directory under the roots.
func New(ctx context.Context, opts Options, handler Handler) (*Watcher, error) {
	if opts.WorkingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		opts.WorkingDir = wd
	}
	if len(opts.Roots) == 0 {
		opts.Roots = []string{opts.WorkingDir}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewClock()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	w := &Watcher{
		opts:    opts,
		handler: handler,
		logger:  logging.FromContext(ctx),
		fsw:     fsw,
		pending: make(map[string]time.Time),
	}

	for _, root := range opts.Roots {
		if !filepath.IsAbs(root) {
			root = filepath.Join(opts.WorkingDir, root)
		}
		if err := w.addTree(ctx, root); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	if len(fsw.WatchList()) == 0 {
		_ = fsw.Close()
		return nil, ErrNoRoots
	}

	return w, nil
}

// Watched returns the watched directories, sorted.
func (w *Watcher) Watched() []string {
	dirs := w.fsw.WatchList()
	sort.Strings(dirs)
	return dirs
}

// Run dispatches changes until ctx is cancelled. Handler errors are logged
// and do not stop the watcher. It closes the underlying watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	w.logger.Info("watching for changes", logging.FieldPaths, len(w.fsw.WatchList()))

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.observe(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", logging.FieldError, err)

		case <-w.timerC():
			w.timer = nil
			w.flush(ctx)
		}
	}
}

// observe records a file system event.
func (w *Watcher) observe(ctx context.Context, event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(ctx, event.Name); err != nil {
				w.logger.Warn("cannot watch new directory", logging.FieldPath, event.Name, logging.FieldError, err)
			}
			return
		}
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if filepath.Ext(event.Name) != ".go" || strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}

	dir := filepath.Dir(event.Name)
	deadline := w.opts.Clock.Now().Add(w.opts.Debounce)
	w.pending[dir] = deadline
	w.logger.Debug("change detected", logging.FieldPath, event.Name)
	w.schedule()
}

// flush runs the handler for every directory whose quiet period has passed.
func (w *Watcher) flush(ctx context.Context) {
	now := w.opts.Clock.Now()

	var due []string
	for dir, deadline := range w.pending {
		if !deadline.After(now) {
			due = append(due, dir)
		}
	}
	sort.Strings(due)

	for _, dir := range due {
		delete(w.pending, dir)

		select {
		case <-ctx.Done():
			return
		default:
		}

		pkg := w.packagePath(dir)
		if err := w.handler(logging.WithPackage(ctx, pkg), pkg); err != nil {
			w.logger.Warn("test run failed", logging.FieldPackage, pkg, logging.FieldError, err)
		}
	}

	w.schedule()
}

// schedule arms the timer for the earliest pending deadline.
func (w *Watcher) schedule() {
	if len(w.pending) == 0 {
		w.stopTimer()
		return
	}

	var earliest time.Time
	for _, deadline := range w.pending {
		if earliest.IsZero() || deadline.Before(earliest) {
			earliest = deadline
		}
	}

	wait := earliest.Sub(w.opts.Clock.Now())
	if wait < 0 {
		wait = 0
	}
	if w.timer == nil {
		w.timer = w.opts.Clock.NewTimer(wait)
		return
	}
	w.timer.Reset(wait)
}

func (w *Watcher) stopTimer() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// timerC returns the timer channel, or nil (blocks forever) when idle.
func (w *Watcher) timerC() <-chan time.Time {
	if w.timer == nil {
		return nil
	}
	return w.timer.C()
}

// addTree watches root and every directory below it, skipping hidden and
// vendored directories.
func (w *Watcher) addTree(ctx context.Context, root string) error {
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			if os.IsPermission(walkErr) {
				return nil
			}
			return walkErr
		}
		if !entry.IsDir() {
			return nil
		}
		if path != root && w.skipDir(path) {
			return filepath.SkipDir
		}

		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk directory %s: %w", root, err)
	}
	return nil
}

func (w *Watcher) skipDir(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "testdata" {
		return true
	}
	rel, err := filepath.Rel(w.opts.WorkingDir, path)
	if err != nil {
		rel = name
	}
	return enry.IsVendor(filepath.ToSlash(rel) + "/")
}

// packagePath maps a directory to a "./dir" package relative to WorkingDir.
func (w *Watcher) packagePath(dir string) string {
	rel, err := filepath.Rel(w.opts.WorkingDir, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return dir
	}
	if rel == "." {
		return "."
	}
	return "./" + filepath.ToSlash(rel)
}
