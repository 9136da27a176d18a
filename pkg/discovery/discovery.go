// Package discovery resolves test selection patterns into go test package
// arguments.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-enry/go-enry/v2"
)

// ErrNoMatch indicates a glob pattern that matched no test files.
var ErrNoMatch = errors.New("pattern matched no test files")

// ErrOutsideWorkDir indicates an absolute glob that does not lie under the
// working directory.
var ErrOutsideWorkDir = errors.New("pattern outside working directory")

// IsGlob reports whether pattern is a file glob rather than a Go package
// pattern. Anything ending in ".go" is treated as a file pattern.
func IsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{") || strings.HasSuffix(pattern, ".go")
}

// Resolve maps patterns to go test package arguments. Package patterns such
// as "./..." or import paths pass through unchanged. Globs are expanded
// relative to workDir and reduced to the "./dir" packages that hold the
// matched test files. The result keeps the order of patterns, with each
// glob's packages sorted, and contains no duplicates.
func Resolve(ctx context.Context, workDir string, patterns []string) ([]string, error) {
	root, err := resolveWorkDir(workDir)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	fsys := os.DirFS(root)

	seen := make(map[string]struct{})
	var out []string
	add := func(pkg string) {
		if _, ok := seen[pkg]; ok {
			return
		}
		seen[pkg] = struct{}{}
		out = append(out, pkg)
	}

	for _, pattern := range patterns {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("discovery cancelled: %w", ctx.Err())
		default:
		}

		if !IsGlob(pattern) {
			add(pattern)
			continue
		}

		pkgs, err := expand(fsys, root, pattern)
		if err != nil {
			return nil, err
		}
		for _, pkg := range pkgs {
			add(pkg)
		}
	}

	return out, nil
}

// expand globs one pattern and returns its sorted package directories.
func expand(fsys fs.FS, root, pattern string) ([]string, error) {
	rel, err := relativePattern(root, pattern)
	if err != nil {
		return nil, err
	}
	if !doublestar.ValidatePattern(rel) {
		return nil, fmt.Errorf("%w: %q", doublestar.ErrBadPattern, pattern)
	}

	matches, err := doublestar.Glob(fsys, rel)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}

	dirs := make(map[string]struct{})
	for _, match := range matches {
		if skipped(match) {
			continue
		}
		info, statErr := fs.Stat(fsys, match)
		if statErr != nil {
			continue
		}
		if info.IsDir() {
			if hasTests(fsys, match) {
				dirs[match] = struct{}{}
			}
			continue
		}
		if isTestFile(match) {
			dirs[path.Dir(match)] = struct{}{}
		}
	}

	if len(dirs) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoMatch, pattern)
	}

	pkgs := make([]string, 0, len(dirs))
	for dir := range dirs {
		pkgs = append(pkgs, packagePath(dir))
	}
	sort.Strings(pkgs)
	return pkgs, nil
}

// relativePattern turns pattern into a slash-separated glob relative to root.
func relativePattern(root, pattern string) (string, error) {
	if filepath.IsAbs(pattern) {
		rel, err := filepath.Rel(root, pattern)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %q", ErrOutsideWorkDir, pattern)
		}
		pattern = rel
	}
	pattern = filepath.ToSlash(pattern)
	for strings.HasPrefix(pattern, "./") {
		pattern = strings.TrimPrefix(pattern, "./")
	}
	return pattern, nil
}

// skipped reports paths the go tool ignores or that are vendored.
func skipped(match string) bool {
	if enry.IsVendor(match) {
		return true
	}
	for _, part := range strings.Split(match, "/") {
		if part == "testdata" || (len(part) > 1 && (part[0] == '.' || part[0] == '_')) {
			return true
		}
	}
	return false
}

func isTestFile(match string) bool {
	if !strings.HasSuffix(match, ".go") {
		return false
	}
	return strings.HasSuffix(match, "_test.go") || enry.IsTest(match)
}

// hasTests reports whether dir directly contains a Go test file.
func hasTests(fsys fs.FS, dir string) bool {
	matches, err := doublestar.Glob(fsys, path.Join(dir, "*_test.go"))
	return err == nil && len(matches) > 0
}

func packagePath(dir string) string {
	if dir == "." {
		return "."
	}
	return "./" + dir
}

// resolveWorkDir resolves the working directory, defaulting to os.Getwd().
func resolveWorkDir(workDir string) (string, error) {
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		return wd, nil
	}
	absPath, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	return absPath, nil
}
