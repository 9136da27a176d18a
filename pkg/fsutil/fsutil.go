// Package fsutil provides file system helpers shared by the report writers:
// creating output files under freshly made directories, atomic writes, and
// error classification.
package fsutil

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultDirMode is the permission mode for created directories.
const DefaultDirMode os.FileMode = 0o755

// DefaultFileMode is the permission mode for created files.
const DefaultFileMode os.FileMode = 0o644

// Sentinel errors for error categorization via errors.Is.
var (
	// ErrNotFound indicates the file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrPermissionDenied indicates a permission error.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrIsDirectory indicates the path is a directory, not a file.
	ErrIsDirectory = errors.New("path is a directory")
)

// Classify wraps err with the matching sentinel error, if any.
func Classify(path string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s: %w", ErrPermissionDenied, path, err)
	default:
		return fmt.Errorf("%s: %w", path, err)
	}
}

// EnsureParentDir creates the parent directory of path, including any
// missing ancestors.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DefaultDirMode); err != nil {
		return Classify(dir, err)
	}
	return nil
}

// Create creates (or truncates) the file at path for writing, making its
// parent directories first.
func Create(ctx context.Context, path string) (*os.File, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("create file: %w", ctx.Err())
	default:
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, path)
	}

	if err := EnsureParentDir(path); err != nil {
		return nil, err
	}

	//nolint:gosec // Output paths are chosen by the user.
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, DefaultFileMode)
	if err != nil {
		return nil, Classify(path, err)
	}
	return file, nil
}

// RemoveAll removes path and everything below it. A missing path is not an
// error.
func RemoveAll(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return Classify(path, err)
	}
	return nil
}
