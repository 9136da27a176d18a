package discovery_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/yaklabco/buildtest/pkg/discovery"
)

func makeTree(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		path := filepath.Join(dir, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("setup mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("package x\n"), 0o644); err != nil {
			t.Fatalf("setup write: %v", err)
		}
	}
	return dir
}

func TestIsGlob(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		want    bool
	}{
		{"./...", false},
		{"./pkg/foo", false},
		{"github.com/yaklabco/buildtest/pkg/events", false},
		{"pkg/**/*_test.go", true},
		{"pkg/foo/bar_test.go", true},
		{"pkg/{a,b}", true},
		{"pkg/?", true},
	}

	for _, tt := range tests {
		if got := discovery.IsGlob(tt.pattern); got != tt.want {
			t.Errorf("IsGlob(%q) = %v, want %v", tt.pattern, got, tt.want)
		}
	}
}

func TestResolve_PackagePatternsPassThrough(t *testing.T) {
	t.Parallel()

	dir := makeTree(t)
	patterns := []string{"./...", "example.com/mod/pkg"}

	got, err := discovery.Resolve(context.Background(), dir, patterns)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !reflect.DeepEqual(got, patterns) {
		t.Errorf("Resolve() = %v, want %v", got, patterns)
	}
}

func TestResolve_GlobReducesToPackages(t *testing.T) {
	t.Parallel()

	dir := makeTree(t,
		"root_test.go",
		"pkg/b/b_test.go",
		"pkg/b/b2_test.go",
		"pkg/a/a_test.go",
		"pkg/a/a.go",
		"pkg/c/c.go",
	)

	got, err := discovery.Resolve(context.Background(), dir, []string{"**/*_test.go"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []string{".", "./pkg/a", "./pkg/b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolve_SkipsVendorAndTestdata(t *testing.T) {
	t.Parallel()

	dir := makeTree(t,
		"pkg/a/a_test.go",
		"vendor/dep/dep_test.go",
		"pkg/a/testdata/fixture_test.go",
		".hidden/h_test.go",
	)

	got, err := discovery.Resolve(context.Background(), dir, []string{"**/*_test.go"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []string{"./pkg/a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolve_DirectoryGlob(t *testing.T) {
	t.Parallel()

	dir := makeTree(t,
		"pkg/a/a_test.go",
		"pkg/b/b.go",
	)

	got, err := discovery.Resolve(context.Background(), dir, []string{"./pkg/*"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []string{"./pkg/a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolve_Deduplication(t *testing.T) {
	t.Parallel()

	dir := makeTree(t, "pkg/a/a_test.go")

	got, err := discovery.Resolve(context.Background(), dir,
		[]string{"pkg/a/*_test.go", "./pkg/a", "pkg/**/a_test.go"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []string{"./pkg/a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolve_AbsoluteGlob(t *testing.T) {
	t.Parallel()

	dir := makeTree(t, "pkg/a/a_test.go")

	got, err := discovery.Resolve(context.Background(), dir,
		[]string{filepath.Join(dir, "pkg", "**", "*_test.go")})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"./pkg/a"}) {
		t.Errorf("Resolve() = %v", got)
	}

	_, err = discovery.Resolve(context.Background(), dir,
		[]string{filepath.Join(filepath.Dir(dir), "*_test.go")})
	if !errors.Is(err, discovery.ErrOutsideWorkDir) {
		t.Errorf("expected ErrOutsideWorkDir, got %v", err)
	}
}

func TestResolve_NoMatch(t *testing.T) {
	t.Parallel()

	dir := makeTree(t, "pkg/a/a.go")

	_, err := discovery.Resolve(context.Background(), dir, []string{"**/*_test.go"})
	if !errors.Is(err, discovery.ErrNoMatch) {
		t.Errorf("expected ErrNoMatch, got %v", err)
	}
}

func TestResolve_BadPattern(t *testing.T) {
	t.Parallel()

	dir := makeTree(t)

	_, err := discovery.Resolve(context.Background(), dir, []string{"pkg/[a-"})
	if err == nil {
		t.Fatal("expected error for malformed pattern")
	}
}

func TestResolve_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := discovery.Resolve(ctx, t.TempDir(), []string{"./..."})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
