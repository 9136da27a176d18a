// Package coverage loads Go cover profiles, filters them, and checks the
// totals against minimum thresholds.
package coverage

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/tools/cover"

	"github.com/yaklabco/buildtest/pkg/config"
)

// Sentinel errors for error categorization via errors.Is.
var (
	// ErrBelowThreshold indicates at least one metric is under its minimum.
	ErrBelowThreshold = errors.New("coverage below threshold")

	// ErrProfile indicates the cover profile could not be read.
	ErrProfile = errors.New("read cover profile")
)

// Metric is a covered/total pair.
type Metric struct {
	Covered int
	Total   int
}

// Percent returns the covered percentage. An empty metric counts as fully
// covered.
func (m Metric) Percent() float64 {
	if m.Total == 0 {
		return 100
	}
	return 100 * float64(m.Covered) / float64(m.Total)
}

func (m *Metric) add(other Metric) {
	m.Covered += other.Covered
	m.Total += other.Total
}

// FileSummary is the coverage of one source file.
type FileSummary struct {
	// Path is the import-path qualified file name from the profile.
	Path       string
	Statements Metric
	Lines      Metric
}

// Summary is the coverage of a whole run.
type Summary struct {
	Files      []FileSummary
	Statements Metric
	Lines      Metric
}

// Load parses a cover profile written by go test -coverprofile.
func Load(path string) ([]*cover.Profile, error) {
	profiles, err := cover.ParseProfiles(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProfile, path, err)
	}
	return profiles, nil
}

// Filter drops profiles whose file matches any of the exclude patterns.
// Patterns are doublestar globs, or go package patterns such as
// "./internal/gen/...", matched against any trailing part of the file's
// import path.
func Filter(profiles []*cover.Profile, excludes []string) []*cover.Profile {
	if len(excludes) == 0 {
		return profiles
	}

	globs := make([]string, 0, len(excludes))
	for _, pattern := range excludes {
		globs = append(globs, toGlob(pattern))
	}

	kept := make([]*cover.Profile, 0, len(profiles))
	for _, profile := range profiles {
		if !matchesAny(globs, profile.FileName) {
			kept = append(kept, profile)
		}
	}
	return kept
}

// toGlob turns a go package pattern into an equivalent doublestar glob.
func toGlob(pattern string) string {
	pattern = strings.TrimPrefix(pattern, "./")
	if strings.HasSuffix(pattern, "...") {
		pattern = strings.TrimSuffix(strings.TrimSuffix(pattern, "..."), "/")
		if pattern == "" {
			return "**"
		}
		return pattern + "/**"
	}
	return pattern
}

// matchesAny reports whether name, or any suffix of it starting at a path
// separator, matches one of the globs.
func matchesAny(globs []string, name string) bool {
	for _, glob := range globs {
		candidate := name
		for {
			if ok, _ := doublestar.Match(glob, candidate); ok {
				return true
			}
			i := strings.IndexByte(candidate, '/')
			if i < 0 {
				break
			}
			candidate = candidate[i+1:]
		}
	}
	return false
}

// Summarize computes per-file and total statement and line coverage.
// A line counts as covered when any block spanning it executed.
func Summarize(profiles []*cover.Profile) Summary {
	byFile := make(map[string]*FileSummary)
	lines := make(map[string]map[int]bool)

	for _, profile := range profiles {
		file, ok := byFile[profile.FileName]
		if !ok {
			file = &FileSummary{Path: profile.FileName}
			byFile[profile.FileName] = file
			lines[profile.FileName] = make(map[int]bool)
		}
		fileLines := lines[profile.FileName]

		for _, block := range profile.Blocks {
			file.Statements.Total += block.NumStmt
			if block.Count > 0 {
				file.Statements.Covered += block.NumStmt
			}
			if block.NumStmt == 0 {
				continue
			}
			for line := block.StartLine; line <= block.EndLine; line++ {
				fileLines[line] = fileLines[line] || block.Count > 0
			}
		}
	}

	var summary Summary
	for name, file := range byFile {
		for _, covered := range lines[name] {
			file.Lines.Total++
			if covered {
				file.Lines.Covered++
			}
		}
		summary.Files = append(summary.Files, *file)
		summary.Statements.add(file.Statements)
		summary.Lines.add(file.Lines)
	}

	sort.Slice(summary.Files, func(i, j int) bool {
		return summary.Files[i].Path < summary.Files[j].Path
	})

	return summary
}

// Check compares the totals against the thresholds. Function and branch
// thresholds are not measurable from Go profiles and are ignored.
func Check(summary Summary, thresholds config.Thresholds) error {
	var failures []string

	for _, m := range []struct {
		name    string
		metric  Metric
		minimum float64
	}{
		{"statements", summary.Statements, thresholds.Statements},
		{"lines", summary.Lines, thresholds.Lines},
	} {
		if m.minimum <= 0 {
			continue
		}
		if pct := m.metric.Percent(); pct < m.minimum {
			failures = append(failures, fmt.Sprintf("%s %.2f%% < %g%%", m.name, pct, m.minimum))
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("%w: %s", ErrBelowThreshold, strings.Join(failures, ", "))
	}
	return nil
}
