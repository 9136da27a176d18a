// Package logging provides a structured logging wrapper around charmbracelet/log.
package logging

// Field name constants for structured logging.
// Using constants prevents typos and enables IDE autocomplete.
const (
	// Common fields.
	FieldError      = "error"
	FieldPath       = "path"
	FieldPaths      = "paths"
	FieldOutput     = "output"
	FieldWorkingDir = "working_dir"

	// Configuration fields.
	FieldFormat   = "format"
	FieldPatterns = "patterns"
	FieldTags     = "tags"
	FieldCover    = "cover"

	// Run fields.
	FieldPackage  = "package"
	FieldCommand  = "command"
	FieldExitCode = "exit_code"
	FieldDuration = "duration"

	// Statistics fields.
	FieldTests    = "tests"
	FieldPasses   = "passes"
	FieldFailures = "failures"
	FieldPending  = "pending"
	FieldCoverage = "coverage"

	// Version fields.
	FieldVersion = "version"
	FieldCommit  = "commit"
	FieldBuilt   = "built"
)
