// Package events defines the test lifecycle events consumed by reporters and
// the sources that produce them.
package events

import "time"

// Suite is a named, possibly nested grouping of tests.
type Suite struct {
	// Title is the suite name as displayed in reports.
	Title string

	// Root marks the implicit top-level suite that contains all others.
	// Reporters never render it as its own section.
	Root bool
}

// Test is a single test outcome. It is owned by the event source; listeners
// must not retain it beyond the handling of the event.
type Test struct {
	// Title is the test's own name (the last path element for subtests).
	Title string

	// FullTitle is the complete name, including parent test names.
	FullTitle string

	// Package is the import path of the package the test belongs to.
	Package string

	// Elapsed is the time the test took, when known.
	Elapsed time.Duration
}

// Listener receives lifecycle events in the order the source delivers them.
// Every handler returns an error so that sink failures propagate to the
// emitter instead of being dropped.
type Listener interface {
	RunStart() error
	SuiteStart(suite Suite) error
	SuiteEnd(suite Suite) error
	TestEnd(test Test) error
	TestPass(test Test) error
	TestFail(test Test, reason string) error
	TestPending(test Test) error
	RunEnd() error
}

// Source is anything listeners can subscribe to.
type Source interface {
	Subscribe(listener Listener)
}
