package events

import "fmt"

// Compile-time interface check.
var _ Listener = (*Recorder)(nil)

// Recorder is a Listener that records every event as a short string such as
// "suite-start Math" or "test-fail subtracts: expected 1 got 2". It is used
// to inspect event sequences, mostly in tests.
type Recorder struct {
	Events []string
}

// RunStart implements Listener.
func (r *Recorder) RunStart() error {
	r.Events = append(r.Events, "run-start")
	return nil
}

// SuiteStart implements Listener.
func (r *Recorder) SuiteStart(suite Suite) error {
	if suite.Root {
		r.Events = append(r.Events, "suite-start (root)")
		return nil
	}
	r.Events = append(r.Events, "suite-start "+suite.Title)
	return nil
}

// SuiteEnd implements Listener.
func (r *Recorder) SuiteEnd(suite Suite) error {
	if suite.Root {
		r.Events = append(r.Events, "suite-end (root)")
		return nil
	}
	r.Events = append(r.Events, "suite-end "+suite.Title)
	return nil
}

// TestEnd implements Listener.
func (r *Recorder) TestEnd(test Test) error {
	r.Events = append(r.Events, "test-end "+test.Title)
	return nil
}

// TestPass implements Listener.
func (r *Recorder) TestPass(test Test) error {
	r.Events = append(r.Events, "test-pass "+test.Title)
	return nil
}

// TestFail implements Listener.
func (r *Recorder) TestFail(test Test, reason string) error {
	r.Events = append(r.Events, fmt.Sprintf("test-fail %s: %s", test.Title, reason))
	return nil
}

// TestPending implements Listener.
func (r *Recorder) TestPending(test Test) error {
	r.Events = append(r.Events, "test-pending "+test.Title)
	return nil
}

// RunEnd implements Listener.
func (r *Recorder) RunEnd() error {
	r.Events = append(r.Events, "run-end")
	return nil
}
