package htmlreport

import "time"

// RunStatistics are the counters accumulated over one run. They are set at
// run start, incremented by the event handlers, and finalized at run end.
type RunStatistics struct {
	Suites   int
	Tests    int
	Passes   int
	Pending  int
	Failures int

	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// Passed reports whether the run had no failures.
func (s RunStatistics) Passed() bool {
	return s.Failures == 0
}
