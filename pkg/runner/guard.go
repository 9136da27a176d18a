package runner

import "github.com/yaklabco/buildtest/pkg/events"

// Compile-time interface check.
var _ events.Listener = (*guard)(nil)

// guard isolates one listener on the run's bus. It never returns an error to
// the bus, so a failing listener does not cut delivery to the others. After
// its first error the listener receives nothing more until finish.
type guard struct {
	listener events.Listener
	open     []events.Suite
	err      error
}

func guardAll(listeners []events.Listener) []*guard {
	guards := make([]*guard, 0, len(listeners))
	for _, l := range listeners {
		if l != nil {
			guards = append(guards, &guard{listener: l})
		}
	}
	return guards
}

func (g *guard) deliver(fn func(events.Listener) error) bool {
	if g.err != nil {
		return false
	}
	if err := fn(g.listener); err != nil {
		g.err = err
	}
	return true
}

// finish ends every suite still open for the listener, innermost first, then
// the run. It returns the listener's first error.
func (g *guard) finish() error {
	for i := len(g.open) - 1; i >= 0; i-- {
		if err := g.listener.SuiteEnd(g.open[i]); err != nil && g.err == nil {
			g.err = err
		}
	}
	g.open = nil
	if err := g.listener.RunEnd(); err != nil && g.err == nil {
		g.err = err
	}
	return g.err
}

// RunStart implements events.Listener.
func (g *guard) RunStart() error {
	g.deliver(func(l events.Listener) error { return l.RunStart() })
	return nil
}

// SuiteStart implements events.Listener.
func (g *guard) SuiteStart(suite events.Suite) error {
	if g.deliver(func(l events.Listener) error { return l.SuiteStart(suite) }) {
		g.open = append(g.open, suite)
	}
	return nil
}

// SuiteEnd implements events.Listener.
func (g *guard) SuiteEnd(suite events.Suite) error {
	if g.deliver(func(l events.Listener) error { return l.SuiteEnd(suite) }) && len(g.open) > 0 {
		g.open = g.open[:len(g.open)-1]
	}
	return nil
}

// TestEnd implements events.Listener.
func (g *guard) TestEnd(test events.Test) error {
	g.deliver(func(l events.Listener) error { return l.TestEnd(test) })
	return nil
}

// TestPass implements events.Listener.
func (g *guard) TestPass(test events.Test) error {
	g.deliver(func(l events.Listener) error { return l.TestPass(test) })
	return nil
}

// TestFail implements events.Listener.
func (g *guard) TestFail(test events.Test, reason string) error {
	g.deliver(func(l events.Listener) error { return l.TestFail(test, reason) })
	return nil
}

// TestPending implements events.Listener.
func (g *guard) TestPending(test events.Test) error {
	g.deliver(func(l events.Listener) error { return l.TestPending(test) })
	return nil
}

// RunEnd is a no-op; finish ends the run for the listener.
func (g *guard) RunEnd() error {
	return nil
}
