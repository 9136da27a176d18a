package events

// Compile-time interface checks.
var (
	_ Listener = (*Bus)(nil)
	_ Source   = (*Bus)(nil)
)

// Bus fans events out to its subscribers synchronously, in subscription order.
// Delivery of an event stops at the first listener that returns an error.
//
// A Bus is not safe for concurrent use; events must come from one goroutine.
type Bus struct {
	listeners []Listener
}

// NewBus creates a bus with the given initial subscribers.
func NewBus(listeners ...Listener) *Bus {
	bus := &Bus{}
	for _, l := range listeners {
		bus.Subscribe(l)
	}
	return bus
}

// Subscribe registers a listener. Nil listeners are ignored.
func (b *Bus) Subscribe(listener Listener) {
	if listener == nil {
		return
	}
	b.listeners = append(b.listeners, listener)
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	return len(b.listeners)
}

func (b *Bus) each(fn func(Listener) error) error {
	for _, l := range b.listeners {
		if err := fn(l); err != nil {
			return err
		}
	}
	return nil
}

// RunStart implements Listener.
func (b *Bus) RunStart() error {
	return b.each(func(l Listener) error { return l.RunStart() })
}

// SuiteStart implements Listener.
func (b *Bus) SuiteStart(suite Suite) error {
	return b.each(func(l Listener) error { return l.SuiteStart(suite) })
}

// SuiteEnd implements Listener.
func (b *Bus) SuiteEnd(suite Suite) error {
	return b.each(func(l Listener) error { return l.SuiteEnd(suite) })
}

// TestEnd implements Listener.
func (b *Bus) TestEnd(test Test) error {
	return b.each(func(l Listener) error { return l.TestEnd(test) })
}

// TestPass implements Listener.
func (b *Bus) TestPass(test Test) error {
	return b.each(func(l Listener) error { return l.TestPass(test) })
}

// TestFail implements Listener.
func (b *Bus) TestFail(test Test, reason string) error {
	return b.each(func(l Listener) error { return l.TestFail(test, reason) })
}

// TestPending implements Listener.
func (b *Bus) TestPending(test Test) error {
	return b.each(func(l Listener) error { return l.TestPending(test) })
}

// RunEnd implements Listener.
func (b *Bus) RunEnd() error {
	return b.each(func(l Listener) error { return l.RunEnd() })
}
