package gpio

import "time"

// FakeButtons is a test double whose presses are injected by the test.
type FakeButtons struct {
	ch chan Press

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeButtons creates a FakeButtons with an unbuffered events channel,
// so Press returns once the run loop has received the press.
func NewFakeButtons() *FakeButtons {
	return &FakeButtons{ch: make(chan Press)}
}

// Events returns the press channel.
func (f *FakeButtons) Events() <-chan Press {
	return f.ch
}

// Press delivers a press of b at time at. It blocks until received.
func (f *FakeButtons) Press(b Button, at time.Time) {
	f.ch <- Press{Button: b, Time: at}
}

// Close marks the buttons as closed.
func (f *FakeButtons) Close() error {
	f.Closed = true
	return nil
}
