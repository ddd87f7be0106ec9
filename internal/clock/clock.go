package clock

import "time"

// Clock abstracts time operations for testability.
type Clock interface {
	Now() time.Time
	// After returns a channel that fires once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// Real is a Clock backed by the system clock.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time { return time.Now() }

// After wraps time.After.
func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Mock is a Clock that returns a fixed time and fires timers on demand.
// Sending on C releases one pending After waiter.
type Mock struct {
	T time.Time
	C chan time.Time
}

// Now returns the fixed time.
func (m Mock) Now() time.Time { return m.T }

// After returns the shared mock timer channel. When C is nil the returned
// channel never fires.
func (m Mock) After(time.Duration) <-chan time.Time {
	if m.C != nil {
		return m.C
	}
	return make(chan time.Time)
}
