package gpio

import "time"

// Clock is a monotonic tick source that is safe to read from interrupt context.
type Clock interface {
	NowFromISR() time.Duration
}

// MonotonicClock counts from the moment it was created.
type MonotonicClock struct {
	origin time.Time
}

// NewMonotonicClock starts a clock at zero.
func NewMonotonicClock() MonotonicClock {
	return MonotonicClock{origin: time.Now()}
}

// NowFromISR returns the time elapsed since the clock was created.
// It uses the runtime's monotonic reading, so wall clock steps do not affect it.
func (c MonotonicClock) NowFromISR() time.Duration {
	return time.Since(c.origin)
}
