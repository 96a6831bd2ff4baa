package logic

import "time"

// DefaultDebounceWindow suppresses contact bounce on a typical tactile switch.
const DefaultDebounceWindow = 50 * time.Millisecond

// Debouncer is a time-window filter for edges on a single line.
// The window is measured from the last accepted edge, not the last raw edge.
// Not safe for concurrent use; it belongs to exactly one interrupt handler.
type Debouncer struct {
	window time.Duration
	last   time.Duration
	primed bool // true once an edge has been accepted
}

// NewDebouncer creates a filter with the given window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Accept reports whether an edge at tick now should be kept.
// An edge within window of the last accepted edge is rejected; otherwise it
// becomes the new reference point.
func (d *Debouncer) Accept(now time.Duration) bool {
	if d.primed && now-d.last <= d.window {
		return false
	}
	d.last = now
	d.primed = true
	return true
}

// Window returns the configured debounce window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}
