//go:build tinygo

package button

// defaultYield does nothing: the scheduler must not be entered from an ISR.
// The toggle task sees the wake flag on its next poll.
func defaultYield() {}
