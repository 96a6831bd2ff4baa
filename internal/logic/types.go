// Package logic contains pure button and LED logic.
// This package has NO external dependencies (no GPIO, OS, or time.Sleep).
// Time is always injectable as a monotonic tick (time.Duration since an
// arbitrary origin).
package logic

import "time"

// State represents the logical state of the LED.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// Raw line levels.
const (
	LevelLow  = 0
	LevelHigh = 1
)

// Polarity describes how the LED is wired.
type Polarity int

const (
	// ActiveHigh: driving the line high lights the LED.
	ActiveHigh Polarity = iota
	// ActiveLow: driving the line low lights the LED (common on dev boards).
	ActiveLow
)

// Level returns the raw line level that shows the given state.
func (p Polarity) Level(s State) int {
	on := s == StateOn
	if p == ActiveLow {
		on = !on
	}
	if on {
		return LevelHigh
	}
	return LevelLow
}

// StateOf returns the state shown by a raw line level.
func (p Polarity) StateOf(level int) State {
	if p.Level(StateOn) == level {
		return StateOn
	}
	return StateOff
}

func (p Polarity) String() string {
	if p == ActiveLow {
		return "active-low"
	}
	return "active-high"
}

// ButtonEvent is handed from the interrupt handler to the toggle task.
// It is copied by value into the queue.
type ButtonEvent struct {
	// Pin is the input line that triggered.
	Pin int
	// Seq numbers every edge accepted by the debounce filter, including
	// edges later dropped on a full queue.
	Seq uint64
	// At is the tick at which the edge was accepted.
	At time.Duration
}
