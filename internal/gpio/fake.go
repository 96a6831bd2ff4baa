package gpio

import (
	"fmt"
	"sync"
	"time"
)

// FakeController is a test double that records configuration and output
// writes and lets tests fire interrupts by hand.
type FakeController struct {
	mu sync.Mutex

	// Calls records configuration calls in order, e.g. "ConfigureOutput(2,0)".
	Calls []string

	// Writes records every SetOutput.
	Writes []Write

	// Levels holds the current level of every configured pin.
	Levels map[int]int

	// Inputs holds the configuration of every input pin.
	Inputs map[int]InputConfig

	// ConfigureError, if set, is returned by the Configure* methods.
	ConfigureError error

	// SetOutputError, if set, is returned by SetOutput.
	SetOutputError error

	// Closed tracks if Close was called.
	Closed bool

	handlers map[int]registration

	// external holds levels driven from outside, set by SetLevel.
	external map[int]int
}

// Write is a single recorded SetOutput call.
type Write struct {
	Pin   int
	Level int
}

type registration struct {
	h   InterruptHandler
	arg int
}

// NewFakeController creates an empty FakeController.
func NewFakeController() *FakeController {
	return &FakeController{
		Levels:   make(map[int]int),
		Inputs:   make(map[int]InputConfig),
		handlers: make(map[int]registration),
		external: make(map[int]int),
	}
}

// ConfigureOutput records the call and sets the pin level.
func (f *FakeController) ConfigureOutput(pin, level int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, fmt.Sprintf("ConfigureOutput(%d,%d)", pin, level))
	if f.ConfigureError != nil {
		return f.ConfigureError
	}
	f.Levels[pin] = level
	return nil
}

// ConfigureInput records the call. Inputs idle high with a pull-up.
func (f *FakeController) ConfigureInput(pin int, cfg InputConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, fmt.Sprintf("ConfigureInput(%d,%+v)", pin, cfg))
	if f.ConfigureError != nil {
		return f.ConfigureError
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	f.Inputs[pin] = cfg
	if v, ok := f.external[pin]; ok {
		f.Levels[pin] = v
	} else if cfg.PullUp {
		f.Levels[pin] = 1
	} else {
		f.Levels[pin] = 0
	}
	return nil
}

// RegisterInterrupt stores the handler for Trigger.
func (f *FakeController) RegisterInterrupt(pin int, h InterruptHandler, arg int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, fmt.Sprintf("RegisterInterrupt(%d,%d)", pin, arg))
	if f.ConfigureError != nil {
		return f.ConfigureError
	}
	if _, ok := f.Inputs[pin]; !ok {
		return fmt.Errorf("register interrupt on pin %d: %w", pin, ErrNotConfigured)
	}
	f.handlers[pin] = registration{h: h, arg: arg}
	return nil
}

// SetOutput records the write.
func (f *FakeController) SetOutput(pin, level int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetOutputError != nil {
		return f.SetOutputError
	}
	if _, ok := f.Levels[pin]; !ok {
		return fmt.Errorf("pin %d: %w", pin, ErrNotConfigured)
	}
	f.Writes = append(f.Writes, Write{Pin: pin, Level: level})
	f.Levels[pin] = level
	return nil
}

// Value returns the current level of a configured pin.
func (f *FakeController) Value(pin int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.Levels[pin]
	if !ok {
		return 0, fmt.Errorf("pin %d: %w", pin, ErrNotConfigured)
	}
	return v, nil
}

// SetLevel drives pin from outside, e.g. a held button. The level wins
// over bias when the pin is later configured as an input.
func (f *FakeController) SetLevel(pin, level int) {
	f.mu.Lock()
	f.Levels[pin] = level
	f.external[pin] = level
	f.mu.Unlock()
}

// Close marks the controller as closed.
func (f *FakeController) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Trigger runs the handler registered for pin on the calling goroutine, as
// the hardware would on a matching edge. Returns false if none is registered.
func (f *FakeController) Trigger(pin int) bool {
	f.mu.Lock()
	r, ok := f.handlers[pin]
	f.mu.Unlock()
	if !ok {
		return false
	}
	r.h(r.arg)
	return true
}

// WritesTo returns the levels written to pin, oldest first.
func (f *FakeController) WritesTo(pin int) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var levels []int
	for _, w := range f.Writes {
		if w.Pin == pin {
			levels = append(levels, w.Level)
		}
	}
	return levels
}

// CallLog returns a copy of Calls.
func (f *FakeController) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

// FakeClock is a Clock whose time is set by the test.
type FakeClock struct {
	mu  sync.Mutex
	now time.Duration
}

// NowFromISR returns the current fake tick.
func (c *FakeClock) NowFromISR() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Duration) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}
